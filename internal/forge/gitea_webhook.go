package forge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgesmith/revpilot/internal/core"
)

// Webhook header names used by Gitea and Forgejo.
const (
	giteaEventHeader    = "X-Gitea-Event"
	giteaDeliveryHeader = "X-Gitea-Delivery"
)

type giteaWebhookPayload struct {
	Action      string     `json:"action"`
	Number      int        `json:"number"`
	PullRequest *giteaPull `json:"pull_request"`
	Issue       *struct {
		Number      int             `json:"number"`
		Title       string          `json:"title"`
		PullRequest json.RawMessage `json:"pull_request"`
	} `json:"issue"`
	Comment *struct {
		Body string     `json:"body"`
		User *giteaUser `json:"user"`
	} `json:"comment"`
	Repository *giteaRepo `json:"repository"`
	Sender     *giteaUser `json:"sender"`
}

// ParseWebhookEvent normalizes a Gitea webhook delivery into the canonical
// event model. Deliveries the system does not act on yield (nil, nil);
// malformed JSON yields core.ErrValidation. Unexpected payload shapes degrade
// to (nil, nil) rather than erroring.
func (g *giteaProvider) ParseWebhookEvent(payload []byte, headers map[string]string) (*core.ReviewEvent, error) {
	eventType := headerValue(headers, giteaEventHeader)

	switch eventType {
	case "pull_request", "issue_comment":
	default:
		return nil, nil
	}

	var raw giteaWebhookPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	if raw.Repository == nil || raw.Repository.Owner == nil {
		return nil, nil
	}

	event := &core.ReviewEvent{
		DeliveryID:   headerValue(headers, giteaDeliveryHeader),
		Timestamp:    time.Now().UTC(),
		Provider:     string(KindGitea),
		RepoOwner:    raw.Repository.Owner.name(),
		RepoName:     raw.Repository.Name,
		RepoFullName: raw.Repository.FullName,
		Sender:       raw.Sender.name(),
	}

	switch eventType {
	case "pull_request":
		return g.parsePullRequestEvent(&raw, event)
	case "issue_comment":
		return g.parseIssueCommentEvent(&raw, event)
	}
	return nil, nil
}

func (g *giteaProvider) parsePullRequestEvent(raw *giteaWebhookPayload, event *core.ReviewEvent) (*core.ReviewEvent, error) {
	if raw.PullRequest == nil {
		return nil, nil
	}

	switch raw.Action {
	case "opened", "reopened":
		event.Type = core.EventPROpened
	case "synchronized", "synchronize":
		event.Type = core.EventPRUpdated
	case "closed":
		event.Type = core.EventPRClosed
	default:
		return nil, nil
	}

	event.PRNumber = raw.PullRequest.Number
	if event.PRNumber == 0 {
		event.PRNumber = raw.Number
	}
	event.PRTitle = raw.PullRequest.Title
	if raw.PullRequest.Head != nil {
		event.HeadSHA = raw.PullRequest.Head.SHA
	}
	return event, nil
}

func (g *giteaProvider) parseIssueCommentEvent(raw *giteaWebhookPayload, event *core.ReviewEvent) (*core.ReviewEvent, error) {
	// Comments on plain issues carry no pull_request reference and are not
	// review material.
	if raw.Issue == nil || len(raw.Issue.PullRequest) == 0 || string(raw.Issue.PullRequest) == "null" {
		return nil, nil
	}
	if raw.Comment == nil {
		return nil, nil
	}

	event.Type = core.EventPRComment
	event.PRNumber = raw.Issue.Number
	event.PRTitle = raw.Issue.Title
	event.CommentBody = raw.Comment.Body
	event.CommentAction = raw.Action
	event.Triggers = ExtractTriggers(raw.Comment.Body, g.triggers)
	if event.Sender == "" {
		event.Sender = raw.Comment.User.name()
	}
	return event, nil
}
