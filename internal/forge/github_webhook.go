package forge

import (
	"fmt"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/forgesmith/revpilot/internal/core"
)

const (
	githubEventHeader    = "X-GitHub-Event"
	githubDeliveryHeader = "X-GitHub-Delivery"
)

// ParseWebhookEvent normalizes a GitHub webhook delivery via go-github's
// payload parser. Deliveries the system does not act on yield (nil, nil).
func (g *githubProvider) ParseWebhookEvent(payload []byte, headers map[string]string) (*core.ReviewEvent, error) {
	eventType := headerValue(headers, githubEventHeader)
	if eventType == "" {
		return nil, nil
	}

	parsed, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}

	switch e := parsed.(type) {
	case *github.PullRequestEvent:
		return g.normalizePullRequestEvent(e, headers), nil
	case *github.IssueCommentEvent:
		return g.normalizeIssueCommentEvent(e, headers), nil
	default:
		return nil, nil
	}
}

func (g *githubProvider) baseEvent(repo *github.Repository, sender *github.User, headers map[string]string) *core.ReviewEvent {
	return &core.ReviewEvent{
		DeliveryID:   headerValue(headers, githubDeliveryHeader),
		Timestamp:    time.Now().UTC(),
		Provider:     string(KindGitHub),
		RepoOwner:    repo.GetOwner().GetLogin(),
		RepoName:     repo.GetName(),
		RepoFullName: repo.GetFullName(),
		Sender:       sender.GetLogin(),
	}
}

func (g *githubProvider) normalizePullRequestEvent(e *github.PullRequestEvent, headers map[string]string) *core.ReviewEvent {
	if e.GetRepo() == nil || e.GetPullRequest() == nil {
		return nil
	}

	event := g.baseEvent(e.GetRepo(), e.GetSender(), headers)
	switch e.GetAction() {
	case "opened", "reopened":
		event.Type = core.EventPROpened
	case "synchronize":
		event.Type = core.EventPRUpdated
	case "closed":
		event.Type = core.EventPRClosed
	default:
		return nil
	}

	event.PRNumber = e.GetPullRequest().GetNumber()
	event.PRTitle = e.GetPullRequest().GetTitle()
	event.HeadSHA = e.GetPullRequest().GetHead().GetSHA()
	return event
}

func (g *githubProvider) normalizeIssueCommentEvent(e *github.IssueCommentEvent, headers map[string]string) *core.ReviewEvent {
	// Issue comments that are not on a pull request are not review material.
	if e.GetRepo() == nil || e.GetIssue() == nil || !e.GetIssue().IsPullRequest() {
		return nil
	}
	if e.GetComment() == nil {
		return nil
	}

	event := g.baseEvent(e.GetRepo(), e.GetSender(), headers)
	event.Type = core.EventPRComment
	event.PRNumber = e.GetIssue().GetNumber()
	event.PRTitle = e.GetIssue().GetTitle()
	event.CommentBody = e.GetComment().GetBody()
	event.CommentAction = e.GetAction()
	event.Triggers = ExtractTriggers(e.GetComment().GetBody(), g.triggers)
	if event.Sender == "" {
		event.Sender = e.GetComment().GetUser().GetLogin()
	}
	return event
}
