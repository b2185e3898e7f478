// Package history decides which commits of a pull request still need review.
//
// It distinguishes three outcomes: first review (nothing reviewed yet),
// incremental review (some commits reviewed, new ones on top), and rebase
// (the last reviewed commit no longer exists in history, so everything must
// be re-reviewed).
package history

import "github.com/forgesmith/revpilot/internal/core"

// Outcome classifies what the next review run has to cover.
type Outcome int

const (
	FirstReview Outcome = iota
	Incremental
	Rebase
)

func (o Outcome) String() string {
	switch o {
	case FirstReview:
		return "first-review"
	case Incremental:
		return "incremental"
	case Rebase:
		return "rebase"
	default:
		return "unknown"
	}
}

// LastReviewedCommit returns the sha of the most recently submitted review
// that still points into the current commit set. Reviews referencing commits
// that no longer exist (deleted branches, rewritten history) are ignored.
// ok is false when no review qualifies.
func LastReviewedCommit(reviews []core.ReviewRecord, commits []core.Commit) (sha string, ok bool) {
	present := make(map[string]struct{}, len(commits))
	for _, c := range commits {
		present[c.SHA] = struct{}{}
	}

	var best *core.ReviewRecord
	for i := range reviews {
		r := &reviews[i]
		if _, found := present[r.CommitSHA]; !found {
			continue
		}
		if best == nil || r.SubmittedAt.After(best.SubmittedAt) {
			best = r
		}
	}
	if best == nil {
		return "", false
	}
	return best.CommitSHA, true
}

// FilterByAuthor keeps only reviews submitted by the given login. The
// orchestrator uses it so that only the bot's own past reviews count toward
// incremental state, not human reviews.
func FilterByAuthor(reviews []core.ReviewRecord, login string) []core.ReviewRecord {
	if login == "" {
		return reviews
	}
	var out []core.ReviewRecord
	for _, r := range reviews {
		if r.AuthorLogin == login {
			out = append(out, r)
		}
	}
	return out
}

// CommitsAfter returns the commits that still need review given the last
// reviewed sha.
//
// An empty sha means no prior review: everything is returned. A sha that is
// not in commits means history was rewritten: everything is returned again,
// signaling a full re-review. Otherwise the subsequence strictly after the
// matching commit is returned; an empty result means the PR is fully
// reviewed and the caller must do nothing.
func CommitsAfter(commits []core.Commit, sha string) []core.Commit {
	if sha == "" {
		return commits
	}
	for i, c := range commits {
		if c.SHA == sha {
			return commits[i+1:]
		}
	}
	return commits
}

// Classify names the outcome for a given commit set and last reviewed sha.
func Classify(commits []core.Commit, sha string) Outcome {
	if sha == "" {
		return FirstReview
	}
	for _, c := range commits {
		if c.SHA == sha {
			return Incremental
		}
	}
	return Rebase
}
