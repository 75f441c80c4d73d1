package githubapi

import "time"

// Issue is the core payload for an issue or pull request.
type Issue struct {
	Number        int
	Author        string
	Title         string
	Body          string
	URL           string
	Labels        []string
	IsPullRequest bool
}

// Comment is a plain issue comment.
type Comment struct {
	Author    string
	Body      string
	CreatedAt time.Time
}

// ThreadComment is one inline comment within a review thread.
type ThreadComment struct {
	Author    string
	Body      string
	Path      string
	Line      int
	DiffHunk  string
	CreatedAt time.Time
}

// ReviewThread groups inline comments on one diff location.
type ReviewThread struct {
	IsResolved bool
	Comments   []ThreadComment
}

// Review is a top-level review verdict (approval, change request, comment).
type Review struct {
	Author      string
	State       string
	Body        string
	SubmittedAt time.Time
}

// NewPullRequest describes a pull request to create.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}
