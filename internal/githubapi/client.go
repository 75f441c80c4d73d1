// Package githubapi wraps the GitHub REST and GraphQL APIs behind one
// client interface. Review threads come from GraphQL because thread
// resolution state is not exposed over REST.
package githubapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// Client defines the GitHub operations the pipeline consumes.
type Client interface {
	Issue(ctx context.Context, number int) (*Issue, error)
	Comments(ctx context.Context, number int) ([]Comment, error)
	Diff(ctx context.Context, number int) (string, error)
	ReviewThreads(ctx context.Context, number int) ([]ReviewThread, error)
	Reviews(ctx context.Context, number int) ([]Review, error)
	CreatePullRequest(ctx context.Context, pr NewPullRequest) (string, error)
}

// RESTClient implements Client against one owner/repo using go-github for
// REST calls and githubv4 for the review-thread query.
type RESTClient struct {
	rest  *github.Client
	gql   *githubv4.Client
	owner string
	repo  string
}

// NewClient creates a client for owner/repo authenticated with token.
func NewClient(ctx context.Context, owner, repo, token string) *RESTClient {
	var httpClient *http.Client
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, src)
	}
	return &RESTClient{
		rest:  github.NewClient(httpClient),
		gql:   githubv4.NewClient(httpClient),
		owner: owner,
		repo:  repo,
	}
}

func (c *RESTClient) Issue(ctx context.Context, number int) (*Issue, error) {
	issue, _, err := c.rest.Issues.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("get issue #%d: %w", number, err)
	}

	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	return &Issue{
		Number:        number,
		Author:        issue.GetUser().GetLogin(),
		Title:         issue.GetTitle(),
		Body:          issue.GetBody(),
		URL:           issue.GetHTMLURL(),
		Labels:        labels,
		IsPullRequest: issue.IsPullRequest(),
	}, nil
}

func (c *RESTClient) Comments(ctx context.Context, number int) ([]Comment, error) {
	opts := &github.IssueListCommentsOptions{
		Sort:        github.Ptr("created"),
		Direction:   github.Ptr("asc"),
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var comments []Comment
	for {
		page, resp, err := c.rest.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list comments for #%d: %w", number, err)
		}
		for _, gc := range page {
			comments = append(comments, Comment{
				Author:    gc.GetUser().GetLogin(),
				Body:      gc.GetBody(),
				CreatedAt: gc.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

func (c *RESTClient) Diff(ctx context.Context, number int) (string, error) {
	diff, _, err := c.rest.PullRequests.GetRaw(ctx, c.owner, c.repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("get diff for #%d: %w", number, err)
	}
	return diff, nil
}

func (c *RESTClient) ReviewThreads(ctx context.Context, number int) ([]ReviewThread, error) {
	var query struct {
		Repository struct {
			PullRequest struct {
				ReviewThreads struct {
					Nodes []struct {
						IsResolved bool
						Comments   struct {
							Nodes []struct {
								Author struct {
									Login string
								}
								Body      string
								Path      string
								Line      *int
								DiffHunk  string
								CreatedAt githubv4.DateTime
							}
						} `graphql:"comments(first: 100)"`
					}
				} `graphql:"reviewThreads(first: 100)"`
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]any{
		"owner":  githubv4.String(c.owner),
		"repo":   githubv4.String(c.repo),
		"number": githubv4.Int(number),
	}

	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("review threads for #%d: %w", number, err)
	}

	var threads []ReviewThread
	for _, node := range query.Repository.PullRequest.ReviewThreads.Nodes {
		thread := ReviewThread{IsResolved: node.IsResolved}
		for _, tc := range node.Comments.Nodes {
			line := 0
			if tc.Line != nil {
				line = *tc.Line
			}
			thread.Comments = append(thread.Comments, ThreadComment{
				Author:    tc.Author.Login,
				Body:      tc.Body,
				Path:      tc.Path,
				Line:      line,
				DiffHunk:  tc.DiffHunk,
				CreatedAt: tc.CreatedAt.Time,
			})
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

func (c *RESTClient) Reviews(ctx context.Context, number int) ([]Review, error) {
	opts := &github.ListOptions{PerPage: 100}

	var reviews []Review
	for {
		page, resp, err := c.rest.PullRequests.ListReviews(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list reviews for #%d: %w", number, err)
		}
		for _, r := range page {
			reviews = append(reviews, Review{
				Author:      r.GetUser().GetLogin(),
				State:       r.GetState(),
				Body:        r.GetBody(),
				SubmittedAt: r.GetSubmittedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return reviews, nil
}

func (c *RESTClient) CreatePullRequest(ctx context.Context, pr NewPullRequest) (string, error) {
	created, _, err := c.rest.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.Ptr(pr.Title),
		Body:  github.Ptr(pr.Body),
		Head:  github.Ptr(pr.Head),
		Base:  github.Ptr(pr.Base),
		Draft: github.Ptr(pr.Draft),
	})
	if err != nil {
		return "", fmt.Errorf("create pull request: %w", err)
	}
	return created.GetHTMLURL(), nil
}
