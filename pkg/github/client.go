package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/saint0x/ggrowth/pkg/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client handles GitHub operations against a single repository
type Client struct {
	client  *github.Client
	logger  *log.Logger
	owner   string
	repo    string
	limiter *rate.Limiter
}

// Option configures a Client
type Option func(*Client) error

// WithBaseURL points the client at a GitHub Enterprise or test API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		c.client.BaseURL = u
		return nil
	}
}

// WithLimiter replaces the default request pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) error {
		c.limiter = l
		return nil
	}
}

// New creates a new GitHub client for owner/repo. It returns nil when no
// token is given.
func New(logger *log.Logger, token, owner, repo string, opts ...Option) *Client {
	if token == "" {
		logger.Error("GITHUB_TOKEN environment variable not set")
		return nil
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	c := &Client{
		client:  github.NewClient(tc),
		logger:  logger,
		owner:   owner,
		repo:    repo,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			logger.Error("Failed to configure GitHub client: %v", err)
			return nil
		}
	}
	return c
}

// Repo returns "owner/repo".
func (c *Client) Repo() string {
	return c.owner + "/" + c.repo
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	return nil
}

// GetDefaultBranch gets the default branch for the repository
func (c *Client) GetDefaultBranch(ctx context.Context) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	repository, _, err := c.client.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return "", fmt.Errorf("failed to get repository: %w", err)
	}

	return repository.GetDefaultBranch(), nil
}

// CreateBranch creates branch pointing at the current tip of base and
// returns that commit SHA.
func (c *Client) CreateBranch(ctx context.Context, base, branch string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	baseRef, _, err := c.client.Git.GetRef(ctx, c.owner, c.repo, "refs/heads/"+base)
	if err != nil {
		return "", fmt.Errorf("failed to get %s ref: %w", base, err)
	}
	sha := baseRef.GetObject().GetSHA()

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	_, _, err = c.client.Git.CreateRef(ctx, c.owner, c.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create branch %s: %w", branch, err)
	}

	return sha, nil
}

// TreeFile is one path to write or delete in a commit. A nil Content deletes
// the path.
type TreeFile struct {
	Path    string
	Content *string
}

// CommitFiles creates a commit on top of parentSHA containing files and moves
// branch to it. It returns the new commit SHA.
func (c *Client) CommitFiles(ctx context.Context, branch, parentSHA, message string, files []TreeFile) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	parent, _, err := c.client.Git.GetCommit(ctx, c.owner, c.repo, parentSHA)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", parentSHA, err)
	}

	entries := make([]*github.TreeEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, &github.TreeEntry{
			Path:    github.String(f.Path),
			Mode:    github.String("100644"),
			Type:    github.String("blob"),
			Content: f.Content,
		})
	}

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	tree, _, err := c.client.Git.CreateTree(ctx, c.owner, c.repo, parent.GetTree().GetSHA(), entries)
	if err != nil {
		return "", fmt.Errorf("failed to create tree: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	commit, _, err := c.client.Git.CreateCommit(ctx, c.owner, c.repo, &github.Commit{
		Message: github.String(message),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: github.String(parentSHA)}},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create commit: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	_, _, err = c.client.Git.UpdateRef(ctx, c.owner, c.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: commit.SHA},
	}, false)
	if err != nil {
		return "", fmt.Errorf("failed to update branch %s: %w", branch, err)
	}

	return commit.GetSHA(), nil
}

// CreatePR creates a new pull request
func (c *Client) CreatePR(ctx context.Context, title, body, head, base string) (*github.PullRequest, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	pr, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title:               github.String(title),
		Body:                github.String(body),
		Head:                github.String(head),
		Base:                github.String(base),
		MaintainerCanModify: github.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PR: %w", err)
	}

	return pr, nil
}

// UpdatePR replaces the title and body of a pull request
func (c *Client) UpdatePR(ctx context.Context, number int, title, body string) (*github.PullRequest, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	pr, _, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update PR #%d: %w", number, err)
	}
	return pr, nil
}

// MergePR merges a pull request with the given method (merge, squash, rebase)
func (c *Client) MergePR(ctx context.Context, number int, method string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	result, _, err := c.client.PullRequests.Merge(ctx, c.owner, c.repo, number, "", &github.PullRequestOptions{
		MergeMethod: method,
	})
	if err != nil {
		return fmt.Errorf("failed to merge PR #%d: %w", number, err)
	}
	if !result.GetMerged() {
		return fmt.Errorf("PR #%d was not merged: %s", number, result.GetMessage())
	}
	return nil
}

// FindOpenPR returns the open pull request with exactly this title, if any.
func (c *Client) FindOpenPR(ctx context.Context, title string) (*github.PullRequest, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		State: "open",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list PRs: %w", err)
	}

	for _, pr := range prs {
		if pr.GetTitle() == title {
			return pr, nil
		}
	}
	return nil, nil
}

// AddLabels adds labels to a pull request
func (c *Client) AddLabels(ctx context.Context, number int, labels ...string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, _, err := c.client.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, number, labels); err != nil {
		return fmt.Errorf("failed to add labels %v: %w", labels, err)
	}
	return nil
}

// RequestReviewers requests reviews from users
func (c *Client) RequestReviewers(ctx context.Context, number int, reviewers ...string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, _, err := c.client.PullRequests.RequestReviewers(ctx, c.owner, c.repo, number, github.ReviewersRequest{
		Reviewers: reviewers,
	}); err != nil {
		return fmt.Errorf("failed to request reviewers %v: %w", reviewers, err)
	}
	return nil
}

// AddAssignees assigns users to a pull request
func (c *Client) AddAssignees(ctx context.Context, number int, assignees ...string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, _, err := c.client.Issues.AddAssignees(ctx, c.owner, c.repo, number, assignees); err != nil {
		return fmt.Errorf("failed to add assignees %v: %w", assignees, err)
	}
	return nil
}

// SetMilestone attaches the open milestone titled title. It reports false,
// without error, when no milestone has that title.
func (c *Client) SetMilestone(ctx context.Context, number int, title string) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	milestones, _, err := c.client.Issues.ListMilestones(ctx, c.owner, c.repo, &github.MilestoneListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return false, fmt.Errorf("failed to list milestones: %w", err)
	}

	for _, m := range milestones {
		if m.GetTitle() != title {
			continue
		}
		if err := c.wait(ctx); err != nil {
			return false, err
		}
		if _, _, err := c.client.Issues.Edit(ctx, c.owner, c.repo, number, &github.IssueRequest{
			Milestone: github.Int(m.GetNumber()),
		}); err != nil {
			return false, fmt.Errorf("failed to set milestone %q: %w", title, err)
		}
		return true, nil
	}

	return false, nil
}

// CreateCheckRun records a completed, successful check run on headSHA.
func (c *Client) CreateCheckRun(ctx context.Context, headSHA, name, summary string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	_, _, err := c.client.Checks.CreateCheckRun(ctx, c.owner, c.repo, github.CreateCheckRunOptions{
		Name:        name,
		HeadSHA:     headSHA,
		Status:      github.String("completed"),
		Conclusion:  github.String("success"),
		CompletedAt: &github.Timestamp{Time: time.Now()},
		Output: &github.CheckRunOutput{
			Title:   github.String(name),
			Summary: github.String(summary),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create check run %q: %w", name, err)
	}
	return nil
}

// ParseRepoURL parses a GitHub URL or owner/repo pair into owner and repo
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	// Handle different URL formats
	repoURL = strings.TrimSuffix(repoURL, ".git")

	// Handle SSH URLs (git@github.com:owner/repo)
	if strings.HasPrefix(repoURL, "git@github.com:") {
		parts := strings.Split(strings.TrimPrefix(repoURL, "git@github.com:"), "/")
		if len(parts) != 2 {
			return "", "", fmt.Errorf("invalid SSH repository URL format")
		}
		return parts[0], parts[1], nil
	}

	// Handle bare owner/repo
	if !strings.Contains(repoURL, "://") {
		parts := strings.Split(repoURL, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("invalid repository format %q", repoURL)
		}
		return parts[0], parts[1], nil
	}

	// Handle HTTPS URLs
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository URL format")
	}

	return parts[0], parts[1], nil
}
