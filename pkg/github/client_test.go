package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/saint0x/ggrowth/pkg/log"
	"golang.org/x/time/rate"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantError bool
	}{
		{
			name:      "HTTPS URL",
			url:       "https://github.com/owner/repo.git",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "SSH URL",
			url:       "git@github.com:owner/repo.git",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "Simple URL",
			url:       "https://github.com/owner/repo",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "Owner and repo",
			url:       "owner/repo",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "Invalid URL",
			url:       "not-a-url",
			wantError: true,
		},
		{
			name:      "Invalid Path",
			url:       "https://github.com/invalid",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.url)

			if tt.wantError {
				if err == nil {
					t.Errorf("ParseRepoURL() error = nil, want error")
				}
				return
			}

			if err != nil {
				t.Errorf("ParseRepoURL() error = %v, want nil", err)
				return
			}

			if owner != tt.wantOwner {
				t.Errorf("ParseRepoURL() owner = %v, want %v", owner, tt.wantOwner)
			}

			if repo != tt.wantRepo {
				t.Errorf("ParseRepoURL() repo = %v, want %v", repo, tt.wantRepo)
			}
		})
	}
}

func quietLogger() *log.Logger {
	logger := log.New(false)
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantError bool
	}{
		{
			name:  "Valid token",
			token: "test-token",
		},
		{
			name:      "Empty token",
			token:     "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := quietLogger()
			client := New(logger, tt.token, "owner", "repo")

			if tt.wantError {
				if client != nil {
					t.Error("New() returned non-nil client when error expected")
				}
				return
			}

			if client == nil {
				t.Fatal("New() returned nil client")
			}
			if client.client == nil {
				t.Error("New() client.client is nil")
			}
			if client.logger != logger {
				t.Error("New() client.logger not set correctly")
			}
			if client.Repo() != "owner/repo" {
				t.Errorf("Repo() = %q", client.Repo())
			}
		})
	}
}

// fakeGitHub records requests and serves canned responses by "METHOD path".
type fakeGitHub struct {
	t         *testing.T
	responses map[string]string
	status    map[string]int
	calls     []string
	bodies    map[string][]byte
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	return &fakeGitHub{
		t:         t,
		responses: map[string]string{},
		status:    map[string]int{},
		bodies:    map[string][]byte{},
	}
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	f.calls = append(f.calls, key)
	body, _ := io.ReadAll(r.Body)
	f.bodies[key] = body

	w.Header().Set("Content-Type", "application/json")
	if code, ok := f.status[key]; ok {
		w.WriteHeader(code)
		fmt.Fprint(w, `{"message":"error"}`)
		return
	}
	resp, ok := f.responses[key]
	if !ok {
		f.t.Logf("unexpected request %s", key)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	if r.Method == http.MethodPost {
		w.WriteHeader(http.StatusCreated)
	}
	fmt.Fprint(w, resp)
}

func newTestClient(t *testing.T, fake *fakeGitHub) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := New(quietLogger(), "token", "acme", "site", WithBaseURL(srv.URL), WithLimiter(rate.NewLimiter(rate.Inf, 1)))
	if client == nil {
		t.Fatal("New() returned nil")
	}
	return client
}

func TestCreateBranch(t *testing.T) {
	fake := newFakeGitHub(t)
	fake.responses["GET /repos/acme/site/git/ref/heads/main"] = `{"ref":"refs/heads/main","object":{"sha":"abc123","type":"commit"}}`
	fake.responses["POST /repos/acme/site/git/refs"] = `{"ref":"refs/heads/ggrowth/seo","object":{"sha":"abc123"}}`

	client := newTestClient(t, fake)
	sha, err := client.CreateBranch(context.Background(), "main", "ggrowth/seo")
	if err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}
	if sha != "abc123" {
		t.Errorf("CreateBranch() sha = %q, want abc123", sha)
	}

	var ref struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(fake.bodies["POST /repos/acme/site/git/refs"], &ref); err != nil {
		t.Fatalf("failed to decode create ref body: %v", err)
	}
	if ref.Ref != "refs/heads/ggrowth/seo" || ref.SHA != "abc123" {
		t.Errorf("create ref body = %+v", ref)
	}
}

func TestCreateBranchMissingBase(t *testing.T) {
	fake := newFakeGitHub(t)
	client := newTestClient(t, fake)

	if _, err := client.CreateBranch(context.Background(), "main", "x"); err == nil {
		t.Error("CreateBranch() error = nil, want error")
	}
	if len(fake.calls) != 1 {
		t.Errorf("expected no create-ref call after failed get-ref, got %v", fake.calls)
	}
}

func TestCommitFiles(t *testing.T) {
	fake := newFakeGitHub(t)
	fake.responses["GET /repos/acme/site/git/commits/abc123"] = `{"sha":"abc123","tree":{"sha":"tree0"}}`
	fake.responses["POST /repos/acme/site/git/trees"] = `{"sha":"tree1"}`
	fake.responses["POST /repos/acme/site/git/commits"] = `{"sha":"def456"}`
	fake.responses["PATCH /repos/acme/site/git/refs/heads/ggrowth/seo"] = `{"ref":"refs/heads/ggrowth/seo","object":{"sha":"def456"}}`

	client := newTestClient(t, fake)
	content := "hello"
	sha, err := client.CommitFiles(context.Background(), "ggrowth/seo", "abc123", "Add meta", []TreeFile{
		{Path: "app/meta.ts", Content: &content},
		{Path: "old.js"},
	})
	if err != nil {
		t.Fatalf("CommitFiles() error = %v", err)
	}
	if sha != "def456" {
		t.Errorf("CommitFiles() sha = %q", sha)
	}

	var tree struct {
		BaseTree string                   `json:"base_tree"`
		Tree     []map[string]interface{} `json:"tree"`
	}
	if err := json.Unmarshal(fake.bodies["POST /repos/acme/site/git/trees"], &tree); err != nil {
		t.Fatalf("failed to decode tree body: %v", err)
	}
	if tree.BaseTree != "tree0" {
		t.Errorf("base_tree = %q", tree.BaseTree)
	}
	if len(tree.Tree) != 2 {
		t.Fatalf("tree entries = %d", len(tree.Tree))
	}
	if tree.Tree[0]["content"] != "hello" {
		t.Errorf("first entry = %v", tree.Tree[0])
	}
	if sha, ok := tree.Tree[1]["sha"]; !ok || sha != nil {
		t.Errorf("delete entry should carry sha: null, got %v", tree.Tree[1])
	}
}

func TestSetMilestone(t *testing.T) {
	fake := newFakeGitHub(t)
	fake.responses["GET /repos/acme/site/milestones"] = `[{"number":3,"title":"Q3 growth"},{"number":4,"title":"Q4"}]`
	fake.responses["PATCH /repos/acme/site/issues/7"] = `{"number":7}`

	client := newTestClient(t, fake)

	found, err := client.SetMilestone(context.Background(), 7, "Q3 growth")
	if err != nil || !found {
		t.Fatalf("SetMilestone() = %v, %v; want true, nil", found, err)
	}
	var edit struct {
		Milestone int `json:"milestone"`
	}
	json.Unmarshal(fake.bodies["PATCH /repos/acme/site/issues/7"], &edit)
	if edit.Milestone != 3 {
		t.Errorf("milestone = %d, want 3", edit.Milestone)
	}

	found, err = client.SetMilestone(context.Background(), 7, "Someday")
	if err != nil || found {
		t.Errorf("SetMilestone() for unknown title = %v, %v; want false, nil", found, err)
	}
}

func TestCreateCheckRun(t *testing.T) {
	fake := newFakeGitHub(t)
	fake.responses["POST /repos/acme/site/check-runs"] = `{"id":1}`

	client := newTestClient(t, fake)
	if err := client.CreateCheckRun(context.Background(), "def456", "ggrowth/lint", "ok"); err != nil {
		t.Fatalf("CreateCheckRun() error = %v", err)
	}

	var run map[string]interface{}
	json.Unmarshal(fake.bodies["POST /repos/acme/site/check-runs"], &run)
	if run["conclusion"] != "success" || run["status"] != "completed" || run["head_sha"] != "def456" {
		t.Errorf("check run body = %v", run)
	}
}

func TestFindOpenPR(t *testing.T) {
	fake := newFakeGitHub(t)
	fake.responses["GET /repos/acme/site/pulls"] = `[{"number":1,"title":"Other"},{"number":2,"title":"Add CSP"}]`

	client := newTestClient(t, fake)
	pr, err := client.FindOpenPR(context.Background(), "Add CSP")
	if err != nil {
		t.Fatalf("FindOpenPR() error = %v", err)
	}
	if pr == nil || pr.GetNumber() != 2 {
		t.Errorf("FindOpenPR() = %v, want #2", pr)
	}

	pr, err = client.FindOpenPR(context.Background(), "Nope")
	if err != nil || pr != nil {
		t.Errorf("FindOpenPR() for missing title = %v, %v", pr, err)
	}
}

func TestGetDefaultBranch(t *testing.T) {
	fake := newFakeGitHub(t)
	fake.responses["GET /repos/acme/site"] = `{"name":"site","default_branch":"trunk"}`

	client := newTestClient(t, fake)
	branch, err := client.GetDefaultBranch(context.Background())
	if err != nil {
		t.Fatalf("GetDefaultBranch() error = %v", err)
	}
	if branch != "trunk" {
		t.Errorf("GetDefaultBranch() = %q, want trunk", branch)
	}
}

func TestUpdateAndMergePR(t *testing.T) {
	fake := newFakeGitHub(t)
	fake.responses["PATCH /repos/acme/site/pulls/9"] = `{"number":9,"title":"New title"}`
	fake.responses["PUT /repos/acme/site/pulls/9/merge"] = `{"merged":true,"sha":"fff"}`
	fake.responses["PUT /repos/acme/site/pulls/10/merge"] = `{"merged":false,"message":"Head branch was modified"}`

	client := newTestClient(t, fake)

	pr, err := client.UpdatePR(context.Background(), 9, "New title", "body")
	if err != nil {
		t.Fatalf("UpdatePR() error = %v", err)
	}
	if pr.GetTitle() != "New title" {
		t.Errorf("UpdatePR() title = %q", pr.GetTitle())
	}

	if err := client.MergePR(context.Background(), 9, "squash"); err != nil {
		t.Errorf("MergePR() error = %v", err)
	}
	var merge map[string]interface{}
	json.Unmarshal(fake.bodies["PUT /repos/acme/site/pulls/9/merge"], &merge)
	if merge["merge_method"] != "squash" {
		t.Errorf("merge body = %v", merge)
	}

	if err := client.MergePR(context.Background(), 10, "merge"); err == nil {
		t.Error("MergePR() for unmerged PR error = nil, want error")
	}
}

func TestPRMetadata(t *testing.T) {
	fake := newFakeGitHub(t)
	fake.status["POST /repos/acme/site/issues/7/labels"] = http.StatusUnprocessableEntity
	fake.responses["POST /repos/acme/site/pulls/7/requested_reviewers"] = `{"number":7}`
	fake.responses["POST /repos/acme/site/issues/7/assignees"] = `{"number":7}`

	client := newTestClient(t, fake)
	ctx := context.Background()

	if err := client.AddLabels(ctx, 7, "automated"); err == nil {
		t.Error("AddLabels() error = nil, want error")
	}
	if err := client.RequestReviewers(ctx, 7, "octocat"); err != nil {
		t.Errorf("RequestReviewers() error = %v", err)
	}
	if err := client.AddAssignees(ctx, 7, "hubot"); err != nil {
		t.Errorf("AddAssignees() error = %v", err)
	}

	var reviewers struct {
		Reviewers []string `json:"reviewers"`
	}
	json.Unmarshal(fake.bodies["POST /repos/acme/site/pulls/7/requested_reviewers"], &reviewers)
	if len(reviewers.Reviewers) != 1 || reviewers.Reviewers[0] != "octocat" {
		t.Errorf("reviewers body = %+v", reviewers)
	}
}
