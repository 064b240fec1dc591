package forge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		PerPage: 2,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{Token: "t"}, nil); err == nil {
		t.Error("missing base URL should fail")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "http://forge"}, nil); err == nil {
		t.Error("missing token should fail")
	}

	var cfgErr *ConfigError
	_, err := NewClient(ClientConfig{}, nil)
	if !errors.As(err, &cfgErr) {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/version" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"version": "17.0.0"}`))
	}))

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
}

func TestListResourcesPagination(t *testing.T) {
	var pages []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/42/issues" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Private-Token"); got != "test-token" {
			t.Errorf("token header = %q", got)
		}

		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "1":
			w.Header().Set("X-Next-Page", "2")
			_, _ = w.Write([]byte(`[{"iid": 1, "title": "first"}, {"iid": 2, "title": "second"}]`))
		case "2":
			_, _ = w.Write([]byte(`[{"iid": 3, "title": "third"}]`))
		default:
			t.Errorf("unexpected page %q", page)
		}
	}))

	resources, err := client.ListResources(context.Background(), ResourceTypeIssue, SourceTypeProject, 42)
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(resources) != 3 {
		t.Fatalf("got %d resources, want 3", len(resources))
	}
	if len(pages) != 2 {
		t.Errorf("fetched pages %v, want 2 requests", pages)
	}
	for _, r := range resources {
		if r.Type != ResourceTypeIssue {
			t.Errorf("resource %d type = %q", r.IID, r.Type)
		}
	}
}

func TestListResourcesGroupPath(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/7/merge_requests" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	if _, err := client.ListResources(context.Background(), ResourceTypeMergeRequest, SourceTypeGroup, 7); err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
}

func TestListResourcesBranches(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/42/repository/branches" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"name": "main", "merged": false, "commit": {"committed_date": "2026-01-02T03:04:05Z", "author_name": "alice"}},
			{"name": "old-work", "merged": true, "commit": {"committed_date": "2025-06-01T00:00:00Z"}}
		]`))
	}))

	branches, err := client.ListResources(context.Background(), ResourceTypeBranch, SourceTypeProject, 42)
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("got %d branches, want 2", len(branches))
	}

	main := branches[0]
	if main.Type != ResourceTypeBranch || main.Name != "main" || main.State != StateOpened {
		t.Errorf("branch = %+v", main)
	}
	if main.ProjectID != 42 {
		t.Errorf("ProjectID = %d", main.ProjectID)
	}
	if main.CreatedAt != main.UpdatedAt || main.CreatedAt.IsZero() {
		t.Errorf("branch timestamps = %v / %v", main.CreatedAt, main.UpdatedAt)
	}
	if main.Author.Name != "alice" {
		t.Errorf("author = %+v", main.Author)
	}
	if branches[1].State != StateMerged {
		t.Errorf("merged branch state = %q", branches[1].State)
	}
}

func TestListResourcesUnsupported(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	}))

	tests := []struct {
		name string
		rt   ResourceType
		st   SourceType
	}{
		{"branches of a group", ResourceTypeBranch, SourceTypeGroup},
		{"unknown resource type", ResourceType("epics"), SourceTypeProject},
		{"unknown source type", ResourceTypeIssue, SourceType("namespaces")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ListResources(context.Background(), tt.rt, tt.st, 1)
			var unsupported *UnsupportedResourceError
			if !errors.As(err, &unsupported) {
				t.Errorf("error = %v, want *UnsupportedResourceError", err)
			}
		})
	}
}

func TestGetResource(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/42/issues/7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"iid": 7, "title": "flaky test", "state": "opened", "labels": ["bug"]}`))
	}))

	res, err := client.GetResource(context.Background(), ResourceTypeIssue, SourceTypeProject, 42, 7)
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if res.IID != 7 || res.Type != ResourceTypeIssue || res.Title != "flaky test" {
		t.Errorf("resource = %+v", res)
	}
}

func TestGetResourceUnsupported(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	}))

	var unsupported *UnsupportedResourceError
	if _, err := client.GetResource(context.Background(), ResourceTypeBranch, SourceTypeProject, 42, 1); !errors.As(err, &unsupported) {
		t.Errorf("branch lookup error = %v", err)
	}
	if _, err := client.GetResource(context.Background(), ResourceTypeIssue, SourceTypeGroup, 42, 1); !errors.As(err, &unsupported) {
		t.Errorf("group lookup error = %v", err)
	}
}

func TestEditResourceLabelSerialization(t *testing.T) {
	var bodies []map[string]json.RawMessage
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.Path != "/projects/42/merge_requests/3" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		bodies = append(bodies, body)
	}))

	// A pointer to an empty slice must serialize as labels: [] so the
	// forge clears the label set; a nil pointer must omit the field.
	empty := []string{}
	err := client.EditResource(context.Background(), ResourceTypeMergeRequest, 42, 3, &EditRequest{Labels: &empty})
	if err != nil {
		t.Fatalf("EditResource failed: %v", err)
	}
	err = client.EditResource(context.Background(), ResourceTypeMergeRequest, 42, 3, &EditRequest{StateEvent: "close"})
	if err != nil {
		t.Fatalf("EditResource failed: %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("got %d requests, want 2", len(bodies))
	}
	if string(bodies[0]["labels"]) != "[]" {
		t.Errorf("empty labels serialized as %s, want []", bodies[0]["labels"])
	}
	if _, present := bodies[1]["labels"]; present {
		t.Error("nil labels should be omitted from the body")
	}
	if string(bodies[1]["state_event"]) != `"close"` {
		t.Errorf("state_event = %s", bodies[1]["state_event"])
	}
}

func TestEditResourceRejectsBranches(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	}))

	var unsupported *UnsupportedResourceError
	err := client.EditResource(context.Background(), ResourceTypeBranch, 42, 1, &EditRequest{})
	if !errors.As(err, &unsupported) {
		t.Errorf("error = %v", err)
	}
}

func TestCreateNote(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/projects/42/issues/7/notes" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var note NoteRequest
		if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if note.Body != "ping @alice" {
			t.Errorf("note body = %q", note.Body)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	if err := client.CreateNote(context.Background(), ResourceTypeIssue, 42, 7, &NoteRequest{Body: "ping @alice"}); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
}

func TestCreateIssueEscapesProjectPath(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/projects/ops%2Freports/issues" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"iid": 99, "title": "Weekly report"}`))
	}))

	res, err := client.CreateIssue(context.Background(), "ops/reports", &IssueRequest{Title: "Weekly report"})
	if err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if res.IID != 99 || res.Type != ResourceTypeIssue {
		t.Errorf("resource = %+v", res)
	}
}

func TestMoveIssue(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/projects/42/issues/7/move" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["to_project_path"] != "team/other" {
			t.Errorf("body = %v", body)
		}
	}))

	if err := client.MoveIssue(context.Background(), 42, 7, "team/other"); err != nil {
		t.Fatalf("MoveIssue failed: %v", err)
	}
}

func TestDeleteBranchEscapesName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.EscapedPath() != "/projects/42/repository/branches/feature%2Fold" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.DeleteBranch(context.Background(), 42, "feature/old"); err != nil {
		t.Fatalf("DeleteBranch failed: %v", err)
	}
}

func TestMergeMergeRequest(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/projects/42/merge_requests/3/merge" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var opts MergeOptions
		_ = json.NewDecoder(r.Body).Decode(&opts)
		if !opts.WhenPipelineSucceeds {
			t.Error("merge_when_pipeline_succeeds not set")
		}
	}))

	err := client.MergeMergeRequest(context.Background(), 42, 3, &MergeOptions{WhenPipelineSucceeds: true})
	if err != nil {
		t.Fatalf("MergeMergeRequest failed: %v", err)
	}
}

func TestCancelMerge(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/42/merge_requests/3/cancel_merge_when_pipeline_succeeds" {
			t.Errorf("path = %q", r.URL.Path)
		}
	}))

	if err := client.CancelMerge(context.Background(), 42, 3); err != nil {
		t.Fatalf("CancelMerge failed: %v", err)
	}
}

func TestGroupMembers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/7/members/all" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"id": 1, "username": "alice"}, {"id": 2, "username": "bob"}]`))
	}))

	members, err := client.GroupMembers(context.Background(), 7)
	if err != nil {
		t.Fatalf("GroupMembers failed: %v", err)
	}
	if len(members) != 2 || members[0].Username != "alice" {
		t.Errorf("members = %+v", members)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"message": "401 Unauthorized"}`,
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("error type = %T", err)
				}
				if authErr.Message != "401 Unauthorized" {
					t.Errorf("message = %q", authErr.Message)
				}
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   `{"error": "insufficient_scope"}`,
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("error type = %T", err)
				}
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"message": "404 Not Found"}`,
			check: func(t *testing.T, err error) {
				var notFound *NotFoundError
				if !errors.As(err, &notFound) {
					t.Fatalf("error type = %T", err)
				}
				if !strings.Contains(notFound.Path, "/projects/42/issues/7") {
					t.Errorf("path = %q", notFound.Path)
				}
			},
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "30"},
			body:    `{"message": "rate limit exceeded"}`,
			check: func(t *testing.T, err error) {
				var rateErr *RateLimitError
				if !errors.As(err, &rateErr) {
					t.Fatalf("error type = %T", err)
				}
				if rateErr.RetryAfter != 30*time.Second {
					t.Errorf("RetryAfter = %s", rateErr.RetryAfter)
				}
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `boom`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error type = %T", err)
				}
				if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "boom" {
					t.Errorf("error = %+v", apiErr)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := client.GetResource(context.Background(), ResourceTypeIssue, SourceTypeProject, 42, 7)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

type recordedRequest struct {
	method string
	status int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeRecorder) ForgeRequest(method string, status int, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method: method, status: status})
}

func TestRequestRecorder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/projects/42/issues/404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"iid": 7}`))
	}))

	recorder := &fakeRecorder{}
	client.SetMetrics(recorder)

	if _, err := client.GetResource(context.Background(), ResourceTypeIssue, SourceTypeProject, 42, 7); err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if _, err := client.GetResource(context.Background(), ResourceTypeIssue, SourceTypeProject, 42, 404); err == nil {
		t.Fatal("expected not-found error")
	}

	want := []recordedRequest{
		{method: http.MethodGet, status: http.StatusOK},
		{method: http.MethodGet, status: http.StatusNotFound},
	}
	if len(recorder.requests) != len(want) {
		t.Fatalf("recorded %d requests, want %d", len(recorder.requests), len(want))
	}
	for i, req := range recorder.requests {
		if req != want[i] {
			t.Errorf("request %d = %+v, want %+v", i, req, want[i])
		}
	}
}
