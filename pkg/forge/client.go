package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// API is the forge operation surface the triage engine depends on.
// The HTTP client implements it; tests substitute fakes.
type API interface {
	// ListResources loads all resources of the given type from a
	// project or group. It returns an UnsupportedResourceError for
	// combinations the forge cannot serve (e.g. branches of a group).
	ListResources(ctx context.Context, rt ResourceType, st SourceType, sourceID int64) ([]*Resource, error)

	// GetResource loads a single resource by its per-project sequence
	// number.
	GetResource(ctx context.Context, rt ResourceType, st SourceType, sourceID int64, iid int) (*Resource, error)

	// EditResource applies a record-replacing edit.
	EditResource(ctx context.Context, rt ResourceType, projectID int64, iid int, edit *EditRequest) error

	// CreateNote posts a new note on a resource. Notes are always
	// created, never edited.
	CreateNote(ctx context.Context, rt ResourceType, projectID int64, iid int, note *NoteRequest) error

	// CreateIssue files a new issue (used by summary policies). The
	// project is a numeric id or a full path, both accepted by the
	// forge.
	CreateIssue(ctx context.Context, project string, req *IssueRequest) (*Resource, error)

	// MoveIssue relocates an issue to the target project path.
	MoveIssue(ctx context.Context, projectID int64, iid int, targetProject string) error

	// DeleteBranch irreversibly deletes a branch.
	DeleteBranch(ctx context.Context, projectID int64, name string) error

	// MergeMergeRequest merges a merge request with the given options.
	MergeMergeRequest(ctx context.Context, projectID int64, iid int, opts *MergeOptions) error

	// CancelMerge cancels a pending merge-when-pipeline-succeeds.
	CancelMerge(ctx context.Context, projectID int64, iid int) error

	// GroupMembers lists the members of a group, including inherited
	// membership.
	GroupMembers(ctx context.Context, groupID int64) ([]User, error)
}

// ClientConfig contains configuration for the HTTP forge client.
type ClientConfig struct {
	// BaseURL is the forge API root (e.g. "https://forge.example.com/api/v4").
	BaseURL string

	// Token is the access token sent on every request.
	Token string

	// Timeout is the per-request timeout.
	// Default: 30s
	Timeout time.Duration

	// MaxIdleConns is the connection pool size.
	// Default: 20
	MaxIdleConns int

	// MaxIdleConnsPerHost limits idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration

	// PerPage is the pagination size for list calls.
	// Default: 100
	PerPage int
}

// Client is the HTTP implementation of the API interface.
// It maintains a pooled HTTP client and translates forge error
// responses into typed errors.
type Client struct {
	config  ClientConfig
	client  *http.Client
	logger  *slog.Logger
	metrics RequestRecorder
}

// RequestRecorder observes forge API request latency. Nil disables
// instrumentation.
type RequestRecorder interface {
	ForgeRequest(method string, status int, elapsed time.Duration)
}

// SetMetrics installs a request recorder. Call before first use.
func (c *Client) SetMetrics(m RequestRecorder) {
	c.metrics = m
}

// NewClient creates a new forge HTTP client.
func NewClient(config ClientConfig, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, &ConfigError{Field: "base_url", Message: "base URL is required"}
	}
	if config.Token == "" {
		return nil, &ConfigError{Field: "token", Message: "access token is required"}
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 20
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}
	if config.PerPage == 0 {
		config.PerPage = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	c := &Client{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		logger: logger,
	}

	logger.Debug("forge client initialized",
		"base_url", config.BaseURL,
		"timeout", config.Timeout,
	)

	return c, nil
}

// Health verifies connectivity and credentials with a lightweight
// version lookup.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/version", nil, nil, nil)
	return err
}

// ListResources loads all resources of the given type from a project
// or group, following pagination until the forge reports no next page.
func (c *Client) ListResources(ctx context.Context, rt ResourceType, st SourceType, sourceID int64) ([]*Resource, error) {
	path, err := c.listPath(rt, st, sourceID)
	if err != nil {
		return nil, err
	}

	var all []*Resource
	page := 1
	for {
		query := url.Values{}
		query.Set("per_page", strconv.Itoa(c.config.PerPage))
		query.Set("page", strconv.Itoa(page))

		var (
			nextPage string
			batch    []*Resource
		)
		if rt == ResourceTypeBranch {
			var branches []branchPayload
			nextPage, err = c.do(ctx, http.MethodGet, path, query, nil, &branches)
			if err != nil {
				return nil, err
			}
			for _, b := range branches {
				batch = append(batch, b.toResource(sourceID))
			}
		} else {
			nextPage, err = c.do(ctx, http.MethodGet, path, query, nil, &batch)
			if err != nil {
				return nil, err
			}
			for _, r := range batch {
				r.Type = rt
			}
		}

		all = append(all, batch...)

		if nextPage == "" || len(batch) == 0 {
			break
		}
		page, err = strconv.Atoi(nextPage)
		if err != nil {
			break
		}
	}

	c.logger.Debug("loaded resources",
		"resource_type", rt,
		"source_type", st,
		"source_id", sourceID,
		"count", len(all),
	)

	return all, nil
}

// GetResource loads a single resource by iid.
func (c *Client) GetResource(ctx context.Context, rt ResourceType, st SourceType, sourceID int64, iid int) (*Resource, error) {
	if !rt.Valid() || rt == ResourceTypeBranch {
		return nil, &UnsupportedResourceError{ResourceType: rt, SourceType: st, Operation: "GetResource"}
	}
	if st != SourceTypeProject {
		return nil, &UnsupportedResourceError{ResourceType: rt, SourceType: st, Operation: "GetResource"}
	}

	path := fmt.Sprintf("/projects/%d/%s/%d", sourceID, rt, iid)
	var res Resource
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &res); err != nil {
		return nil, err
	}
	res.Type = rt
	return &res, nil
}

// EditResource applies a record-replacing edit to a resource.
func (c *Client) EditResource(ctx context.Context, rt ResourceType, projectID int64, iid int, edit *EditRequest) error {
	if rt != ResourceTypeIssue && rt != ResourceTypeMergeRequest {
		return &UnsupportedResourceError{ResourceType: rt, Operation: "EditResource"}
	}
	path := fmt.Sprintf("/projects/%d/%s/%d", projectID, rt, iid)
	_, err := c.do(ctx, http.MethodPut, path, nil, edit, nil)
	return err
}

// CreateNote posts a new note on a resource.
func (c *Client) CreateNote(ctx context.Context, rt ResourceType, projectID int64, iid int, note *NoteRequest) error {
	if rt != ResourceTypeIssue && rt != ResourceTypeMergeRequest {
		return &UnsupportedResourceError{ResourceType: rt, Operation: "CreateNote"}
	}
	path := fmt.Sprintf("/projects/%d/%s/%d/notes", projectID, rt, iid)
	_, err := c.do(ctx, http.MethodPost, path, nil, note, nil)
	return err
}

// CreateIssue files a new issue in the given project. The project may
// be a numeric id or a full path.
func (c *Client) CreateIssue(ctx context.Context, project string, req *IssueRequest) (*Resource, error) {
	path := fmt.Sprintf("/projects/%s/issues", url.PathEscape(project))
	var res Resource
	if _, err := c.do(ctx, http.MethodPost, path, nil, req, &res); err != nil {
		return nil, err
	}
	res.Type = ResourceTypeIssue
	return &res, nil
}

// MoveIssue relocates an issue to the target project path.
func (c *Client) MoveIssue(ctx context.Context, projectID int64, iid int, targetProject string) error {
	path := fmt.Sprintf("/projects/%d/issues/%d/move", projectID, iid)
	body := map[string]string{"to_project_path": targetProject}
	_, err := c.do(ctx, http.MethodPost, path, nil, body, nil)
	return err
}

// DeleteBranch irreversibly deletes a branch.
func (c *Client) DeleteBranch(ctx context.Context, projectID int64, name string) error {
	path := fmt.Sprintf("/projects/%d/repository/branches/%s", projectID, url.PathEscape(name))
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

// MergeMergeRequest merges a merge request with the given options.
func (c *Client) MergeMergeRequest(ctx context.Context, projectID int64, iid int, opts *MergeOptions) error {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d/merge", projectID, iid)
	_, err := c.do(ctx, http.MethodPut, path, nil, opts, nil)
	return err
}

// CancelMerge cancels a pending merge-when-pipeline-succeeds.
func (c *Client) CancelMerge(ctx context.Context, projectID int64, iid int) error {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d/cancel_merge_when_pipeline_succeeds", projectID, iid)
	_, err := c.do(ctx, http.MethodPost, path, nil, nil, nil)
	return err
}

// GroupMembers lists the members of a group, including inherited
// membership.
func (c *Client) GroupMembers(ctx context.Context, groupID int64) ([]User, error) {
	path := fmt.Sprintf("/groups/%d/members/all", groupID)
	var members []User
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// listPath resolves the list endpoint for a resource/source pair.
func (c *Client) listPath(rt ResourceType, st SourceType, sourceID int64) (string, error) {
	if !rt.Valid() {
		return "", &UnsupportedResourceError{ResourceType: rt, SourceType: st, Operation: "ListResources"}
	}
	if !st.Valid() {
		return "", &UnsupportedResourceError{ResourceType: rt, SourceType: st, Operation: "ListResources"}
	}

	if rt == ResourceTypeBranch {
		// Branches exist per repository; there is no group-level listing.
		if st != SourceTypeProject {
			return "", &UnsupportedResourceError{ResourceType: rt, SourceType: st, Operation: "ListResources"}
		}
		return fmt.Sprintf("/projects/%d/repository/branches", sourceID), nil
	}

	return fmt.Sprintf("/%s/%d/%s", st, sourceID, rt), nil
}

// do performs one HTTP request and decodes the JSON response into out
// (when non-nil). It returns the X-Next-Page header value for
// paginated list calls.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (string, error) {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Private-Token", c.config.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ForgeRequest(method, 0, time.Since(start))
		}
		return "", &APIError{Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if c.metrics != nil {
		c.metrics.ForgeRequest(method, resp.StatusCode, time.Since(start))
	}

	if resp.StatusCode >= 400 {
		return "", c.errorFromResponse(resp, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return "", &APIError{
				StatusCode: resp.StatusCode,
				Message:    "failed to decode response",
				Cause:      err,
			}
		}
	} else {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return resp.Header.Get("X-Next-Page"), nil
}

// errorFromResponse translates an HTTP error response into a typed error.
func (c *Client) errorFromResponse(resp *http.Response, path string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := parseErrorMessage(data)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Message: message}
	case http.StatusNotFound:
		return &NotFoundError{Path: path}
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter, Message: message}
	default:
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}
}

// parseErrorMessage extracts the error message from a forge error body.
func parseErrorMessage(data []byte) string {
	var payload struct {
		Message interface{} `json:"message"`
		Error   string      `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != nil {
			return fmt.Sprintf("%v", payload.Message)
		}
	}
	if len(data) > 0 {
		return string(data)
	}
	return "unknown error"
}

// branchPayload is the wire shape of a repository branch. Branches do
// not share the issue/merge-request schema, so they are normalized into
// the common Resource model here.
type branchPayload struct {
	Name   string `json:"name"`
	Merged bool   `json:"merged"`
	Commit struct {
		ID            string    `json:"id"`
		CommittedDate time.Time `json:"committed_date"`
		AuthorName    string    `json:"author_name"`
	} `json:"commit"`
	WebURL string `json:"web_url"`
}

// toResource converts a branch payload into the common Resource model.
// The last commit date stands in for both created_at and updated_at.
func (b branchPayload) toResource(projectID int64) *Resource {
	state := StateOpened
	if b.Merged {
		state = StateMerged
	}
	return &Resource{
		Type:      ResourceTypeBranch,
		ProjectID: projectID,
		Name:      b.Name,
		Title:     b.Name,
		State:     state,
		CreatedAt: b.Commit.CommittedDate,
		UpdatedAt: b.Commit.CommittedDate,
		Author:    User{Name: b.Commit.AuthorName},
		WebURL:    b.WebURL,
	}
}
