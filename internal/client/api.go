package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"taskboard-go/internal/config"
	"taskboard-go/internal/model"
)

// ErrNotAuthenticated is returned when a REST call is attempted without a session token.
var ErrNotAuthenticated = errors.New("user is not authenticated; log in first")

// ErrUnknownResource is returned for a resource name with no configured endpoint.
var ErrUnknownResource = errors.New("unknown resource")

// Resource names a backend collection.
type Resource string

// Backend collections.
const (
	Projects Resource = "projects"
	Stories  Resource = "stories"
	Tasks    Resource = "tasks"
	Users    Resource = "users"
)

// Resources lists every collection in display order.
var Resources = []Resource{Projects, Stories, Tasks, Users}

// TokenSource supplies the current bearer token; "" means not logged in.
type TokenSource interface {
	Token() string
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Status)
}

// APIClient performs bearer-authenticated CRUD calls against the backend.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	endpoints  map[Resource]string
	healthURL  string
	tokens     TokenSource
	logger     *slog.Logger
}

// NewAPIClient creates an APIClient that reads its token from tokens on every call.
func NewAPIClient(cfg *config.Config, tokens TokenSource, logger *slog.Logger) *APIClient {
	ep := cfg.API.Endpoints
	return &APIClient{
		httpClient: newHTTPClient(cfg.API.TimeoutSeconds, 4),
		baseURL:    cfg.API.BaseURL,
		endpoints: map[Resource]string{
			Projects: ep.Projects,
			Stories:  ep.Stories,
			Tasks:    ep.Tasks,
			Users:    ep.Users,
		},
		healthURL: joinURL(cfg.API.BaseURL, ep.Health),
		tokens:    tokens,
		logger:    logger.With("component", "api_client"),
	}
}

// List returns the unwrapped payload of GET /<resource>.
func (c *APIClient) List(ctx context.Context, r Resource) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, r, "", nil)
}

// Get returns the unwrapped payload of GET /<resource>/<id>.
func (c *APIClient) Get(ctx context.Context, r Resource, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, r, id, nil)
}

// Create POSTs body to /<resource>.
func (c *APIClient) Create(ctx context.Context, r Resource, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, r, "", body)
}

// Update PUTs body to /<resource>/<id>.
func (c *APIClient) Update(ctx context.Context, r Resource, id string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, r, id, body)
}

// Delete removes /<resource>/<id>.
func (c *APIClient) Delete(ctx context.Context, r Resource, id string) error {
	_, err := c.do(ctx, http.MethodDelete, r, id, nil)
	return err
}

// Health calls the backend health endpoint. It needs no session.
func (c *APIClient) Health(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.healthURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("read health response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Method: http.MethodGet, URL: c.healthURL, Status: resp.StatusCode, Message: errorMessage(data)}
	}
	return model.Unwrap(data), nil
}

// ListProjects decodes GET /projects.
func (c *APIClient) ListProjects(ctx context.Context) ([]model.Project, error) {
	return listAs[model.Project](ctx, c, Projects)
}

// ListStories decodes GET /stories.
func (c *APIClient) ListStories(ctx context.Context) ([]model.Story, error) {
	return listAs[model.Story](ctx, c, Stories)
}

// ListTasks decodes GET /tasks.
func (c *APIClient) ListTasks(ctx context.Context) ([]model.Task, error) {
	return listAs[model.Task](ctx, c, Tasks)
}

// ListUsers decodes GET /users.
func (c *APIClient) ListUsers(ctx context.Context) ([]model.User, error) {
	return listAs[model.User](ctx, c, Users)
}

func listAs[T any](ctx context.Context, c *APIClient, r Resource) ([]T, error) {
	raw, err := c.List(ctx, r)
	if err != nil {
		return nil, err
	}
	var out []T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r, err)
	}
	return out, nil
}

func (c *APIClient) do(ctx context.Context, method string, r Resource, id string, body any) (json.RawMessage, error) {
	endpoint, ok := c.endpoints[r]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, r)
	}

	// Checked before any I/O so an unauthenticated call never reaches the wire.
	token := c.tokens.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	target := joinURL(c.baseURL, endpoint)
	if id != "" {
		target = joinURL(target, url.PathEscape(id))
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", r, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", r, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", "method", method, "url", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Method: method, URL: target, Status: resp.StatusCode, Message: errorMessage(data)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", r, err)
	}
	return model.Unwrap(data), nil
}
