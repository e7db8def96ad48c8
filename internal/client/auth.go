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
	"strings"

	"taskboard-go/internal/config"
	"taskboard-go/internal/model"
)

// LoginErrorKind classifies a failed login for display.
type LoginErrorKind string

// Login failure kinds.
const (
	LoginUnreachable        LoginErrorKind = "unreachable"
	LoginInvalidCredentials LoginErrorKind = "invalid_credentials"
	LoginServerError        LoginErrorKind = "server"
	LoginBadResponse        LoginErrorKind = "bad_response"
)

// LoginError is returned by AuthClient.Login and AuthClient.Register for
// every failed attempt.
type LoginError struct {
	Op      string // "login" or "register"; empty reads as "login"
	Kind    LoginErrorKind
	Status  int    // HTTP status, 0 when no response was received
	Message string // server-provided message, if any
	Err     error
}

func (e *LoginError) Error() string {
	op := e.Op
	if op == "" {
		op = "login"
	}
	var b strings.Builder
	b.WriteString(op)
	b.WriteString(" failed: ")
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *LoginError) Unwrap() error { return e.Err }

// IsLoginKind reports whether err is a *LoginError of the given kind.
func IsLoginKind(err error, kind LoginErrorKind) bool {
	var le *LoginError
	return errors.As(err, &le) && le.Kind == kind
}

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// AuthClient posts credentials to the backend auth endpoints.
type AuthClient struct {
	httpClient  *http.Client
	loginURL    string
	registerURL string
	logger      *slog.Logger
}

// NewAuthClient creates an AuthClient for <api.base_url><api.endpoints.auth>/{login,register}.
func NewAuthClient(cfg *config.Config, logger *slog.Logger) *AuthClient {
	return &AuthClient{
		httpClient:  newHTTPClient(cfg.API.TimeoutSeconds, 2),
		loginURL:    joinURL(cfg.API.BaseURL, cfg.API.Endpoints.Auth, "login"),
		registerURL: joinURL(cfg.API.BaseURL, cfg.API.Endpoints.Auth, "register"),
		logger:      logger.With("component", "auth_client"),
	}
}

// Login exchanges credentials for a token and user. It never retries.
func (c *AuthClient) Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error) {
	c.logger.Debug("login request", "url", c.loginURL, "email", creds.Email)

	body, status, err := c.post(ctx, "login", c.loginURL, creds)
	if err != nil {
		return nil, err
	}

	var out model.LoginResponse
	if err := json.Unmarshal(model.Unwrap(body), &out); err != nil {
		return nil, &LoginError{Op: "login", Kind: LoginBadResponse, Status: status, Err: err}
	}
	if out.Token == "" || out.User == nil {
		return nil, &LoginError{
			Op:     "login",
			Kind:   LoginBadResponse,
			Status: status,
			Err:    errors.New("response is missing token or user"),
		}
	}
	return &out, nil
}

// Register creates an account. The returned token, if any, is not stored;
// signing up does not log the caller in.
func (c *AuthClient) Register(ctx context.Context, reg model.Registration) (*model.RegisterResponse, error) {
	c.logger.Debug("register request", "url", c.registerURL, "email", reg.Email)

	body, status, err := c.post(ctx, "register", c.registerURL, reg)
	if err != nil {
		return nil, err
	}

	var out model.RegisterResponse
	if err := json.Unmarshal(model.Unwrap(body), &out); err != nil {
		return nil, &LoginError{Op: "register", Kind: LoginBadResponse, Status: status, Err: err}
	}
	if out.User == nil {
		return nil, &LoginError{
			Op:     "register",
			Kind:   LoginBadResponse,
			Status: status,
			Err:    errors.New("response is missing user"),
		}
	}
	return &out, nil
}

// post sends payload as JSON and returns the 2xx body. Every failure is a
// *LoginError tagged with op.
func (c *AuthClient) post(ctx context.Context, op, url string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &LoginError{Op: op, Kind: LoginUnreachable, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, resp.StatusCode, &LoginError{
			Op:      op,
			Kind:    classifyStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: errorMessage(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &LoginError{Op: op, Kind: LoginUnreachable, Status: resp.StatusCode, Err: err}
	}
	return body, resp.StatusCode, nil
}

// classifyStatus maps a non-2xx auth answer to a failure kind. Only answers
// about the submitted data count as invalid credentials; a missing route is
// a server fault.
func classifyStatus(status int) LoginErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusConflict, http.StatusUnprocessableEntity:
		return LoginInvalidCredentials
	}
	return LoginServerError
}

// errorMessage extracts a human-readable message from a JSON error body.
func errorMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		return env.Error
	}
	return strings.TrimSpace(string(body))
}

// joinURL appends path segments to base with exactly one slash between each.
func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		out += "/" + p
	}
	return out
}
