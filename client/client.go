// Package client is a typed Go client for the SSchool HTTP API. It keeps the
// bearer token from the last login in a SessionStore and attaches it to every
// request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Ceasar-x/sschool/models"
)

const (
	StudentLanding = "/student"
	AdminLanding   = "/admin"
	LoginPath      = "/login"
)

// APIError is a non-2xx response. Message is the server's "error" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionStore
	logger     *slog.Logger
}

// NewClient builds a client for baseURL, e.g. "http://localhost:4000/api".
// httpClient and logger may be nil.
func NewClient(baseURL string, httpClient *http.Client, sessions SessionStore, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if sessions == nil {
		sessions = &MemorySessionStore{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		sessions:   sessions,
		logger:     logger,
	}
}

// LandingPath is where a user of the given role starts.
func LandingPath(role models.Role) string {
	if role == models.RoleAdmin {
		return AdminLanding
	}
	return StudentLanding
}

// Redirect returns "" when s may view a page for required, or the path to send
// the user to otherwise. An empty required role accepts any session.
func Redirect(s *Session, required models.Role) string {
	if s == nil || s.Token == "" {
		return LoginPath
	}
	if required != "" && s.User.Role != required {
		return LandingPath(s.User.Role)
	}
	return ""
}

// Session returns the stored session, or ErrNoSession.
func (c *Client) Session() (*Session, error) {
	return c.sessions.Load()
}

func (c *Client) Logout() error {
	return c.sessions.Clear()
}

type loginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}

// Login authenticates, stores the session and returns the landing path for
// the user's role.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &resp); err != nil {
		return "", err
	}
	if err := c.sessions.Save(&Session{Token: resp.Token, User: resp.User}); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return LandingPath(resp.User.Role), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, query, body, contentType, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if s, err := c.sessions.Load(); err == nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// upload posts a single file as multipart form field.
func (c *Client) upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.send(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType(), out)
}

// ListOptions are the shared paging and search parameters. Zero values are
// left to the server defaults.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Role   models.Role // users only
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	if o.Role != "" {
		v.Set("role", string(o.Role))
	}
	return v
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items       []T   `json:"items"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int64 `json:"currentPage"`
	Total       int64 `json:"total"`
}
