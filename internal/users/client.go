package users

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 8 << 20

// HTTPSource fetches the directory from the remote users endpoint.
type HTTPSource struct {
	usersURL   string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource constructs a source rooted at baseURL. The users collection is
// resolved relative to it, so "https://host/api" and "https://host/api/" both
// fetch "https://host/api/users".
func NewHTTPSource(baseURL string, timeout time.Duration) (*HTTPSource, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("users: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("users: base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		usersURL: base.ResolveReference(&url.URL{Path: "users"}).String(),
		baseURL:  base.String(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchAll performs GET /users and decodes the array body.
func (s *HTTPSource) FetchAll(ctx context.Context) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.usersURL, nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "get users", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &TransportError{Op: "get users", StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &TransportError{Op: "read body", Err: err}
	}
	if len(body) > maxResponseBytes {
		return nil, &DecodeError{Index: -1, Err: fmt.Errorf("body exceeds %d bytes", maxResponseBytes)}
	}
	return decodeUsers(body)
}

// Ping checks that the remote host answers at all.
func (s *HTTPSource) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL, nil)
	if err != nil {
		return &TransportError{Op: "build request", Err: err}
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "ping", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 500 {
		return &TransportError{Op: "ping", StatusCode: resp.StatusCode}
	}
	return nil
}

// wireUser mirrors the remote payload. Pointers let validation tell a missing
// field from a zero value.
type wireUser struct {
	ID        *int64  `json:"id" validate:"required"`
	Name      *string `json:"name" validate:"required,min=1"`
	Age       *int    `json:"age" validate:"required,gte=0"`
	Interests *string `json:"interests" validate:"required"`
}

func decodeUsers(body []byte) ([]User, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &DecodeError{Index: -1, Err: errors.New("expected a JSON array")}
	}
	var raw []*wireUser
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}
	out := make([]User, 0, len(raw))
	for i, w := range raw {
		if w == nil {
			return nil, &DecodeError{Index: i, Err: errors.New("null element")}
		}
		if err := validate.Struct(w); err != nil {
			return nil, &DecodeError{Index: i, Err: err}
		}
		out = append(out, User{
			ID:        *w.ID,
			Name:      *w.Name,
			Age:       *w.Age,
			Interests: *w.Interests,
		})
	}
	return out, nil
}
