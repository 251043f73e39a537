// Package apiclient is a typed HTTP client for the portal API. It maps the
// wire responses onto domain types and collapses transport failures into a
// small set of sentinel errors callers can branch on.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeffersonbalde/syborg-portal/internal/model"
)

var (
	// ErrUnauthorized means the server rejected the credentials or token.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
	// ErrForbidden means the token is valid but the role is not allowed.
	ErrForbidden = errors.New("apiclient: forbidden")
	// ErrUnavailable means the server could not be reached or answered with
	// a server-side failure. The caller's token may still be valid.
	ErrUnavailable = errors.New("apiclient: service unavailable")
	// ErrBadPayload means the server answered 200 but the body did not
	// carry a usable payload.
	ErrBadPayload = errors.New("apiclient: malformed payload")
	// ErrNotFound means the requested resource does not exist.
	ErrNotFound = errors.New("apiclient: not found")
	// ErrConflict means the request clashed with existing state.
	ErrConflict = errors.New("apiclient: conflict")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewWithHTTPClient is for tests and callers that need custom transports.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// User is the caller-facing account shape returned by the portal API.
type User struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	FirstName     string  `json:"firstname"`
	LastName      string  `json:"lastname"`
	StudentNumber *string `json:"studentNumber,omitempty"`
}

// Identity is a resolved account plus its role.
type Identity struct {
	User User
	Role model.Role
}

type LoginResult struct {
	Identity Identity
	Token    string
}

type loginWire struct {
	Status string `json:"status"`
	User   *User  `json:"user"`
	Role   string `json:"role"`
	Token  string `json:"token"`
}

type sessionWire struct {
	User *User  `json:"user"`
	Role string `json:"role"`
}

// Login exchanges credentials for a bearer token and the resolved identity.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var wire loginWire
	err := c.do(ctx, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &wire)
	if err != nil {
		return LoginResult{}, err
	}
	if wire.Status != "success" || wire.User == nil || wire.Token == "" {
		return LoginResult{}, ErrBadPayload
	}
	role, ok := model.ParseRole(wire.Role)
	if !ok {
		return LoginResult{}, ErrBadPayload
	}
	return LoginResult{
		Identity: Identity{User: *wire.User, Role: role},
		Token:    wire.Token,
	}, nil
}

// Me resolves the identity behind a stored token.
func (c *Client) Me(ctx context.Context, token string) (Identity, error) {
	var wire sessionWire
	if err := c.do(ctx, http.MethodGet, "/user", token, nil, &wire); err != nil {
		return Identity{}, err
	}
	if wire.User == nil {
		return Identity{}, ErrBadPayload
	}
	role, ok := model.ParseRole(wire.Role)
	if !ok {
		return Identity{}, ErrBadPayload
	}
	return Identity{User: *wire.User, Role: role}, nil
}

// Logout asks the server to revoke the token. A dead server is not an error
// the caller can act on, so only auth failures surface.
func (c *Client) Logout(ctx context.Context, token string) error {
	err := c.do(ctx, http.MethodPost, "/logout", token, nil, nil)
	if errors.Is(err, ErrUnavailable) {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

func pageQuery(page, perPage int, search string) string {
	values := url.Values{}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		values.Set("perPage", strconv.Itoa(perPage))
	}
	if search != "" {
		values.Set("search", search)
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}
