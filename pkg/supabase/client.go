/**
 * @description
 * This package provides a client for the hosted Supabase project that acts
 * as the identity and profile store for the platform. It encapsulates the
 * authenticated HTTP calls to the auth API (sign-up, sign-in, sign-out,
 * session introspection, password recovery) and to the row API backing the
 * user_profile table and the user_subscription_details view.
 *
 * Key features:
 * - Manages the project base URL and anon key.
 * - Applies a bounded timeout to every call so no flow waits indefinitely.
 * - Normalizes error bodies from both APIs into a single APIError type.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, net/url, time:
 *   standard Go libraries.
 */
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every call to the hosted store.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a row query matches nothing.
	ErrNotFound = errors.New("supabase: row not found")
	// ErrConflict is returned when an insert violates a unique constraint.
	ErrConflict = errors.New("supabase: unique constraint violated")
)

// APIError is a non-2xx response from the hosted store.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.StatusCode, e.Message)
}

// IsUserExists reports whether err is the store rejecting a sign-up because
// the email is already registered.
func IsUserExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists" {
		return true
	}
	return apiErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "already registered")
}

// Client is a client for one Supabase project.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates a new store client. A zero timeout falls back to
// DefaultTimeout.
func NewClient(baseURL, anonKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// errorBody covers the error shapes of both the auth API and the row API.
type errorBody struct {
	Code             json.RawMessage `json:"code"` // numeric on auth, string on rest
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Err              string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// do makes a request to the store and decodes the response into target when
// target is non-nil. accessToken may be empty, in which case the anon key
// authorizes the call. extraHeaders may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, accessToken string, body, target interface{}, extraHeaders map[string]string) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.anonKey)
	token := accessToken
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(resp.StatusCode, respBody)
		log.Printf("level=warn component=supabase msg=\"store returned non-success status\" method=%s path=%s status=%d code=%q", method, path, resp.StatusCode, apiErr.Code)
		if apiErr.Code == "23505" || resp.StatusCode == http.StatusConflict {
			return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
		}
		return apiErr
	}

	if target != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to unmarshal response body: %w", err)
		}
	}

	return nil
}

func parseError(status int, body []byte) *APIError {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	code := eb.ErrorCode
	if code == "" && len(eb.Code) > 0 {
		// The row API sends code as a string ("23505"); the auth API sends a
		// numeric HTTP code there, which we ignore.
		var s string
		if json.Unmarshal(eb.Code, &s) == nil {
			code = s
		}
	}
	if code == "" {
		code = eb.Err
	}

	msg := eb.Msg
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = eb.ErrorDescription
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	return &APIError{StatusCode: status, Code: code, Message: msg}
}
