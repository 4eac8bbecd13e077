// Package authclient is the client side of the backend's auth surface: it
// exchanges a provider credential for a session token and fetches the
// authenticated user for an existing token.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrInvalidInput indicates the caller supplied no provider credential.
	ErrInvalidInput = errors.New("provider credential is required")

	// ErrAuthRejected indicates the backend rejected the provider credential
	// as invalid, expired, or issued for the wrong audience.
	ErrAuthRejected = errors.New("provider credential rejected")

	// ErrServer covers every other login failure: non-2xx statuses and
	// transport-level errors alike.
	ErrServer = errors.New("authentication service unavailable")
)

// FetchStatus tags the tri-state outcome of FetchCurrentUser. Only Rejected
// may destroy an existing session; Indeterminate is indistinguishable from
// transient connectivity loss and must never be treated as a rejection.
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchRejected
	FetchIndeterminate
)

// FetchResult is the outcome of a current-user lookup. StatusCode is the raw
// HTTP status, or 0 when the request never produced a response.
type FetchResult struct {
	Status     FetchStatus
	StatusCode int
	User       *models.User
	Err        error
}

// LoginResult is a successful credential exchange.
type LoginResult struct {
	Token string
	User  *models.User
}

// Client talks to the backend auth endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the backend at baseURL. A zero timeout defaults
// to 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type authResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
	Message string       `json:"message"`
}

// ExchangeProviderCredential sends the provider-issued ID token to the
// backend, which verifies it against Google and issues a session token.
func (c *Client) ExchangeProviderCredential(ctx context.Context, idToken string) (*LoginResult, error) {
	if idToken == "" {
		return nil, ErrInvalidInput
	}

	body, err := json.Marshal(map[string]string{"idToken": idToken})
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/google", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("login request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close response body", zap.Error(closeErr))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrServer, err)
	}

	var parsed authResponse
	// The error envelope carries a human-readable message; a parse failure
	// here degrades to the generic error text.
	_ = json.Unmarshal(data, &parsed)

	switch {
	case resp.StatusCode == http.StatusOK && parsed.Token != "" && parsed.User != nil:
		return &LoginResult{Token: parsed.Token, User: parsed.User}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, wrapMessage(ErrAuthRejected, parsed.Message)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, wrapMessage(ErrInvalidInput, parsed.Message)
	default:
		return nil, wrapMessage(ErrServer, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
}

// FetchCurrentUser fetches the authoritative user record for a session
// token. The result distinguishes success, authoritative rejection (401) and
// indeterminate failure; callers decide what each outcome means for session
// state.
func (c *Client) FetchCurrentUser(ctx context.Context, token string) FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return FetchResult{Status: FetchIndeterminate, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response at all: report status 0 so the caller can tell this
		// apart from any server-sent status.
		return FetchResult{Status: FetchIndeterminate, StatusCode: 0, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close response body", zap.Error(closeErr))
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed authResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.User == nil {
			// Malformed success payload is indeterminate, not a rejection.
			return FetchResult{Status: FetchIndeterminate, StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed user payload")}
		}
		return FetchResult{Status: FetchOK, StatusCode: resp.StatusCode, User: parsed.User}
	case http.StatusUnauthorized:
		return FetchResult{Status: FetchRejected, StatusCode: resp.StatusCode}
	default:
		return FetchResult{
			Status:     FetchIndeterminate,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
}

func wrapMessage(sentinel error, message string) error {
	if message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}
