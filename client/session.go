// Package client provides a small API client for the IO manager with a
// session state controller mirroring the server's cookie-based auth flow.
package client

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Status describes what the controller currently knows about the session.
type Status int

const (
	// StatusUnknown is the initial state before any probe has completed.
	StatusUnknown Status = iota
	// StatusAuthenticated means the last probe confirmed a live session.
	StatusAuthenticated
	// StatusAnonymous means no session was ever established in this controller.
	StatusAnonymous
	// StatusExpired means a previously confirmed session stopped being accepted.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// SessionController tracks authentication state against the server. It is
// safe for concurrent use. A 401 only counts as an expiry if the controller
// had previously observed an authenticated session; an initial 401 just
// means the user never logged in.
type SessionController struct {
	baseURL string
	client  *http.Client

	mu            sync.Mutex
	status        Status
	authenticated bool
}

// NewSessionController builds a controller probing the server at baseURL.
// When httpClient is nil a default with a 10 second timeout is used; pass a
// client with a cookie jar so the auth cookies survive between calls.
func NewSessionController(baseURL string, httpClient *http.Client) *SessionController {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SessionController{
		baseURL: baseURL,
		client:  httpClient,
		status:  StatusUnknown,
	}
}

// Status returns the last observed session state.
func (c *SessionController) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Expired reports whether a previously live session was rejected.
func (c *SessionController) Expired() bool {
	return c.Status() == StatusExpired
}

// CheckSession probes the current-identity endpoint and updates the state.
// It is non-mutating on the server and intended to be called before
// navigation so an expired session surfaces before committing to it.
// Transport errors leave the current state untouched.
func (c *SessionController) CheckSession(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/me", nil)
	if err != nil {
		return c.Status(), err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		// Assume still valid on connectivity loss rather than forcing a logout.
		return c.Status(), err
	}
	defer resp.Body.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case resp.StatusCode == http.StatusOK:
		c.status = StatusAuthenticated
		c.authenticated = true
	case resp.StatusCode == http.StatusUnauthorized && c.authenticated:
		c.status = StatusExpired
	case resp.StatusCode == http.StatusUnauthorized:
		c.status = StatusAnonymous
	}
	return c.status, nil
}

// MarkAuthenticated records a successful login performed outside the
// controller, so a later 401 is classified as an expiry.
func (c *SessionController) MarkAuthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusAuthenticated
	c.authenticated = true
}

// Reset returns the controller to its initial state, for use after an
// explicit logout.
func (c *SessionController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusUnknown
	c.authenticated = false
}
