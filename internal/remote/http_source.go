package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"parentcompanion/internal/models"
	"parentcompanion/internal/security"
)

const maxProfileBytes = 1 << 20

// HTTPSource fetches the current user from the backend REST API using the
// session token as an OAuth2 bearer token.
type HTTPSource struct {
	endpoint string
	client   *http.Client
	now      func() time.Time
}

// NewHTTPSource builds a source for GET {baseURL}{path}. The given client
// supplies the transport and timeout; nil means http.DefaultClient.
func NewHTTPSource(baseURL, path string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &HTTPSource{
		endpoint: strings.TrimRight(baseURL, "/") + path,
		client:   client,
		now:      time.Now,
	}
}

// Endpoint returns the resolved profile URL
func (s *HTTPSource) Endpoint() string {
	return s.endpoint
}

func (s *HTTPSource) FetchCurrentUser(ctx context.Context, creds models.Credentials) (*models.UserProfile, error) {
	if !creds.HasToken() {
		return nil, fmt.Errorf("%w: no session token", ErrNotFound)
	}
	// Opaque tokens are passed through; only a readable, past expiry short-circuits.
	if info, err := security.InspectToken(creds.Token); err == nil && info.Expired(s.now()) {
		return nil, fmt.Errorf("%w: session expired at %s", ErrNotFound, info.ExpiresAt.Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	baseCtx := context.WithValue(ctx, oauth2.HTTPClient, s.client)
	client := oauth2.NewClient(baseCtx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: creds.Token,
		TokenType:   "Bearer",
	}))
	client.Timeout = s.client.Timeout

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: backend returned %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: backend returned %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}
	profile, err := DecodeProfile(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse profile: %v", ErrUnavailable, err)
	}
	return profile, nil
}
