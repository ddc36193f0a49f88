package spotify

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/trackdeck/trackdeck/internal/infra/secrets"
)

// authTransport injects the bearer token into every API request and
// owns the credential lifecycle policy: refresh before the request when
// the token has expired, and exactly one forced-logout path triggered
// by either a failed refresh or a reactive 401 (token revoked
// server-side despite the local expiry check). There is no retry loop.
type authTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.client.accessToken(req.Context())
	if err != nil {
		return nil, err
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.base.RoundTrip(clone)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		t.client.forceLogout("request returned 401")
		return nil, ErrNotAuthenticated
	}
	return resp, nil
}

// accessToken returns a valid access token, refreshing it first when
// expired. Concurrent callers share a single in-flight refresh.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	bundle := c.bundle
	c.mu.Unlock()

	if bundle == nil {
		return "", ErrNotAuthenticated
	}
	if !bundle.Expired(time.Now()) {
		return bundle.AccessToken, nil
	}

	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		c.forceLogout("token refresh failed")
		return "", errors.Mark(err, ErrNotAuthenticated)
	}
	return v.(secrets.TokenBundle).AccessToken, nil
}

// refresh performs the refresh-token grant and persists the result.
// The refresh token is replaced only when the response rotates it.
func (c *Client) refresh(ctx context.Context) (secrets.TokenBundle, error) {
	c.mu.Lock()
	bundle := c.bundle
	c.mu.Unlock()

	if bundle == nil || bundle.RefreshToken == "" {
		return secrets.TokenBundle{}, ErrNoRefreshToken
	}
	// A concurrent caller may have refreshed while we queued.
	if !bundle.Expired(time.Now()) {
		return *bundle, nil
	}

	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: bundle.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return secrets.TokenBundle{}, errors.Mark(errors.Wrap(err, "refresh token grant"), ErrRefreshFailed)
	}

	next := secrets.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: bundle.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if token.RefreshToken != "" {
		next.RefreshToken = token.RefreshToken
	}
	if err := c.store.SaveTokens(next); err != nil {
		return secrets.TokenBundle{}, err
	}

	c.mu.Lock()
	b := next
	c.bundle = &b
	c.mu.Unlock()

	zlog.Debug().Time("expires_at", next.ExpiresAt).Msg("Access token refreshed")
	return next, nil
}

// forceLogout clears the in-memory credentials and user, and every
// stored secret.
func (c *Client) forceLogout(reason string) {
	c.mu.Lock()
	c.bundle = nil
	c.user = nil
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		zlog.Warn().Err(err).Msg("Failed to clear secret store on logout")
	}
	zlog.Warn().Str("reason", reason).Msg("Logged out")
}
