// Package spotify provides the typed Spotify Web API client with the
// credential lifecycle baked in: authorization-code exchange, refresh
// on expiry, and forced logout on revoked tokens.
package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/trackdeck/trackdeck/internal/domain/history"
	"github.com/trackdeck/trackdeck/internal/domain/playlist"
	"github.com/trackdeck/trackdeck/internal/infra/secrets"
)

const (
	// Spotify caps page sizes at 50 for playlists and 100 for tracks.
	maxPlaylistPageLimit = 50
	maxTrackPageLimit    = 100
)

// User is the cached profile of the signed-in user.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Overrides for tests; zero values select the real endpoints.
	TokenURL   string
	APIBaseURL string
	HTTPClient *http.Client
}

// Client is the Spotify API client. Construct one per process and pass
// it by reference; it owns the transient token copy and writes every
// token mutation back to the secret store.
type Client struct {
	oauth *oauth2.Config
	store *secrets.Store
	api   *spotify.Client

	mu           sync.Mutex
	bundle       *secrets.TokenBundle
	user         *User
	refreshGroup singleflight.Group
}

// New creates a client and restores any persisted session from the
// secret store. A missing session is not an error; calls will fail with
// ErrNotAuthenticated until ExchangeCode succeeds.
func New(cfg Config, store *secrets.Store) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify client credentials are required")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: tokenURL,
			},
			Scopes: []string{
				spotifyauth.ScopePlaylistReadPrivate,
				spotifyauth.ScopePlaylistReadCollaborative,
				spotifyauth.ScopePlaylistModifyPublic,
				spotifyauth.ScopePlaylistModifyPrivate,
				spotifyauth.ScopeUserReadRecentlyPlayed,
			},
		},
		store: store,
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil {
		base = cfg.HTTPClient.Transport
	}
	httpClient := &http.Client{Transport: &authTransport{base: base, client: c}}

	apiOpts := []spotify.ClientOption{}
	if cfg.APIBaseURL != "" {
		apiOpts = append(apiOpts, spotify.WithBaseURL(cfg.APIBaseURL))
	}
	c.api = spotify.New(httpClient, apiOpts...)

	c.restore()
	return c, nil
}

// restore loads a previously persisted session, if any.
func (c *Client) restore() {
	bundle, err := c.store.LoadTokens()
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			zlog.Warn().Err(err).Msg("Failed to load stored tokens")
		}
		return
	}
	c.bundle = &bundle

	if blob, err := c.store.LoadUser(); err == nil {
		var u User
		if err := json.Unmarshal(blob, &u); err == nil {
			c.user = &u
		}
	}
}

// AuthURL returns the authorization URL to open in the user's browser.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// CallbackCode extracts the authorization code from a redirect query.
// The redirect carries either code (success) or error (denial).
func CallbackCode(query url.Values) (string, error) {
	if e := query.Get("error"); e != "" {
		return "", errors.Mark(errors.Newf("authorization denied: %s", e), ErrAuthExchangeFailed)
	}
	code := query.Get("code")
	if code == "" {
		return "", errors.Mark(errors.New("callback carries neither code nor error"), ErrAuthExchangeFailed)
	}
	return code, nil
}

// ExchangeCode trades an authorization code for a token bundle,
// persists it, and fetches the current user profile.
func (c *Client) ExchangeCode(ctx context.Context, code string) error {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "authorization code grant"), ErrAuthExchangeFailed)
	}

	bundle := secrets.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if err := c.store.SaveTokens(bundle); err != nil {
		return err
	}
	c.mu.Lock()
	c.bundle = &bundle
	c.mu.Unlock()

	profile, err := c.api.CurrentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch current user")
	}
	user := User{ID: profile.ID, DisplayName: profile.DisplayName}
	blob, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "encode user")
	}
	if err := c.store.SaveUser(blob); err != nil {
		return err
	}
	c.mu.Lock()
	c.user = &user
	c.mu.Unlock()

	zlog.Info().Str("user", user.DisplayName).Msg("Signed in")
	return nil
}

// Authenticated reports whether a token bundle is held. The bundle may
// still be expired; the next call refreshes or logs out.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bundle != nil
}

// CurrentUser returns the cached user profile.
func (c *Client) CurrentUser() (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

// Logout clears the session and every stored secret.
func (c *Client) Logout() {
	c.forceLogout("user sign-out")
}

// PlaylistsPage fetches one page of the user's playlists. Returns the
// page and the remote total.
func (c *Client) PlaylistsPage(ctx context.Context, offset, limit int) ([]playlist.Playlist, int, error) {
	if limit <= 0 || limit > maxPlaylistPageLimit {
		limit = maxPlaylistPageLimit
	}
	page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, 0, wrapAPIError(err, "fetch playlists page")
	}

	playlists := make([]playlist.Playlist, 0, len(page.Playlists))
	for i := range page.Playlists {
		playlists = append(playlists, convertPlaylist(&page.Playlists[i]))
	}
	return playlists, int(page.Total), nil
}

// AllPlaylists follows pagination until the playlist list is exhausted.
func (c *Client) AllPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	var all []playlist.Playlist
	offset := 0
	for {
		page, total, err := c.PlaylistsPage(ctx, offset, maxPlaylistPageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		offset += len(page)
		if len(page) == 0 || offset >= total {
			return all, nil
		}
	}
}

// TracksPage fetches one page of playlist entries. Returns the entries
// and the remote total. Satisfies editor.TrackSource.
func (c *Client) TracksPage(ctx context.Context, playlistID string, offset, limit int) ([]playlist.Entry, int, error) {
	if limit <= 0 || limit > maxTrackPageLimit {
		limit = maxTrackPageLimit
	}
	page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, 0, wrapAPIError(err, "fetch tracks page")
	}

	entries := make([]playlist.Entry, 0, len(page.Items))
	for i := range page.Items {
		entries = append(entries, convertEntry(&page.Items[i]))
	}
	return entries, int(page.Total), nil
}

// AllTracks follows pagination until the playlist's entries are
// exhausted.
func (c *Client) AllTracks(ctx context.Context, playlistID string) ([]playlist.Entry, error) {
	var all []playlist.Entry
	offset := 0
	for {
		page, total, err := c.TracksPage(ctx, playlistID, offset, maxTrackPageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		offset += len(page)
		if len(page) == 0 || offset >= total {
			return all, nil
		}
	}
}

// RecentlyPlayed fetches the user's play history. Requires the
// recently-played scope; a 403 surfaces as ErrInsufficientScope so
// callers can treat missing history as non-fatal.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int, after, before int64) ([]history.Play, error) {
	opts := spotify.RecentlyPlayedOptions{
		Limit:         spotify.Numeric(limit),
		AfterEpochMs:  after,
		BeforeEpochMs: before,
	}
	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &opts)
	if err != nil {
		if statusOf(err) == http.StatusForbidden {
			return nil, errors.Mark(err, ErrInsufficientScope)
		}
		return nil, wrapAPIError(err, "fetch recently played")
	}

	plays := make([]history.Play, 0, len(items))
	for i := range items {
		plays = append(plays, convertPlay(&items[i]))
	}
	return plays, nil
}

// Reorder moves a contiguous range of rangeLength tracks starting at
// rangeStart to immediately before insertBefore.
func (c *Client) Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore, rangeLength int) error {
	_, err := c.api.ReorderPlaylistTracks(ctx, spotify.ID(playlistID), spotify.PlaylistReorderOptions{
		RangeStart:   spotify.Numeric(rangeStart),
		InsertBefore: spotify.Numeric(insertBefore),
		RangeLength:  spotify.Numeric(rangeLength),
	})
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			return ErrNotAuthenticated
		}
		return errors.Mark(errors.Wrap(err, "reorder playlist range"), ErrReorderFailed)
	}
	return nil
}

// RemoveTrack removes every occurrence of a track URI from the
// playlist. The API has no finer-grained delete; callers dealing with
// duplicate entries must account for that.
func (c *Client) RemoveTrack(ctx context.Context, playlistID, uri string) error {
	id := trackIDFromURI(uri)
	if id == "" {
		return errors.Mark(errors.Newf("cannot derive track ID from URI %q", uri), ErrDeleteFailed)
	}
	_, err := c.api.RemoveTracksFromPlaylist(ctx, spotify.ID(playlistID), spotify.ID(id))
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			return ErrNotAuthenticated
		}
		return errors.Mark(errors.Wrap(err, "remove track"), ErrDeleteFailed)
	}
	return nil
}

// wrapAPIError classifies a zmb3 client error into the taxonomy:
// authentication failures pass through, undecodable bodies surface as
// ErrInvalidResponse, everything else wraps with the call context and
// keeps the HTTP status reachable via errors.As.
func wrapAPIError(err error, msg string) error {
	if errors.Is(err, ErrNotAuthenticated) {
		return ErrNotAuthenticated
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return errors.Mark(errors.Wrap(err, msg), ErrInvalidResponse)
	}
	return errors.Wrap(err, msg)
}
