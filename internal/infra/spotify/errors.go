package spotify

import (
	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
)

// Error taxonomy. Callers match with errors.Is; transport-level causes
// are attached with errors.Mark so both the sentinel and the underlying
// error survive wrapping.
var (
	ErrAuthExchangeFailed = errors.New("authorization code exchange failed")
	ErrNoRefreshToken     = errors.New("no refresh token held")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInsufficientScope  = errors.New("insufficient scope")
	ErrReorderFailed      = errors.New("playlist reorder failed")
	ErrDeleteFailed       = errors.New("track delete failed")
	ErrInvalidResponse    = errors.New("invalid API response")
)

// statusOf extracts the HTTP status from an API error, or 0 when the
// error carries none.
func statusOf(err error) int {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
