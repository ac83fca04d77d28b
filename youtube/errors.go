package youtube

import (
	"errors"
	"strings"
)

// Sentinel errors for playlist probe and fetch operations.
var (
	ErrPlaylistNotFound  = errors.New("youtube: playlist not found")
	ErrRateLimited       = errors.New("youtube: rate limited")
	ErrNetworkTimeout    = errors.New("youtube: network timeout")
	ErrInvalidURL        = errors.New("youtube: invalid URL")
	ErrYtdlpNotInstalled = errors.New("youtube: yt-dlp not installed")
)

// FetchError wraps errors with context about the yt-dlp operation.
type FetchError struct {
	Op       string // Operation: "probe" or "fetch"
	Playlist string // Playlist URL being processed
	Err      error  // Underlying error
}

func (e *FetchError) Error() string {
	return "youtube: " + e.Op + " " + e.Playlist + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// classifyStderr maps yt-dlp error output to a sentinel error.
// It returns nil when nothing recognizable was printed.
func classifyStderr(stderr string) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "unsupported url"),
		strings.Contains(msg, "is not a valid url"),
		strings.Contains(msg, "invalid url"):
		return ErrInvalidURL
	case strings.Contains(msg, "playlist does not exist"),
		strings.Contains(msg, "channel does not exist"),
		strings.Contains(msg, "this playlist is private"),
		strings.Contains(msg, "http error 404"):
		return ErrPlaylistNotFound
	case strings.Contains(msg, "http error 429"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "rate limit"):
		return ErrRateLimited
	case strings.Contains(msg, "timed out"):
		return ErrNetworkTimeout
	}
	return nil
}

// IsTransient reports whether err is likely to clear up by the next cycle.
// Missing playlists, malformed URLs and a missing yt-dlp binary are permanent.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetworkTimeout)
}
