package playlist2podcast

import (
	"playlist2podcast/feed"
	"playlist2podcast/registry"
	"playlist2podcast/storage"
	"playlist2podcast/youtube"
)

// Error handling types exported for library users.
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, playlist2podcast.ErrPlaylistNotFound) {
//		fmt.Println("Playlist not found")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var fetchErr *playlist2podcast.FetchError
//	if errors.As(err, &fetchErr) {
//		fmt.Printf("%s failed for %s: %v\n", fetchErr.Op, fetchErr.Playlist, fetchErr.Err)
//	}

// Type aliases for convenient error handling.
type (
	// FetchError wraps errors from yt-dlp probe and fetch runs.
	FetchError = youtube.FetchError
	// StorageError wraps errors during state store operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrPlaylistNotFound indicates the playlist does not exist.
	ErrPlaylistNotFound = youtube.ErrPlaylistNotFound
	// ErrRateLimited indicates the operation was rate limited.
	ErrRateLimited = youtube.ErrRateLimited
	// ErrNetworkTimeout indicates a network timeout occurred.
	ErrNetworkTimeout = youtube.ErrNetworkTimeout
	// ErrInvalidURL indicates the provided URL is invalid.
	ErrInvalidURL = youtube.ErrInvalidURL
	// ErrYtdlpNotInstalled indicates yt-dlp binary was not found.
	ErrYtdlpNotInstalled = youtube.ErrYtdlpNotInstalled

	// ErrEmptySlug indicates a podcast name with no usable characters.
	ErrEmptySlug = registry.ErrEmptySlug
	// ErrDuplicateSlug indicates two playlists mapping to the same directory.
	ErrDuplicateSlug = registry.ErrDuplicateSlug
	// ErrNoChannelMetadata indicates a podcast without channel metadata.
	ErrNoChannelMetadata = feed.ErrNoChannelMetadata

	// Storage errors
	// ErrNotFound indicates no state is stored for a podcast.
	ErrNotFound = storage.ErrNotFound
	// ErrStorageCorrupt indicates the state file could not be decoded.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates another process holds the state file.
	ErrLockTimeout = storage.ErrLockTimeout
)

// IsTransient reports whether a fetch error may clear up by the next cycle.
// It returns false for permanent errors like ErrPlaylistNotFound.
func IsTransient(err error) bool {
	return youtube.IsTransient(err)
}
