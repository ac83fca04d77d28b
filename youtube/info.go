package youtube

import (
	"encoding/json"
	"fmt"
	"os"
)

// Info types reported in the "_type" field of yt-dlp info JSON.
const (
	InfoTypeVideo    = "video"
	InfoTypePlaylist = "playlist"
)

// InfoExt is the filename suffix yt-dlp uses for metadata sidecars.
const InfoExt = ".info.json"

// Info is the subset of yt-dlp's info JSON consumed by the feed assembler.
// It is used both for per-item sidecars and for playlist-level metadata.
type Info struct {
	// Type is "video" for items and "playlist" for playlists.
	Type string `json:"_type"`
	// ID is the item or playlist ID.
	ID string `json:"id"`
	// Title is the item or playlist title.
	Title string `json:"title"`
	// Description may be empty; see feed.Describe.
	Description string `json:"description"`
	// Filesize is the exact byte count of the selected format, when known.
	Filesize ByteCount `json:"filesize"`
	// FilesizeApprox is yt-dlp's estimate when the exact size is unknown.
	FilesizeApprox ByteCount `json:"filesize_approx"`
	// UploadDate is in compact YYYYMMDD form.
	UploadDate string `json:"upload_date"`
	// Uploader is the channel display name.
	Uploader string `json:"uploader"`
	// WebpageURL is the canonical page of the item or playlist.
	WebpageURL string `json:"webpage_url"`
	// PlaylistIndex is the 1-based position of the item in its playlist.
	PlaylistIndex *int `json:"playlist_index"`
	// Thumbnails lists the available artwork candidates.
	Thumbnails []Thumbnail `json:"thumbnails"`
}

// ByteCount is a size in bytes. Estimated sizes may be reported as fractional
// numbers and are truncated.
type ByteCount int64

// UnmarshalJSON accepts integers, floats and null.
func (b *ByteCount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*b = ByteCount(f)
	return nil
}

// Thumbnail is one artwork candidate. Missing dimensions decode as zero.
type Thumbnail struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Area returns the pixel count of the thumbnail.
func (t Thumbnail) Area() int {
	return t.Width * t.Height
}

// IsPlaylist reports whether the info describes a playlist rather than an item.
func (i *Info) IsPlaylist() bool {
	return i != nil && i.Type == InfoTypePlaylist
}

// ParseInfo decodes yt-dlp info JSON.
func ParseInfo(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse info JSON: %w", err)
	}
	return &info, nil
}

// ReadInfoFile reads and decodes an info JSON sidecar from disk.
func ReadInfoFile(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read info file: %w", err)
	}
	info, err := ParseInfo(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}
