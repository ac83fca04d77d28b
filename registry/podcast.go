// Package registry resolves configured playlists into podcast descriptors.
package registry

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"playlist2podcast/youtube"
)

// FeedFile is the name of the generated feed inside each podcast directory.
const FeedFile = "podcast.xml"

var (
	// ErrEmptySlug indicates a name or title that slugifies to nothing.
	ErrEmptySlug = errors.New("registry: name has no usable characters")
	// ErrDuplicateSlug indicates two entries that would share a directory.
	ErrDuplicateSlug = errors.New("registry: duplicate podcast slug")
)

// Podcast describes one playlist-to-feed mapping. It is built once at startup
// and not modified afterwards.
type Podcast struct {
	// Name is the slug shared by LocalPath and HostedPath.
	Name string
	// Title is the human-readable name: the configured key or the probed title.
	Title string
	// SourceURL identifies the remote playlist.
	SourceURL string
	// HostedPath is the public URL prefix of the podcast directory, without trailing slash.
	HostedPath string
	// LocalPath is the directory holding media, sidecars, ledger and feed.
	LocalPath string
	// Meta is the probed playlist metadata; nil when the playlist was not probed.
	Meta *youtube.Info
}

// FeedPath returns the location of the generated feed document.
func (p *Podcast) FeedPath() string {
	return filepath.Join(p.LocalPath, FeedFile)
}

// DownloadURL returns the public URL of a file inside the podcast directory.
func (p *Podcast) DownloadURL(filename string) string {
	return p.HostedPath + "/" + url.PathEscape(filename)
}

// Layout maps slugs to local directories and public URLs.
type Layout struct {
	PodcastsPath string
	HostBaseURL  string
}

// NewLayout creates a layout, normalizing the base URL to end with one slash.
func NewLayout(podcastsPath, hostBaseURL string) Layout {
	return Layout{
		PodcastsPath: podcastsPath,
		HostBaseURL:  NormalizeBaseURL(hostBaseURL),
	}
}

// NormalizeBaseURL returns u with exactly one trailing slash.
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(u, "/") + "/"
}

// Podcast builds a descriptor for the given title. The slug is derived from
// title and must not be empty.
func (l Layout) Podcast(title, sourceURL string, meta *youtube.Info) (*Podcast, error) {
	slug := Slugify(title, false)
	if slug == "" {
		return nil, ErrEmptySlug
	}
	return &Podcast{
		Name:       slug,
		Title:      title,
		SourceURL:  sourceURL,
		HostedPath: l.HostBaseURL + url.PathEscape(slug),
		LocalPath:  filepath.Join(l.PodcastsPath, slug),
		Meta:       meta,
	}, nil
}
