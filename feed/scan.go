package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"playlist2podcast/youtube"
)

// Episode is a media file paired with its metadata sidecar.
type Episode struct {
	// Filename is the media file name relative to the podcast directory.
	Filename string
	// Info is the decoded sidecar.
	Info *youtube.Info
	// DiskSize is the size of the media file on disk.
	DiskSize int64
}

// Size returns the enclosure length: the exact size reported by the source,
// else its estimate, else the size on disk.
func (e Episode) Size() int64 {
	switch {
	case e.Info != nil && e.Info.Filesize > 0:
		return int64(e.Info.Filesize)
	case e.Info != nil && e.Info.FilesizeApprox > 0:
		return int64(e.Info.FilesizeApprox)
	default:
		return e.DiskSize
	}
}

// Listing is the result of scanning a podcast directory.
type Listing struct {
	// Ext is the media extension that was scanned for, without the dot.
	Ext string
	// Episodes are the media files with a readable sidecar, in playlist order.
	Episodes []Episode
	// Channel is the playlist-level sidecar, nil when none was found.
	Channel *youtube.Info
	// Skipped counts media files left out because their sidecar was missing or invalid.
	Skipped int
}

// Scan lists the media files with extension ext in dir and reads their
// sidecars. Files without a readable sidecar are logged and skipped.
// Episodes are ordered by playlist index; files without one keep directory
// order after the indexed ones.
func Scan(dir, ext string, log logrus.FieldLogger) (*Listing, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	listing := &Listing{Ext: ext}
	suffix := "." + ext
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		if strings.HasSuffix(name, youtube.InfoExt) {
			if listing.Channel == nil {
				if info, err := youtube.ReadInfoFile(filepath.Join(dir, name)); err == nil && info.IsPlaylist() {
					listing.Channel = info
				}
			}
			continue
		}

		if !strings.HasSuffix(strings.ToLower(name), suffix) {
			continue
		}

		base := name[:len(name)-len(suffix)]
		info, err := youtube.ReadInfoFile(filepath.Join(dir, base+youtube.InfoExt))
		if err != nil {
			log.WithError(err).WithField("file", name).Warn("skipping media file without readable metadata")
			listing.Skipped++
			continue
		}

		var size int64
		if fi, err := entry.Info(); err == nil {
			size = fi.Size()
		}
		listing.Episodes = append(listing.Episodes, Episode{Filename: name, Info: info, DiskSize: size})
	}

	sort.SliceStable(listing.Episodes, func(i, j int) bool {
		a, b := listing.Episodes[i].Info.PlaylistIndex, listing.Episodes[j].Info.PlaylistIndex
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})

	return listing, nil
}
