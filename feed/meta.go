package feed

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"playlist2podcast/youtube"
)

// NoDescription replaces empty descriptions.
const NoDescription = "No description found."

// AvatarThumbnailID marks the channel avatar in a playlist's thumbnails.
const AvatarThumbnailID = "avatar_uncropped"

const uploadDateLayout = "20060102"

// Describe returns desc, or NoDescription when desc is empty.
func Describe(desc string) string {
	if desc == "" {
		return NoDescription
	}
	return desc
}

// SelectLogo picks the feed artwork. The uncropped avatar wins outright;
// otherwise the thumbnail with the largest pixel area. Thumbnails with no
// known area are never chosen, so the result may be empty.
func SelectLogo(thumbs []youtube.Thumbnail) string {
	if avatar, ok := lo.Find(thumbs, func(t youtube.Thumbnail) bool { return t.ID == AvatarThumbnailID }); ok {
		return avatar.URL
	}

	sized := lo.Filter(thumbs, func(t youtube.Thumbnail, _ int) bool { return t.Area() > 0 })
	if len(sized) == 0 {
		return ""
	}
	return lo.MaxBy(sized, func(a, b youtube.Thumbnail) bool { return a.Area() > b.Area() }).URL
}

// PubDate converts a compact YYYYMMDD upload date to midnight UTC.
func PubDate(uploadDate string) (time.Time, error) {
	t, err := time.ParseInLocation(uploadDateLayout, uploadDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("upload date %q: %w", uploadDate, err)
	}
	return t, nil
}

// ISODate converts a compact YYYYMMDD upload date to YYYY-MM-DD.
func ISODate(uploadDate string) (string, error) {
	t, err := PubDate(uploadDate)
	if err != nil {
		return "", err
	}
	return t.Format(time.DateOnly), nil
}

var mimeTypes = map[string]string{
	"webm": "audio/webm",
	"m4a":  "audio/mp4",
	"mp4":  "audio/mp4",
	"mp3":  "audio/mpeg",
	"opus": "audio/ogg",
	"ogg":  "audio/ogg",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"wav":  "audio/wav",
}

// MimeType returns the enclosure type for a media extension.
func MimeType(ext string) string {
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	return "application/octet-stream"
}
