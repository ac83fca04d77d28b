// Package feed turns a podcast directory into an RSS document.
package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gorilla/feeds"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"playlist2podcast/registry"
	"playlist2podcast/storage"
	"playlist2podcast/youtube"
)

const (
	// Category is the channel category advertised to podcast clients.
	Category = "Podcasting"
	// Generator identifies this program in the generator tag.
	Generator = "playlist2podcast"
)

// ErrNoChannelMetadata indicates that neither probed metadata nor a playlist
// sidecar is available, so the channel cannot be described.
var ErrNoChannelMetadata = errors.New("feed: no channel metadata")

// Channel holds the feed-level fields.
type Channel struct {
	Title       string
	Description string
	Author      string
	Link        string
	Logo        string
}

// Enclosure is the media attachment of an entry.
type Enclosure struct {
	URL    string
	Length int64
	Type   string
}

// Entry is one episode of the feed.
type Entry struct {
	ID          string
	Title       string
	Description string
	Link        string
	Enclosure   Enclosure
	// Published is zero when the upload date is unknown.
	Published time.Time
}

// Document is the in-memory feed, rebuilt on every cycle.
type Document struct {
	Channel Channel
	Entries []Entry
}

// TotalBytes sums the enclosure lengths.
func (d *Document) TotalBytes() int64 {
	return lo.SumBy(d.Entries, func(e Entry) int64 { return e.Enclosure.Length })
}

// Updated returns the latest publish date, or zero when no entry has one.
func (d *Document) Updated() time.Time {
	var latest time.Time
	for _, e := range d.Entries {
		if e.Published.After(latest) {
			latest = e.Published
		}
	}
	return latest
}

// ChannelFromInfo describes the channel using playlist metadata.
func ChannelFromInfo(info *youtube.Info) Channel {
	return Channel{
		Title:       info.Title,
		Description: Describe(info.Description),
		Author:      info.Uploader,
		Link:        info.WebpageURL,
		Logo:        SelectLogo(info.Thumbnails),
	}
}

// Assemble builds the feed for p from a directory listing. Channel metadata
// comes from the probed playlist when available, else from the playlist
// sidecar found by Scan.
func Assemble(p *registry.Podcast, listing *Listing, log logrus.FieldLogger) (*Document, error) {
	meta := p.Meta
	if meta == nil {
		meta = listing.Channel
	}
	if meta == nil {
		return nil, fmt.Errorf("%s: %w", p.Name, ErrNoChannelMetadata)
	}

	channel := ChannelFromInfo(meta)
	if channel.Title == "" {
		channel.Title = p.Title
	}
	if channel.Link == "" {
		channel.Link = p.SourceURL
	}

	mime := MimeType(listing.Ext)
	doc := &Document{
		Channel: channel,
		Entries: make([]Entry, 0, len(listing.Episodes)),
	}
	for _, ep := range listing.Episodes {
		downloadURL := p.DownloadURL(ep.Filename)
		entry := Entry{
			ID:          downloadURL,
			Title:       ep.Info.Title,
			Description: Describe(ep.Info.Description),
			Link:        downloadURL,
			Enclosure: Enclosure{
				URL:    downloadURL,
				Length: ep.Size(),
				Type:   mime,
			},
		}
		if ep.Info.WebpageURL != "" {
			entry.Link = ep.Info.WebpageURL
		}
		if published, err := PubDate(ep.Info.UploadDate); err == nil {
			entry.Published = published
		} else {
			log.WithField("file", ep.Filename).WithError(err).Debug("entry has no publish date")
		}
		doc.Entries = append(doc.Entries, entry)
	}

	return doc, nil
}

// Encode writes the document as RSS 2.0.
func (d *Document) Encode(w io.Writer) error {
	f := &feeds.Feed{
		Title:       d.Channel.Title,
		Link:        &feeds.Link{Href: d.Channel.Link, Rel: "alternate"},
		Description: d.Channel.Description,
		Updated:     d.Updated(),
	}
	if d.Channel.Logo != "" {
		f.Image = &feeds.Image{Url: d.Channel.Logo, Title: d.Channel.Title, Link: d.Channel.Link}
	}

	f.Items = make([]*feeds.Item, 0, len(d.Entries))
	for _, e := range d.Entries {
		f.Items = append(f.Items, &feeds.Item{
			Id:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Link:        &feeds.Link{Href: e.Link},
			Created:     e.Published,
			Enclosure: &feeds.Enclosure{
				Url:    e.Enclosure.URL,
				Length: strconv.FormatInt(e.Enclosure.Length, 10),
				Type:   e.Enclosure.Type,
			},
		})
	}

	rss := (&feeds.Rss{Feed: f}).RssFeed()
	rss.ManagingEditor = d.Channel.Author
	rss.Category = Category
	rss.Generator = Generator

	channel := &itunesChannel{
		RssFeed:  rss,
		Author:   d.Channel.Author,
		Category: &itunesCategory{Text: Category},
	}
	if d.Channel.Logo != "" {
		channel.Image = &itunesImage{Href: d.Channel.Logo}
	}
	return feeds.WriteXML(podcastFeed{channel}, w)
}

// ITunesNamespace is the namespace of the podcast directory tags.
const ITunesNamespace = "http://www.itunes.com/dtds/podcast-1.0.dtd"

// podcastFeed adds the iTunes channel tags to the RSS document gorilla/feeds
// builds.
type podcastFeed struct {
	channel *itunesChannel
}

type podcastRSS struct {
	XMLName          xml.Name `xml:"rss"`
	Version          string   `xml:"version,attr"`
	ContentNamespace string   `xml:"xmlns:content,attr"`
	ITunesNamespace  string   `xml:"xmlns:itunes,attr"`
	Channel          *itunesChannel
}

type itunesChannel struct {
	*feeds.RssFeed
	Author   string          `xml:"itunes:author,omitempty"`
	Category *itunesCategory `xml:"itunes:category,omitempty"`
	Image    *itunesImage    `xml:"itunes:image,omitempty"`
}

type itunesCategory struct {
	Text string `xml:"text,attr"`
}

type itunesImage struct {
	Href string `xml:"href,attr"`
}

// FeedXml implements feeds.XmlFeed.
func (f podcastFeed) FeedXml() interface{} {
	return &podcastRSS{
		Version:          "2.0",
		ContentNamespace: "http://purl.org/rss/1.0/modules/content/",
		ITunesNamespace:  ITunesNamespace,
		Channel:          f.channel,
	}
}

// Write encodes the document to path atomically.
func (d *Document) Write(path string) error {
	if err := storage.ReplaceFile(path, 0644, d.Encode); err != nil {
		return fmt.Errorf("write feed %s: %w", path, err)
	}
	return nil
}
