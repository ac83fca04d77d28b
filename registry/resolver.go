package registry

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"playlist2podcast/youtube"
)

// Entry is one configured playlist. Name is empty when the configuration
// lists bare URLs and the title has to be probed.
type Entry struct {
	Name string
	URL  string
}

// Resolver turns a configured entry into a podcast descriptor.
type Resolver interface {
	Resolve(ctx context.Context, entry Entry) (*Podcast, error)
}

// Prober fetches playlist metadata without downloading items.
type Prober interface {
	Probe(ctx context.Context, playlistURL string) (*youtube.Info, error)
}

// NamedResolver derives the podcast identity from the configured name.
// It never touches the network.
type NamedResolver struct {
	Layout Layout
}

// Resolve implements Resolver.
func (r NamedResolver) Resolve(_ context.Context, entry Entry) (*Podcast, error) {
	p, err := r.Layout.Podcast(entry.Name, entry.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", entry.Name, err)
	}
	return p, nil
}

// ProbeResolver asks the source for the playlist title and derives the
// podcast identity from it. The probed metadata travels with the descriptor.
type ProbeResolver struct {
	Layout Layout
	Prober Prober
}

// Resolve implements Resolver.
func (r ProbeResolver) Resolve(ctx context.Context, entry Entry) (*Podcast, error) {
	info, err := r.Prober.Probe(ctx, entry.URL)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", entry.URL, err)
	}
	p, err := r.Layout.Podcast(info.Title, entry.URL, info)
	if err != nil {
		return nil, fmt.Errorf("resolve %s (title %q): %w", entry.URL, info.Title, err)
	}
	return p, nil
}

// NewResolver picks the strategy matching the configuration shape.
func NewResolver(layout Layout, named bool, prober Prober) Resolver {
	if named {
		return NamedResolver{Layout: layout}
	}
	return ProbeResolver{Layout: layout, Prober: prober}
}

// Build resolves every entry in order. Entries that fail to resolve, or that
// would share a directory with an earlier entry, are logged and skipped.
func Build(ctx context.Context, r Resolver, entries []Entry, log logrus.FieldLogger) []*Podcast {
	log = log.WithField("component", "registry")

	podcasts := make([]*Podcast, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		entryLog := log.WithField("playlist", entry.URL)
		if entry.Name != "" {
			entryLog = entryLog.WithField("name", entry.Name)
		}

		p, err := r.Resolve(ctx, entry)
		if err != nil {
			entryLog.WithError(err).Error("skipping playlist")
			continue
		}
		if other, dup := seen[p.Name]; dup {
			entryLog.WithError(ErrDuplicateSlug).
				WithField("slug", p.Name).
				WithField("conflicts_with", other).
				Error("skipping playlist")
			continue
		}
		seen[p.Name] = entry.URL

		entryLog.WithFields(logrus.Fields{
			"slug":  p.Name,
			"title": p.Title,
			"dir":   p.LocalPath,
		}).Info("registered podcast")
		podcasts = append(podcasts, p)
	}
	return podcasts
}
