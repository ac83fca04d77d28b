// Package podsync runs the fetch, assemble and write cycle for every podcast.
package podsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/bytes"
	"github.com/sirupsen/logrus"

	"playlist2podcast/feed"
	"playlist2podcast/metrics"
	"playlist2podcast/mirror"
	"playlist2podcast/registry"
	"playlist2podcast/storage"
	"playlist2podcast/youtube"
)

// Fetcher downloads the new items of a playlist into a directory.
type Fetcher interface {
	Fetch(ctx context.Context, dir, playlistURL string, opts youtube.FetchOptions) (*youtube.FetchResult, error)
}

// Publisher copies a written podcast directory elsewhere.
type Publisher interface {
	Publish(ctx context.Context, slug, dir string, media []string, mediaType string) (*mirror.Result, error)
}

// Options tune a Manager.
type Options struct {
	// MediaExtension selects the files that become feed entries.
	MediaExtension string
	// DateAfter is passed to yt-dlp as --dateafter when set.
	DateAfter string
	// Interval is the pause between cycles in Run.
	Interval time.Duration
	// MetricsTextfile receives the metrics after every cycle when set.
	MetricsTextfile string
}

// Manager syncs podcasts one at a time and records their state.
type Manager struct {
	fetcher Fetcher
	store   storage.StateStore
	metrics *metrics.Recorder
	mirror  Publisher
	opts    Options
	log     logrus.FieldLogger

	now   func() time.Time
	newID func() string
}

// NewManager creates a manager.
func NewManager(fetcher Fetcher, store storage.StateStore, recorder *metrics.Recorder, opts Options, log logrus.FieldLogger) *Manager {
	if recorder == nil {
		recorder = metrics.New()
	}
	return &Manager{
		fetcher: fetcher,
		store:   store,
		metrics: recorder,
		opts:    opts,
		log:     log.WithField("component", "podsync"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// SetMirror enables publishing each written podcast through p.
func (m *Manager) SetMirror(p Publisher) {
	m.mirror = p
}

// Outcome summarizes one successful podcast sync.
type Outcome struct {
	Podcast    string
	Downloaded int
	Archived   int
	ItemErrors int
	Entries    int
	Skipped    int
	TotalBytes int64
}

// SyncPodcast fetches new items for p, rebuilds its feed and writes it.
// On failure the previous feed document is left in place.
func (m *Manager) SyncPodcast(ctx context.Context, p *registry.Podcast) (*Outcome, error) {
	state := m.loadState(ctx, p)
	state.Begin(m.newID(), m.now())
	log := m.log.WithFields(logrus.Fields{
		"podcast": p.Name,
		"cycle":   state.CycleID,
	})
	m.saveState(ctx, state, log)

	fail := func(phase storage.Phase, err error) (*Outcome, error) {
		state.Fail(err)
		m.saveState(ctx, state, log)
		m.metrics.Failed(p.Name, string(phase))
		log.WithError(err).WithFields(logrus.Fields{
			"phase":     phase,
			"transient": youtube.IsTransient(err),
		}).Error("podcast sync failed")
		return nil, err
	}

	// fetching
	if err := os.MkdirAll(p.LocalPath, 0755); err != nil {
		return fail(storage.PhaseFetching, fmt.Errorf("create podcast directory: %w", err))
	}
	log.WithField("playlist", p.SourceURL).Info("fetching new items")
	res, err := m.fetcher.Fetch(ctx, p.LocalPath, p.SourceURL, youtube.FetchOptions{DateAfter: m.opts.DateAfter})
	if err != nil {
		m.metrics.FetchFailed(p.Name, FailureReason(err))
		return fail(storage.PhaseFetching, err)
	}
	state.Downloaded = res.Downloaded
	state.Archived = res.Archived
	state.ItemErrors = res.ItemErrors
	m.metrics.Fetched(p.Name, res.Downloaded)
	for _, f := range res.Files {
		log.WithField("file", filepath.Base(f)).Debug("downloaded")
	}
	log.WithFields(logrus.Fields{
		"downloaded":  res.Downloaded,
		"archived":    res.Archived,
		"item_errors": res.ItemErrors,
	}).Info("fetch finished")

	// assembling
	state.Enter(storage.PhaseAssembling)
	m.saveState(ctx, state, log)
	listing, err := feed.Scan(p.LocalPath, m.opts.MediaExtension, log)
	if err != nil {
		return fail(storage.PhaseAssembling, err)
	}
	state.Skipped = listing.Skipped
	doc, err := feed.Assemble(p, listing, log)
	if err != nil {
		return fail(storage.PhaseAssembling, err)
	}

	// writing
	state.Enter(storage.PhaseWriting)
	m.saveState(ctx, state, log)
	if err := doc.Write(p.FeedPath()); err != nil {
		return fail(storage.PhaseWriting, err)
	}
	parsed, err := feed.Verify(p.FeedPath())
	if err != nil {
		return fail(storage.PhaseWriting, err)
	}

	out := &Outcome{
		Podcast:    p.Name,
		Downloaded: res.Downloaded,
		Archived:   res.Archived,
		ItemErrors: res.ItemErrors,
		Entries:    len(parsed.Items),
		Skipped:    listing.Skipped,
		TotalBytes: doc.TotalBytes(),
	}
	now := m.now()
	state.Complete(now, out.Entries, out.TotalBytes)
	m.saveState(ctx, state, log)
	m.metrics.Published(p.Name, out.Entries, out.Skipped, out.TotalBytes, now)

	log.WithFields(logrus.Fields{
		"entries": out.Entries,
		"skipped": out.Skipped,
		"size":    bytes.Format(out.TotalBytes),
		"feed":    p.FeedPath(),
	}).Info("feed written")

	if m.mirror != nil {
		media := make([]string, 0, len(listing.Episodes))
		for _, ep := range listing.Episodes {
			media = append(media, ep.Filename)
		}
		if _, err := m.mirror.Publish(ctx, p.Name, p.LocalPath, media, feed.MimeType(listing.Ext)); err != nil {
			log.WithError(err).Warn("mirror failed")
		}
	}

	return out, nil
}

// CycleSummary counts the outcomes of one pass over all podcasts.
type CycleSummary struct {
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Cycle syncs every podcast in order. A failed podcast is skipped and the
// next one is processed. Cancellation stops the cycle between podcasts.
func (m *Manager) Cycle(ctx context.Context, podcasts []*registry.Podcast) CycleSummary {
	start := m.now()
	var summary CycleSummary
	for _, p := range podcasts {
		if ctx.Err() != nil {
			break
		}
		if _, err := m.SyncPodcast(ctx, p); err != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
	}
	summary.Duration = m.now().Sub(start)

	m.metrics.CycleFinished(summary.Duration)
	if m.opts.MetricsTextfile != "" {
		if err := m.metrics.Flush(m.opts.MetricsTextfile); err != nil {
			m.log.WithError(err).Warn("failed to write metrics textfile")
		}
	}

	m.log.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"duration":  summary.Duration.Round(time.Second).String(),
	}).Info("cycle finished")
	return summary
}

// Run repeats Cycle, sleeping Interval between cycles, until ctx is done.
func (m *Manager) Run(ctx context.Context, podcasts []*registry.Podcast) error {
	for {
		m.Cycle(ctx, podcasts)

		m.log.WithField("next", m.now().Add(m.opts.Interval).Format(time.RFC3339)).Info("sleeping until next cycle")
		timer := time.NewTimer(m.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *Manager) loadState(ctx context.Context, p *registry.Podcast) *storage.PodcastState {
	state, err := m.store.GetState(ctx, p.Name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.WithError(err).WithField("podcast", p.Name).Warn("failed to read sync state")
		}
		state = storage.NewPodcastState(p.Name, p.Title, p.SourceURL)
	}
	if !state.AtRest() {
		m.log.WithFields(logrus.Fields{
			"podcast": p.Name,
			"phase":   state.Phase,
			"cycle":   state.CycleID,
		}).Warn("previous cycle was interrupted")
	}
	state.Title = p.Title
	state.SourceURL = p.SourceURL
	return state
}

func (m *Manager) saveState(ctx context.Context, state *storage.PodcastState, log logrus.FieldLogger) {
	if err := m.store.PutState(ctx, state); err != nil {
		log.WithError(err).Warn("failed to persist sync state")
	}
}

// FailureReason maps a fetch error to a short metric label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, youtube.ErrPlaylistNotFound):
		return "not_found"
	case errors.Is(err, youtube.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, youtube.ErrNetworkTimeout):
		return "timeout"
	case errors.Is(err, youtube.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, youtube.ErrYtdlpNotInstalled):
		return "not_installed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
