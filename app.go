package playlist2podcast

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"playlist2podcast/config"
	"playlist2podcast/metrics"
	"playlist2podcast/mirror"
	"playlist2podcast/podsync"
	"playlist2podcast/registry"
	"playlist2podcast/storage"
	"playlist2podcast/youtube"
)

// ErrNoPodcasts indicates that none of the configured playlists resolved.
var ErrNoPodcasts = errors.New("playlist2podcast: no podcast could be registered")

// App wires the registry, the state store and the sync loop together.
type App struct {
	Config   *config.Config
	Podcasts []*registry.Podcast

	store   *storage.JSONStore
	manager *podsync.Manager
}

// Open builds the podcast registry and takes the state store lock.
// Close must be called to release it.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	if err := os.MkdirAll(cfg.PodcastsPath, 0755); err != nil {
		return nil, fmt.Errorf("create podcasts path: %w", err)
	}

	store, err := storage.NewJSONStore(cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	ytdlp := youtube.NewYtdlp(log)
	ytdlp.Path = cfg.YtdlpPath
	ytdlp.Timeout = cfg.YtdlpTimeout
	ytdlp.ExtraArgs = cfg.YtdlpArgs

	layout := registry.NewLayout(cfg.PodcastsPath, cfg.HostBaseURL)
	resolver := registry.NewResolver(layout, cfg.Podcasts.Named, ytdlp)
	podcasts := registry.Build(ctx, resolver, cfg.Podcasts.Entries, log)
	if len(podcasts) == 0 {
		store.Close()
		return nil, ErrNoPodcasts
	}

	manager := podsync.NewManager(ytdlp, store, metrics.New(), podsync.Options{
		MediaExtension:  cfg.MediaExtension,
		DateAfter:       cfg.DateAfter.String(),
		Interval:        cfg.Interval,
		MetricsTextfile: cfg.MetricsTextfile,
	}, log)

	if cfg.Mirror != nil {
		m, err := mirror.NewS3(ctx, mirror.Config{
			Bucket:       cfg.Mirror.Bucket,
			Prefix:       cfg.Mirror.Prefix,
			Region:       cfg.Mirror.Region,
			Profile:      cfg.Mirror.Profile,
			UsePathStyle: cfg.Mirror.PathStyle,
		}, log)
		if err != nil {
			store.Close()
			return nil, err
		}
		manager.SetMirror(m)
	}

	return &App{
		Config:   cfg,
		Podcasts: podcasts,
		store:    store,
		manager:  manager,
	}, nil
}

// Run syncs all podcasts, then repeats after the configured interval until
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.manager.Run(ctx, a.Podcasts)
}

// Once runs a single cycle over all podcasts.
func (a *App) Once(ctx context.Context) podsync.CycleSummary {
	return a.manager.Cycle(ctx, a.Podcasts)
}

// States returns the stored state of every podcast.
func (a *App) States(ctx context.Context) ([]*storage.PodcastState, error) {
	return a.store.ListStates(ctx)
}

// Close releases the state store lock.
func (a *App) Close() error {
	return a.store.Close()
}
