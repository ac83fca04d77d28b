// Package metrics records sync cycle outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the sync metrics on a private registry, without the Go
// runtime collectors.
type Recorder struct {
	registry *prometheus.Registry

	cycles        prometheus.Counter
	cycleDuration prometheus.Histogram
	syncs         *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	downloaded    *prometheus.CounterVec
	skippedFiles  *prometheus.GaugeVec
	feedEntries   *prometheus.GaugeVec
	feedBytes     *prometheus.GaugeVec
	lastSuccess   *prometheus.GaugeVec
}

// New creates a Recorder with all metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "playlist2podcast_cycles_total",
			Help: "The total number of completed sync cycles",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "playlist2podcast_cycle_duration_seconds",
			Help:    "Duration of a full sync cycle over all podcasts",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1s to ~4.5h
		}),
		syncs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playlist2podcast_podcast_syncs_total",
			Help: "Podcast sync attempts by result and the phase they ended in",
		}, []string{"podcast", "result", "phase"}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playlist2podcast_fetch_failures_total",
			Help: "Playlist level fetch failures by reason",
		}, []string{"podcast", "reason"}),
		downloaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playlist2podcast_downloaded_items_total",
			Help: "Media items downloaded",
		}, []string{"podcast"}),
		skippedFiles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "playlist2podcast_skipped_files",
			Help: "Media files left out of the last feed for lack of readable metadata",
		}, []string{"podcast"}),
		feedEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "playlist2podcast_feed_entries",
			Help: "Entries in the last written feed",
		}, []string{"podcast"}),
		feedBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "playlist2podcast_feed_bytes",
			Help: "Sum of enclosure lengths in the last written feed",
		}, []string{"podcast"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "playlist2podcast_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sync",
		}, []string{"podcast"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Fetched records the outcome of a successful fetch.
func (r *Recorder) Fetched(podcast string, downloaded int) {
	r.downloaded.WithLabelValues(podcast).Add(float64(downloaded))
}

// FetchFailed records a playlist level fetch failure.
func (r *Recorder) FetchFailed(podcast, reason string) {
	r.fetchFailures.WithLabelValues(podcast, reason).Inc()
}

// Published records a successfully written feed.
func (r *Recorder) Published(podcast string, entries, skipped int, bytes int64, at time.Time) {
	r.syncs.WithLabelValues(podcast, "success", "idle").Inc()
	r.feedEntries.WithLabelValues(podcast).Set(float64(entries))
	r.skippedFiles.WithLabelValues(podcast).Set(float64(skipped))
	r.feedBytes.WithLabelValues(podcast).Set(float64(bytes))
	r.lastSuccess.WithLabelValues(podcast).Set(float64(at.Unix()))
}

// Failed records a sync that stopped in the given phase.
func (r *Recorder) Failed(podcast, phase string) {
	r.syncs.WithLabelValues(podcast, "error", phase).Inc()
}

// CycleFinished records a completed pass over all podcasts.
func (r *Recorder) CycleFinished(d time.Duration) {
	r.cycles.Inc()
	r.cycleDuration.Observe(d.Seconds())
}

// Flush writes all metrics to path in the text exposition format. The file
// is replaced atomically.
func (r *Recorder) Flush(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
