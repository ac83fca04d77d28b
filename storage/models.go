package storage

import "time"

// Phase is the position of a podcast in its sync cycle.
type Phase string

// Phases of a sync cycle. A cycle moves idle -> fetching -> assembling ->
// writing -> idle, or ends in error when a step fails. Error is idle after a
// failed cycle: the next cycle starts from fetching either way.
const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseAssembling Phase = "assembling"
	PhaseWriting    Phase = "writing"
	PhaseError      Phase = "error"
)

// PodcastState records the outcome of the latest sync cycle of one podcast.
type PodcastState struct {
	Podcast       string    `json:"podcast"` // Slug, also the key in the store
	Title         string    `json:"title"`
	SourceURL     string    `json:"source_url"`
	Phase         Phase     `json:"phase"`
	CycleID       string    `json:"cycle_id,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
	LastSyncAt    time.Time `json:"last_sync_at"` // Zero until the first successful cycle
	Downloaded    int       `json:"downloaded"`   // Items fetched in the latest cycle
	Archived      int       `json:"archived"`     // Items skipped by the download archive
	ItemErrors    int       `json:"item_errors"`
	Skipped       int       `json:"skipped"` // Media files left out for lack of a sidecar
	Entries       int       `json:"entries"` // Entries in the last written feed
	TotalBytes    int64     `json:"total_bytes"`
	LastError     string    `json:"last_error,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AtRest reports whether no cycle is in progress. A state persisted in a
// working phase means the process stopped mid-cycle.
func (s *PodcastState) AtRest() bool {
	return s.Phase == PhaseIdle || s.Phase == PhaseError
}

// NewPodcastState creates an idle state for a podcast.
func NewPodcastState(podcast, title, sourceURL string) *PodcastState {
	return &PodcastState{
		Podcast:   podcast,
		Title:     title,
		SourceURL: sourceURL,
		Phase:     PhaseIdle,
	}
}

// Begin starts a new cycle and resets the per-cycle counters.
func (s *PodcastState) Begin(cycleID string, now time.Time) {
	s.Phase = PhaseFetching
	s.CycleID = cycleID
	s.LastAttemptAt = now
	s.Downloaded = 0
	s.Archived = 0
	s.ItemErrors = 0
	s.Skipped = 0
	s.LastError = ""
}

// Enter moves the cycle to the given phase.
func (s *PodcastState) Enter(phase Phase) {
	s.Phase = phase
}

// Complete marks the cycle as successfully finished.
func (s *PodcastState) Complete(now time.Time, entries int, totalBytes int64) {
	s.Phase = PhaseIdle
	s.LastSyncAt = now
	s.Entries = entries
	s.TotalBytes = totalBytes
	s.LastError = ""
}

// Fail marks the cycle as failed. The previous feed counters are kept since
// the feed on disk is unchanged.
func (s *PodcastState) Fail(err error) {
	s.Phase = PhaseError
	if err != nil {
		s.LastError = err.Error()
	}
}
