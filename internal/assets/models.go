package assets

import (
	"strings"
	"time"
)

// Status represents the transcode lifecycle of an asset.
type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusReady,
	StatusProcessing,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Asset represents a video asset persisted in SQLite.
type Asset struct {
	ID               int64
	Key              string
	ProjectID        string
	SourceLocation   string
	MediaLocation    string
	Status           Status
	NeedsTranscoding bool
	AssignedSection  string
	Format           string
	Codec            string
	Width            int
	Height           int
	JobID            string
	JobSubmittedAt   *time.Time
	TargetHeight     int
	ExpectedOutput   string
	Attempts         int
	LastError        string
	PossiblyStuck    bool
	StuckDetectedAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsCandidate reports whether the asset is eligible for a transcode
// submission: ready, flagged for transcoding, and not yet attached to a
// report section.
func (a Asset) IsCandidate() bool {
	return a.Status == StatusReady && a.NeedsTranscoding && a.AssignedSection == ""
}

// JobAge returns how long the current job has been outstanding, or zero when
// no submission timestamp is recorded.
func (a Asset) JobAge(now time.Time) time.Duration {
	if a.JobSubmittedAt == nil {
		return 0
	}
	return now.Sub(*a.JobSubmittedAt)
}

// HealthSummary describes aggregated asset counts per lifecycle state.
type HealthSummary struct {
	Total            int
	Ready            int
	NeedsTranscoding int
	Processing       int
	PossiblyStuck    int
	Errored          int
}

// Browser-playable codec/container combinations. Anything else coming out of
// a CCTV crawler (MPEG-2 program streams, HEVC from newer rigs, AVI wrappers)
// has to go through the encoder before reports can embed it.
var playableCodecs = map[string]struct{}{
	"h264": {},
	"avc1": {},
	"vp8":  {},
	"vp9":  {},
	"av1":  {},
}

var playableFormats = map[string]struct{}{
	"mp4":  {},
	"webm": {},
}

// RequiresTranscode reports whether media with the given container format and
// codec needs re-encoding for browser playback.
func RequiresTranscode(format, codec string) bool {
	_, formatOK := playableFormats[strings.ToLower(strings.TrimSpace(format))]
	_, codecOK := playableCodecs[strings.ToLower(strings.TrimSpace(codec))]
	return !formatOK || !codecOK
}
