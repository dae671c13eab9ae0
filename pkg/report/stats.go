// Package report accumulates run statistics and renders the end-of-run summary.
package report

import (
	"time"

	"github.com/Ramsey-B/camellia/pkg/models"
)

type Mode string

const (
	ModeDryRun Mode = "dry-run"
	ModeLive   Mode = "live"
)

type StopReason string

const (
	StopDrained   StopReason = "drained"
	StopLimit     StopReason = "limit"
	StopCancelled StopReason = "cancelled"
	StopFatal     StopReason = "fatal"
)

// Histogram counts occurrences per key.
type Histogram map[string]int

func (h Histogram) Add(key string) {
	h[key]++
}

func (h Histogram) Total() int {
	total := 0
	for _, n := range h {
		total += n
	}
	return total
}

// Stats is the summary of one run. Counters only ever increase.
type Stats struct {
	RunID      string     `json:"run_id"`
	Command    string     `json:"command"`
	Mode       Mode       `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Stopped    StopReason `json:"stopped,omitempty"`
	Fatal      string     `json:"fatal,omitempty"`

	Processed int `json:"processed"`
	Created   int `json:"created"`
	Merged    int `json:"merged"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	Chunks    int `json:"chunks"`

	// ProvenanceOnly counts merges whose field fills did not raise the score.
	ProvenanceOnly int `json:"provenance_only"`
	// Linked counts records joined to an earlier cluster by reconcile.
	Linked int `json:"linked"`

	SkipReasons        Histogram `json:"skip_reasons"`
	UnmappedCategories Histogram `json:"unmapped_categories"`
	MatchReasons       Histogram `json:"match_reasons"`
	MatchConfidence    Histogram `json:"match_confidence"`
	CategoryMethods    Histogram `json:"category_methods"`
	FieldsFilled       Histogram `json:"fields_filled"`
	ErrorStages        Histogram `json:"error_stages"`
	Sources            Histogram `json:"sources"`

	// NearMisses lists reconcile pairs that looked alike but did not match, capped at MaxNearMisses.
	NearMisses []NearMiss `json:"near_misses,omitempty"`
}

const MaxNearMisses = 50

// NearMiss is a record and an earlier root that shared a blocking key and had similar names
// without meeting any match rule.
type NearMiss struct {
	BusinessID string  `json:"business_id"`
	RootID     string  `json:"root_id"`
	Name       string  `json:"name"`
	RootName   string  `json:"root_name"`
	EditScore  float64 `json:"edit_score"`
	NameScore  float64 `json:"name_score"`
}

func NewStats(runID, command string, mode Mode) *Stats {
	return &Stats{
		RunID:              runID,
		Command:            command,
		Mode:               mode,
		StartedAt:          time.Now().UTC(),
		SkipReasons:        Histogram{},
		UnmappedCategories: Histogram{},
		MatchReasons:       Histogram{},
		MatchConfidence:    Histogram{},
		CategoryMethods:    Histogram{},
		FieldsFilled:       Histogram{},
		ErrorStages:        Histogram{},
		Sources:            Histogram{},
	}
}

func (s *Stats) RecordSkip(reason models.SkipReason) {
	s.Processed++
	s.Skipped++
	s.SkipReasons.Add(string(reason))
}

func (s *Stats) RecordError(stage string) {
	s.Processed++
	s.Errored++
	s.ErrorStages.Add(stage)
}

func (s *Stats) RecordCategory(label string, res models.Resolution) {
	s.CategoryMethods.Add(string(res.Method))
	if !res.Matched {
		if label == "" {
			label = "(empty)"
		}
		s.UnmappedCategories.Add(label)
	}
}

func (s *Stats) RecordCreated() {
	s.Processed++
	s.Created++
}

func (s *Stats) RecordMerged(match models.Match, filled []string, fieldsCommitted bool) {
	s.Processed++
	s.Merged++
	s.MatchReasons.Add(string(match.Reason))
	s.MatchConfidence.Add(string(match.Confidence))
	if !fieldsCommitted {
		s.ProvenanceOnly++
	}
	for _, f := range filled {
		s.FieldsFilled.Add(f)
	}
}

// RecordLinked counts a record reconcile joined to an earlier cluster.
func (s *Stats) RecordLinked(match models.Match, filled []string) {
	s.Processed++
	s.Linked++
	s.MatchReasons.Add(string(match.Reason))
	s.MatchConfidence.Add(string(match.Confidence))
	for _, f := range filled {
		s.FieldsFilled.Add(f)
	}
}

func (s *Stats) RecordNearMiss(m NearMiss) {
	if len(s.NearMisses) < MaxNearMisses {
		s.NearMisses = append(s.NearMisses, m)
	}
}

// RecordKept counts a record reconcile left as its own cluster.
func (s *Stats) RecordKept() {
	s.Processed++
}

func (s *Stats) Finish(reason StopReason) {
	s.Stopped = reason
	s.FinishedAt = time.Now().UTC()
}

func (s *Stats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Succeeded reports whether the run finished without per-record errors or a fatal condition.
func (s *Stats) Succeeded() bool {
	return s.Fatal == "" && s.Errored == 0
}
