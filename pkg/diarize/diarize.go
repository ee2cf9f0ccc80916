// Package diarize assigns speaker labels to transcript segments.
//
// Without a dedicated voice-embedding model the stage clusters segments by
// silence gaps: a pause longer than the threshold between consecutive
// segments marks a likely speaker change. Labels are scoped to one meeting
// ("Speaker 1", "Speaker 2", ...). When clustering cannot run, the stage
// applies a single-speaker fallback and reports a degraded, non-fatal
// condition instead of failing the pipeline.
package diarize

import (
	"context"
	"fmt"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// PauseThresholdSec is the silence gap that signals a speaker change.
const PauseThresholdSec = 1.5

// MaxSpeakers bounds how many distinct labels pause cycling produces.
const MaxSpeakers = 3

// FallbackSpeaker is the label used when diarization degrades.
const FallbackSpeaker = "Speaker 1"

// Config holds diarization stage settings.
type Config struct {
	// PauseThresholdSec overrides the speaker-change silence gap.
	// Zero means the package default.
	PauseThresholdSec float64

	// Disabled forces the single-speaker fallback.
	Disabled bool
}

// Stage is the diarization stage.
type Stage struct {
	config Config
	logger logging.Logger
}

// NewStage creates a diarization stage.
func NewStage(cfg Config, logger logging.Logger) *Stage {
	if cfg.PauseThresholdSec == 0 {
		cfg.PauseThresholdSec = PauseThresholdSec
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Stage{config: cfg, logger: logger}
}

// Run labels every segment with a speaker. A returned error always has code
// DiarizationDegraded and means the single-speaker fallback was applied; the
// meeting is still fully labeled and the pipeline may proceed.
func (s *Stage) Run(ctx context.Context, m *note.Meeting) error {
	if err := ctx.Err(); err != nil {
		return qnerrors.ClassifyError(err, string(note.StageDiarizing))
	}
	if len(m.Segments) == 0 {
		return qnerrors.NewPipelineError(qnerrors.ErrDiarizationDegraded, string(note.StageDiarizing),
			"no segments to diarize", nil)
	}

	if s.config.Disabled {
		applyFallback(m)
		return qnerrors.NewPipelineError(qnerrors.ErrDiarizationDegraded, string(note.StageDiarizing),
			"diarization disabled, single-speaker fallback applied", nil)
	}

	labelByPauses(m.Segments, s.config.PauseThresholdSec)
	m.Segments = mergeRuns(m.Segments)

	s.logger.Info("diarization complete",
		logging.F("meeting_id", m.ID),
		logging.F("speakers", len(m.Speakers())),
		logging.F("segments", len(m.Segments)))
	return nil
}

// labelByPauses walks the segment sequence and cycles to a new speaker label
// whenever the silence gap before a segment exceeds the threshold.
func labelByPauses(segments []note.Segment, threshold float64) {
	speaker := 1
	lastEnd := 0.0
	for i := range segments {
		gap := segments[i].StartSec - lastEnd
		if lastEnd > 0 && gap > threshold {
			speaker = speaker%MaxSpeakers + 1
		}
		segments[i].Speaker = fmt.Sprintf("Speaker %d", speaker)
		lastEnd = segments[i].EndSec
	}
}

// mergeRuns joins consecutive segments that share a speaker label into one
// segment spanning the combined time range.
func mergeRuns(segments []note.Segment) []note.Segment {
	if len(segments) == 0 {
		return segments
	}
	merged := make([]note.Segment, 0, len(segments))
	cur := segments[0]
	for _, seg := range segments[1:] {
		if seg.Speaker == cur.Speaker {
			cur.Text = cur.Text + " " + seg.Text
			cur.EndSec = seg.EndSec
			if seg.Confidence < cur.Confidence {
				cur.Confidence = seg.Confidence
			}
			continue
		}
		merged = append(merged, cur)
		cur = seg
	}
	return append(merged, cur)
}

func applyFallback(m *note.Meeting) {
	for i := range m.Segments {
		m.Segments[i].Speaker = FallbackSpeaker
	}
}
