// Package transcribe runs the speech-to-text stage: it converts a meeting's
// audio reference into an ordered, non-overlapping segment sequence with a
// detected language.
package transcribe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/model"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// MinDurationSec is the shortest recording the stage accepts. Anything
// shorter is treated as unreadable input, not retried.
const MinDurationSec = 1.0

// Config holds transcription stage settings.
type Config struct {
	// LanguageHint is an optional BCP 47 code. Empty means auto-detect.
	LanguageHint string

	// MinDurationSec overrides the minimum accepted recording length.
	// Zero means the package default.
	MinDurationSec float64
}

// Stage is the transcription stage.
type Stage struct {
	transcriber model.Transcriber
	config      Config
	logger      logging.Logger
}

// NewStage creates a transcription stage.
func NewStage(t model.Transcriber, cfg Config, logger logging.Logger) *Stage {
	if cfg.MinDurationSec == 0 {
		cfg.MinDurationSec = MinDurationSec
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Stage{transcriber: t, config: cfg, logger: logger}
}

// Run transcribes the meeting's audio and fills in Segments and Language.
// Speaker labels are left empty for the diarization stage.
func (s *Stage) Run(ctx context.Context, m *note.Meeting) error {
	if m.AudioPath == "" {
		return qnerrors.NewPipelineError(qnerrors.ErrTranscriptionFailed, string(note.StageTranscribing),
			"meeting has no audio reference", nil)
	}

	hint := s.config.LanguageHint
	if m.Language != "" {
		hint = m.Language
	}

	tr, err := s.transcriber.Transcribe(ctx, m.AudioPath, hint)
	if err != nil {
		pe := qnerrors.ClassifyError(err, string(note.StageTranscribing))
		if pe.Code == qnerrors.ErrProcessingError {
			pe.Code = qnerrors.ErrTranscriptionFailed
		}
		return pe
	}

	if tr.DurationSec < s.config.MinDurationSec {
		return qnerrors.NewPipelineError(qnerrors.ErrTranscriptionFailed, string(note.StageTranscribing),
			fmt.Sprintf("recording too short: %.2fs < %.2fs minimum", tr.DurationSec, s.config.MinDurationSec), nil)
	}

	segments := normalizeSegments(tr.Segments)
	if len(segments) == 0 {
		return qnerrors.NewPipelineError(qnerrors.ErrTranscriptionFailed, string(note.StageTranscribing),
			"no speech detected", nil)
	}

	m.Segments = segments
	m.Language = normalizeLanguage(tr.Language)

	s.logger.Info("transcription complete",
		logging.F("meeting_id", m.ID),
		logging.F("segments", len(segments)),
		logging.F("language", m.Language),
		logging.F("duration_sec", tr.DurationSec))
	return nil
}

// normalizeSegments drops empty segments, orders them by start time, and
// clamps overlaps so start times are strictly increasing and no segment
// starts before the previous one ends.
func normalizeSegments(in []model.TranscriptSegment) []note.Segment {
	out := make([]note.Segment, 0, len(in))
	for _, s := range in {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		out = append(out, note.Segment{
			StartSec:   s.StartSec,
			EndSec:     s.EndSec,
			Text:       text,
			Confidence: s.Confidence,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartSec < out[j].StartSec })

	for i := 1; i < len(out); i++ {
		prev := &out[i-1]
		cur := &out[i]
		if cur.StartSec < prev.EndSec {
			cur.StartSec = prev.EndSec
		}
		if cur.EndSec < cur.StartSec {
			cur.EndSec = cur.StartSec
		}
		if cur.StartSec <= prev.StartSec {
			cur.StartSec = prev.StartSec + 0.001
			if cur.EndSec < cur.StartSec {
				cur.EndSec = cur.StartSec
			}
		}
	}
	return out
}

// normalizeLanguage canonicalizes a backend-reported language code to a
// BCP 47 base tag ("english" and "EN" both become "en"). Unknown values
// fall back to "en".
func normalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "en"
	}
	tag, err := language.Parse(code)
	if err != nil {
		// Backends sometimes report full names instead of codes.
		if t, nameErr := parseLanguageName(code); nameErr == nil {
			return t
		}
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}

var languageNames = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"japanese":   "ja",
	"chinese":    "zh",
	"korean":     "ko",
	"russian":    "ru",
	"hindi":      "hi",
}

func parseLanguageName(name string) (string, error) {
	if code, ok := languageNames[strings.ToLower(name)]; ok {
		return code, nil
	}
	return "", fmt.Errorf("unknown language name %q", name)
}
