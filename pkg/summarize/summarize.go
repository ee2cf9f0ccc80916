// Package summarize produces a structured bullet summary of an attributed
// transcript via the text generation backend.
//
// Generation is non-deterministic but the output shape is enforced: the raw
// model text is parsed against a bullet grammar, the model is re-prompted
// once on parse failure, and only then does the stage fail. Long transcripts
// are summarized map-reduce style to bound context usage.
package summarize

import (
	"context"
	"fmt"
	"strings"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/model"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// MaxChunkChars bounds how much transcript goes into one generation call.
// Transcripts above this are summarized per-chunk and then reduced.
const MaxChunkChars = 8000

const systemPrompt = `You summarize meeting transcripts. Always answer with a "## SUMMARY" heading followed by bullet points starting with "- ". Keep speaker names in the bullets. Never answer in prose.`

const summaryPromptFmt = `Summarize this meeting transcript as bullet points. Preserve who said or committed to what. Include decisions, action items with assignees and deadlines, and open questions.

Transcript:
%s`

const reducePromptFmt = `The following are partial summaries of one long meeting. Merge them into a single deduplicated bullet summary. Keep the "## SUMMARY" heading and "- " bullets.

%s`

const retryPromptFmt = `Your previous answer was not in the required format. Respond again with a "## SUMMARY" heading and "- " bullet points only.

%s`

// Config holds summarization stage settings.
type Config struct {
	// Temperature passed to the generation backend. Zero uses the
	// backend default.
	Temperature float32

	// MaxChunkChars overrides the map-reduce chunk bound. Zero means the
	// package default.
	MaxChunkChars int
}

// Stage is the summarization stage.
type Stage struct {
	generator model.Generator
	config    Config
	logger    logging.Logger
}

// NewStage creates a summarization stage.
func NewStage(g model.Generator, cfg Config, logger logging.Logger) *Stage {
	if cfg.MaxChunkChars == 0 {
		cfg.MaxChunkChars = MaxChunkChars
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Stage{generator: g, config: cfg, logger: logger}
}

// Run summarizes the meeting transcript and fills in Summary.
func (s *Stage) Run(ctx context.Context, m *note.Meeting) error {
	transcript := m.Transcript()
	if strings.TrimSpace(transcript) == "" {
		return qnerrors.NewPipelineError(qnerrors.ErrSummarizationFailed, string(note.StageSummarizing),
			"empty transcript", nil)
	}

	text := transcript
	if len(text) > s.config.MaxChunkChars {
		reduced, err := s.mapReduce(ctx, text)
		if err != nil {
			return err
		}
		m.Summary = reduced
		return nil
	}

	bullets, err := s.summarizeOnce(ctx, fmt.Sprintf(summaryPromptFmt, text))
	if err != nil {
		return err
	}
	m.Summary = bullets

	s.logger.Info("summarization complete",
		logging.F("meeting_id", m.ID),
		logging.F("bullets", len(bullets)))
	return nil
}

// mapReduce summarizes each transcript chunk independently, then merges the
// partial summaries with a final reduce call.
func (s *Stage) mapReduce(ctx context.Context, text string) ([]string, error) {
	chunks := splitChunks(text, s.config.MaxChunkChars)

	var partials []string
	for _, chunk := range chunks {
		bullets, err := s.summarizeOnce(ctx, fmt.Sprintf(summaryPromptFmt, chunk))
		if err != nil {
			return nil, err
		}
		partials = append(partials, "## SUMMARY\n"+strings.Join(prefixBullets(bullets), "\n"))
	}

	return s.summarizeOnce(ctx, fmt.Sprintf(reducePromptFmt, strings.Join(partials, "\n\n")))
}

// summarizeOnce runs one generation call, parsing the output against the
// bullet grammar and re-prompting a single time on parse failure.
func (s *Stage) summarizeOnce(ctx context.Context, prompt string) ([]string, error) {
	raw, err := s.generator.Generate(ctx, model.GenerateRequest{
		Prompt:      prompt,
		System:      systemPrompt,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return nil, qnerrors.ClassifyError(err, string(note.StageSummarizing))
	}

	bullets, parseErr := ParseBullets(raw)
	if parseErr == nil {
		return bullets, nil
	}

	s.logger.Warn("summary output unparsable, re-prompting",
		logging.Err(parseErr))

	raw, err = s.generator.Generate(ctx, model.GenerateRequest{
		Prompt:      fmt.Sprintf(retryPromptFmt, prompt),
		System:      systemPrompt,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return nil, qnerrors.ClassifyError(err, string(note.StageSummarizing))
	}

	bullets, parseErr = ParseBullets(raw)
	if parseErr != nil {
		return nil, qnerrors.NewPipelineError(qnerrors.ErrSummarizationFailed, string(note.StageSummarizing),
			fmt.Sprintf("output unparsable after retry: %v", parseErr), parseErr)
	}
	return bullets, nil
}

// ParseBullets validates raw model output against the bullet grammar and
// returns the bullet texts without markers. Accepted markers are "-", "*",
// and "•"; a "## SUMMARY" heading and blank lines are ignored. Any other
// non-empty prose line is a parse failure.
func ParseBullets(raw string) ([]string, error) {
	var bullets []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		marker := ""
		for _, m := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, m) {
				marker = m
				break
			}
		}
		if marker == "" {
			return nil, fmt.Errorf("non-bullet line %q", truncate(line, 60))
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, marker))
		if text != "" {
			bullets = append(bullets, text)
		}
	}
	if len(bullets) == 0 {
		return nil, fmt.Errorf("no bullet points found")
	}
	return bullets, nil
}

// splitChunks cuts text into pieces of at most max characters, preferring
// line boundaries so speaker turns stay intact.
func splitChunks(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}
	var chunks []string
	for len(text) > max {
		cut := strings.LastIndex(text[:max], "\n")
		if cut <= 0 {
			cut = max
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func prefixBullets(bullets []string) []string {
	out := make([]string, len(bullets))
	for i, b := range bullets {
		out[i] = "- " + b
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
