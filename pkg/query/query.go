// Package query answers natural-language questions over indexed meetings:
// retrieve the closest chunks, ground a generation prompt in them, and
// return the answer with the meetings it cites.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/model"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/observability"
)

// NoResultsResponse is returned verbatim when the index holds nothing
// relevant; the generation backend is not called in that case.
const NoResultsResponse = "No relevant meetings found. Process a meeting first, or try rephrasing the question."

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 5

// maxContextChars bounds how much retrieved text goes into the prompt.
const maxContextChars = 6000

const answerPromptFmt = `Based on the following meeting excerpts, answer the question. Be concise and specific. If the excerpts do not contain the answer, say so. Cite meetings by their bracketed number.

EXCERPTS:
%s

QUESTION: %s

ANSWER:`

// Searcher is the retrieval side of the engine.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]note.SearchHit, error)
}

// MeetingResolver maps a meeting id to its record, for citation headers.
type MeetingResolver interface {
	GetMeeting(ctx context.Context, id string) (*note.Meeting, error)
}

// Engine answers questions over the index.
type Engine struct {
	searcher  Searcher
	generator model.Generator
	meetings  MeetingResolver // optional, enriches citations with titles
	metrics   *observability.Metrics
	logger    logging.Logger
	tracer    trace.Tracer
}

// NewEngine creates a query engine. meetings may be nil.
func NewEngine(searcher Searcher, generator model.Generator, meetings MeetingResolver, metrics *observability.Metrics, logger logging.Logger) *Engine {
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		searcher:  searcher,
		generator: generator,
		meetings:  meetings,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer("quicknotes/query"),
	}
}

// Ask retrieves the top-k chunks for the question and produces a grounded
// answer citing the meetings the chunks came from. An empty retrieval
// returns the fixed no-results response without a generation call.
func (e *Engine) Ask(ctx context.Context, question string, k int) (*note.Answer, error) {
	if k <= 0 {
		k = DefaultK
	}
	ctx, span := e.tracer.Start(ctx, "query.ask",
		trace.WithAttributes(attribute.Int("query.k", k)))
	defer span.End()

	start := time.Now()
	defer func() {
		e.metrics.Queries.Inc()
		e.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	hits, err := e.searcher.Search(ctx, question, k)
	if err != nil {
		pe := qnerrors.ClassifyError(err, "")
		if pe.Code == qnerrors.ErrProcessingError {
			pe.Code = qnerrors.ErrQueryFailed
		}
		return nil, pe
	}
	if len(hits) == 0 {
		return &note.Answer{Text: NoResultsResponse}, nil
	}

	context_, meetingIDs := e.buildContext(ctx, hits)

	raw, err := e.generator.Generate(ctx, model.GenerateRequest{
		Prompt: fmt.Sprintf(answerPromptFmt, context_, question),
	})
	if err != nil {
		pe := qnerrors.ClassifyError(err, "")
		if pe.Code == qnerrors.ErrProcessingError {
			pe.Code = qnerrors.ErrQueryFailed
		}
		return nil, pe
	}

	e.logger.Info("question answered",
		logging.F("chunks", len(hits)),
		logging.F("meetings", len(meetingIDs)))
	return &note.Answer{
		Text:       strings.TrimSpace(raw),
		MeetingIDs: meetingIDs,
	}, nil
}

// buildContext assembles the excerpt block and the ordered, deduplicated
// list of cited meeting ids.
func (e *Engine) buildContext(ctx context.Context, hits []note.SearchHit) (string, []string) {
	var (
		parts      []string
		meetingIDs []string
		seen       = make(map[string]int)
		total      int
	)

	for _, hit := range hits {
		n, ok := seen[hit.Chunk.MeetingID]
		if !ok {
			meetingIDs = append(meetingIDs, hit.Chunk.MeetingID)
			n = len(meetingIDs)
			seen[hit.Chunk.MeetingID] = n
		}

		header := fmt.Sprintf("[%d] meeting %s", n, hit.Chunk.MeetingID)
		if e.meetings != nil {
			if m, err := e.meetings.GetMeeting(ctx, hit.Chunk.MeetingID); err == nil {
				header = fmt.Sprintf("[%d] %s (%s)", n, m.Title, m.CreatedAt.Format("2006-01-02"))
			}
		}

		part := header + "\n" + hit.Chunk.Text
		if total+len(part) > maxContextChars {
			break
		}
		parts = append(parts, part)
		total += len(part)
	}

	return strings.Join(parts, "\n\n---\n\n"), meetingIDs
}
