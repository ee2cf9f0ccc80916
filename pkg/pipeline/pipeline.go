// Package pipeline orchestrates meeting processing as an explicit state
// machine: Received, Transcribing, Diarizing, Summarizing,
// ExtractingActions, Indexing, Complete, with Failed as the absorbing
// state. Every transition is persisted, so a crashed or failed run leaves
// an inspectable record with all completed work intact.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/observability"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/store"
)

// StageRunner is one model-backed pipeline stage operating on the meeting
// in place.
type StageRunner interface {
	Run(ctx context.Context, m *note.Meeting) error
}

// ActionExtractor produces the meeting's action item set.
type ActionExtractor interface {
	Extract(m *note.Meeting) []note.ActionItem
}

// MeetingIndexer pushes meeting text into the vector index.
type MeetingIndexer interface {
	Index(ctx context.Context, meetingID, text string) error
}

// ReindexEnqueuer parks a meeting for asynchronous re-indexing after an
// indexing failure.
type ReindexEnqueuer interface {
	Enqueue(ctx context.Context, meetingID string) error
}

// Pipeline runs meetings through the processing stages.
type Pipeline struct {
	store      store.Store
	transcribe StageRunner
	diarize    StageRunner
	summarize  StageRunner
	extractor  ActionExtractor
	indexer    MeetingIndexer
	reindex    ReindexEnqueuer // optional
	metrics    *observability.Metrics
	logger     logging.Logger
	tracer     trace.Tracer

	mu      sync.Mutex
	running map[string]bool
}

// New creates a pipeline. reindex may be nil; indexing failures are then
// only logged.
func New(
	st store.Store,
	transcribe, diarize, summarize StageRunner,
	extractor ActionExtractor,
	indexer MeetingIndexer,
	reindex ReindexEnqueuer,
	metrics *observability.Metrics,
	logger logging.Logger,
) *Pipeline {
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pipeline{
		store:      st,
		transcribe: transcribe,
		diarize:    diarize,
		summarize:  summarize,
		extractor:  extractor,
		indexer:    indexer,
		reindex:    reindex,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("quicknotes/pipeline"),
		running:    make(map[string]bool),
	}
}

// Process runs the meeting through all stages. At most one run per meeting
// id is active at a time; a second concurrent call fails with
// ErrAlreadyRunning. Re-processing a Failed or Complete meeting restarts
// from transcription.
func (p *Pipeline) Process(ctx context.Context, m *note.Meeting) error {
	if err := p.acquire(m.ID); err != nil {
		return err
	}
	defer p.release(m.ID)

	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("meeting.id", m.ID)))
	defer span.End()

	log := p.logger.With(logging.F("meeting_id", m.ID))

	// A re-run discards intermediate artifacts; they may have been
	// produced by a different model version.
	m.Segments = nil
	m.Summary = nil
	m.FailedStage = ""
	m.Error = ""

	if err := p.transition(ctx, m, note.StatusTranscribing); err != nil {
		return err
	}
	if err := p.runStage(ctx, m, note.StageTranscribing, p.transcribe); err != nil {
		return p.fail(ctx, m, note.StageTranscribing, err, log)
	}

	if err := p.transition(ctx, m, note.StatusDiarizing); err != nil {
		return err
	}
	if err := p.runStage(ctx, m, note.StageDiarizing, p.diarize); err != nil {
		if qnerrors.Code(err) == qnerrors.ErrDiarizationDegraded {
			log.Warn("diarization degraded, continuing", logging.Err(err))
		} else {
			return p.fail(ctx, m, note.StageDiarizing, err, log)
		}
	}

	return p.runFromSummarizing(ctx, m, log)
}

// ProcessFromSummarizing runs the pipeline tail for a meeting whose
// transcript came from an already-transcribed source. The same per-meeting
// run lock applies.
func (p *Pipeline) ProcessFromSummarizing(ctx context.Context, m *note.Meeting) error {
	if err := p.acquire(m.ID); err != nil {
		return err
	}
	defer p.release(m.ID)

	ctx, span := p.tracer.Start(ctx, "pipeline.process_transcript",
		trace.WithAttributes(attribute.String("meeting.id", m.ID)))
	defer span.End()

	log := p.logger.With(logging.F("meeting_id", m.ID))
	m.FailedStage = ""
	m.Error = ""
	return p.runFromSummarizing(ctx, m, log)
}

func (p *Pipeline) runFromSummarizing(ctx context.Context, m *note.Meeting, log logging.Logger) error {
	if err := p.transition(ctx, m, note.StatusSummarizing); err != nil {
		return err
	}
	if err := p.runStage(ctx, m, note.StageSummarizing, p.summarize); err != nil {
		return p.fail(ctx, m, note.StageSummarizing, err, log)
	}

	if err := p.transition(ctx, m, note.StatusExtractingActions); err != nil {
		return err
	}
	items := p.extractor.Extract(m)
	if err := p.store.ReplaceActionItems(ctx, m.ID, items); err != nil {
		return p.fail(ctx, m, note.StageExtractingActions,
			qnerrors.NewPipelineError(qnerrors.ErrProcessingError, string(note.StageExtractingActions), "persist action items", err), log)
	}
	if len(items) == 0 {
		log.Info("no action items extracted")
	} else {
		log.Info("action items extracted", logging.F("count", len(items)))
	}

	if err := p.transition(ctx, m, note.StatusIndexing); err != nil {
		return err
	}
	if err := p.indexer.Index(ctx, m.ID, m.IndexableText()); err != nil {
		// Indexing never blocks completion; the meeting is parked for an
		// asynchronous retry instead.
		log.Error("indexing failed, meeting completes unindexed", logging.Err(err))
		p.metrics.StageFailures.WithLabelValues(string(note.StageIndexing), string(qnerrors.Code(err))).Inc()
		if p.reindex != nil {
			if qErr := p.reindex.Enqueue(ctx, m.ID); qErr != nil {
				log.Error("reindex enqueue failed", logging.Err(qErr))
			}
		}
	}

	if err := p.transition(ctx, m, note.StatusComplete); err != nil {
		return err
	}
	p.metrics.MeetingsProcessed.WithLabelValues(string(note.StatusComplete)).Inc()
	log.Info("meeting processing complete",
		logging.F("segments", len(m.Segments)),
		logging.F("bullets", len(m.Summary)),
		logging.F("action_items", len(items)))
	return nil
}

func (p *Pipeline) acquire(meetingID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running[meetingID] {
		return fmt.Errorf("meeting %s: %w", meetingID, qnerrors.ErrAlreadyRunning)
	}
	p.running[meetingID] = true
	return nil
}

func (p *Pipeline) release(meetingID string) {
	p.mu.Lock()
	delete(p.running, meetingID)
	p.mu.Unlock()
}

// transition commits a state change before the stage it announces runs.
func (p *Pipeline) transition(ctx context.Context, m *note.Meeting, status note.Status) error {
	m.Status = status
	if err := p.store.SaveMeeting(ctx, m); err != nil {
		return fmt.Errorf("persist transition to %s: %w", status, err)
	}
	p.logger.Debug("pipeline transition",
		logging.F("meeting_id", m.ID),
		logging.F("status", string(status)))
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, m *note.Meeting, stage note.Stage, runner StageRunner) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.stage."+string(stage))
	defer span.End()

	start := time.Now()
	err := runner.Run(ctx, m)
	p.metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(qnerrors.Code(err)))
	}
	return err
}

// fail moves the meeting to the absorbing Failed state, preserving every
// field computed by earlier stages.
func (p *Pipeline) fail(ctx context.Context, m *note.Meeting, stage note.Stage, cause error, log logging.Logger) error {
	pe := qnerrors.ClassifyError(cause, string(stage))

	m.Status = note.StatusFailed
	m.FailedStage = stage
	m.Error = pe.Error()

	if saveErr := p.store.SaveMeeting(ctx, m); saveErr != nil {
		log.Error("persisting failed state", logging.Err(saveErr))
	}

	p.metrics.MeetingsProcessed.WithLabelValues(string(note.StatusFailed)).Inc()
	p.metrics.StageFailures.WithLabelValues(string(stage), string(pe.Code)).Inc()
	log.Error("pipeline failed",
		logging.F("stage", string(stage)),
		logging.F("code", string(pe.Code)),
		logging.Err(cause))
	return pe
}
