package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/store"
)

// stageFunc adapts a func to StageRunner.
type stageFunc func(ctx context.Context, m *note.Meeting) error

func (f stageFunc) Run(ctx context.Context, m *note.Meeting) error { return f(ctx, m) }

type fakeExtractor struct{ items []note.ActionItem }

func (f *fakeExtractor) Extract(m *note.Meeting) []note.ActionItem { return f.items }

type fakeIndexer struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeIndexer) Index(ctx context.Context, meetingID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, meetingID)
	return f.err
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeQueue) Enqueue(ctx context.Context, meetingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, meetingID)
	return nil
}

func okTranscribe(ctx context.Context, m *note.Meeting) error {
	m.Segments = []note.Segment{{StartSec: 0, EndSec: 5, Text: "hello"}}
	m.Language = "en"
	return nil
}

func okDiarize(ctx context.Context, m *note.Meeting) error {
	for i := range m.Segments {
		m.Segments[i].Speaker = "Speaker 1"
	}
	return nil
}

func okSummarize(ctx context.Context, m *note.Meeting) error {
	m.Summary = []string{"a decision was made"}
	return nil
}

func newPipeline(st store.Store, idx MeetingIndexer, q ReindexEnqueuer, stages ...StageRunner) *Pipeline {
	transcribe := StageRunner(stageFunc(okTranscribe))
	diarize := StageRunner(stageFunc(okDiarize))
	summarize := StageRunner(stageFunc(okSummarize))
	if len(stages) > 0 && stages[0] != nil {
		transcribe = stages[0]
	}
	if len(stages) > 1 && stages[1] != nil {
		diarize = stages[1]
	}
	if len(stages) > 2 && stages[2] != nil {
		summarize = stages[2]
	}
	return New(st, transcribe, diarize, summarize, &fakeExtractor{}, idx, q, nil, logging.NewNopLogger())
}

func TestProcess_HappyPath(t *testing.T) {
	st := store.NewMemoryStore()
	idx := &fakeIndexer{}
	p := newPipeline(st, idx, nil)

	m := note.NewMeeting("standup")
	m.AudioPath = "/tmp/a.wav"
	require.NoError(t, st.SaveMeeting(context.Background(), m))

	require.NoError(t, p.Process(context.Background(), m))

	stored, err := st.GetMeeting(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, note.StatusComplete, stored.Status)
	assert.NotEmpty(t, stored.Segments)
	assert.NotEmpty(t, stored.Summary)
	assert.Equal(t, []string{m.ID}, idx.calls)
}

func TestProcess_TranscriptionFailureAborts(t *testing.T) {
	st := store.NewMemoryStore()
	idx := &fakeIndexer{}
	failing := stageFunc(func(ctx context.Context, m *note.Meeting) error {
		return qnerrors.NewPipelineError(qnerrors.ErrTranscriptionFailed, "transcribing", "too short", nil)
	})
	p := newPipeline(st, idx, nil, failing)

	m := note.NewMeeting("blip")
	require.NoError(t, st.SaveMeeting(context.Background(), m))

	err := p.Process(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, qnerrors.ErrTranscriptionFailed, qnerrors.Code(err))

	stored, _ := st.GetMeeting(context.Background(), m.ID)
	assert.Equal(t, note.StatusFailed, stored.Status)
	assert.Equal(t, note.StageTranscribing, stored.FailedStage)
	// Diarization and beyond never ran.
	assert.Empty(t, idx.calls)
}

func TestProcess_SummarizationFailurePreservesTranscript(t *testing.T) {
	st := store.NewMemoryStore()
	failing := stageFunc(func(ctx context.Context, m *note.Meeting) error {
		return qnerrors.NewPipelineError(qnerrors.ErrSummarizationFailed, "summarizing", "unparsable", nil)
	})
	p := newPipeline(st, &fakeIndexer{}, nil, nil, nil, failing)

	m := note.NewMeeting("planning")
	require.NoError(t, st.SaveMeeting(context.Background(), m))

	err := p.Process(context.Background(), m)
	require.Error(t, err)

	stored, _ := st.GetMeeting(context.Background(), m.ID)
	assert.Equal(t, note.StatusFailed, stored.Status)
	assert.Equal(t, note.StageSummarizing, stored.FailedStage)
	// Transcript and diarization survive the failure.
	require.NotEmpty(t, stored.Segments)
	assert.Equal(t, "Speaker 1", stored.Segments[0].Speaker)
	assert.Empty(t, stored.Summary)
}

func TestProcess_ReprocessRestartsFromTranscribing(t *testing.T) {
	st := store.NewMemoryStore()
	calls := 0
	counting := stageFunc(func(ctx context.Context, m *note.Meeting) error {
		calls++
		return okTranscribe(ctx, m)
	})
	p := newPipeline(st, &fakeIndexer{}, nil, counting)

	m := note.NewMeeting("retry")
	require.NoError(t, st.SaveMeeting(context.Background(), m))

	require.NoError(t, p.Process(context.Background(), m))
	require.NoError(t, p.Process(context.Background(), m))
	assert.Equal(t, 2, calls)

	stored, _ := st.GetMeeting(context.Background(), m.ID)
	assert.Equal(t, note.StatusComplete, stored.Status)
	assert.Empty(t, stored.FailedStage)
}

func TestProcess_DiarizationDegradedContinues(t *testing.T) {
	st := store.NewMemoryStore()
	degraded := stageFunc(func(ctx context.Context, m *note.Meeting) error {
		for i := range m.Segments {
			m.Segments[i].Speaker = "Speaker 1"
		}
		return qnerrors.NewPipelineError(qnerrors.ErrDiarizationDegraded, "diarizing", "fallback", nil)
	})
	p := newPipeline(st, &fakeIndexer{}, nil, nil, degraded)

	m := note.NewMeeting("degraded")
	require.NoError(t, st.SaveMeeting(context.Background(), m))

	require.NoError(t, p.Process(context.Background(), m))

	stored, _ := st.GetMeeting(context.Background(), m.ID)
	assert.Equal(t, note.StatusComplete, stored.Status)
}

func TestProcess_IndexingFailureStillCompletes(t *testing.T) {
	st := store.NewMemoryStore()
	idx := &fakeIndexer{err: qnerrors.NewPipelineError(qnerrors.ErrIndexingFailed, "indexing", "backend down", nil)}
	q := &fakeQueue{}
	p := newPipeline(st, idx, q)

	m := note.NewMeeting("unindexed")
	require.NoError(t, st.SaveMeeting(context.Background(), m))

	require.NoError(t, p.Process(context.Background(), m))

	stored, _ := st.GetMeeting(context.Background(), m.ID)
	assert.Equal(t, note.StatusComplete, stored.Status)
	// Parked for async reindexing.
	assert.Equal(t, []string{m.ID}, q.ids)
}

func TestProcess_ConcurrentSameMeetingRejected(t *testing.T) {
	st := store.NewMemoryStore()
	started := make(chan struct{})
	block := make(chan struct{})
	slow := stageFunc(func(ctx context.Context, m *note.Meeting) error {
		close(started)
		<-block
		return okTranscribe(ctx, m)
	})
	p := newPipeline(st, &fakeIndexer{}, nil, slow)

	m := note.NewMeeting("contended")
	require.NoError(t, st.SaveMeeting(context.Background(), m))

	done := make(chan error, 1)
	go func() { done <- p.Process(context.Background(), m) }()
	<-started

	second := note.NewMeeting("contended")
	second.ID = m.ID
	err := p.Process(context.Background(), second)
	assert.True(t, qnerrors.IsAlreadyRunning(err))

	close(block)
	require.NoError(t, <-done)
}

func TestProcess_DifferentMeetingsConcurrently(t *testing.T) {
	st := store.NewMemoryStore()
	p := newPipeline(st, &fakeIndexer{}, nil)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		m := note.NewMeeting("m")
		require.NoError(t, st.SaveMeeting(context.Background(), m))
		wg.Add(1)
		go func(i int, m *note.Meeting) {
			defer wg.Done()
			errs[i] = p.Process(context.Background(), m)
		}(i, m)
	}

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent processing deadlocked")
	}
	for _, err := range errs {
		assert.NoError(t, err)
	}
}
