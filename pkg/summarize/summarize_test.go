package summarize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/model"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// scriptedGenerator returns queued responses in order.
type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, req model.GenerateRequest) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return "", g.err
	}
	i := g.calls - 1
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i], nil
}

func meetingWithTranscript(lines ...string) *note.Meeting {
	m := note.NewMeeting("planning")
	for i, l := range lines {
		m.Segments = append(m.Segments, note.Segment{
			StartSec: float64(i * 5),
			EndSec:   float64(i*5 + 4),
			Text:     l,
			Speaker:  "Speaker 1",
		})
	}
	return m
}

func TestStage_Run(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"## SUMMARY\n- Alice will draft the proposal\n- Budget approved",
	}}

	stage := NewStage(gen, Config{}, logging.NewNopLogger())
	m := meetingWithTranscript("we discussed the proposal", "budget was approved")

	require.NoError(t, stage.Run(context.Background(), m))
	assert.Equal(t, []string{"Alice will draft the proposal", "Budget approved"}, m.Summary)
	assert.Equal(t, 1, gen.calls)
}

func TestStage_RepromptOnceOnParseFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"Sure! Here is the summary you asked for.",
		"## SUMMARY\n- Decision recorded",
	}}

	stage := NewStage(gen, Config{}, logging.NewNopLogger())
	m := meetingWithTranscript("some discussion")

	require.NoError(t, stage.Run(context.Background(), m))
	assert.Equal(t, []string{"Decision recorded"}, m.Summary)
	assert.Equal(t, 2, gen.calls)
}

func TestStage_FailsAfterSecondParseFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"prose prose prose",
		"still prose",
	}}

	stage := NewStage(gen, Config{}, logging.NewNopLogger())
	m := meetingWithTranscript("some discussion")

	err := stage.Run(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, qnerrors.ErrSummarizationFailed, qnerrors.Code(err))
	assert.True(t, qnerrors.IsFatal(err))
	assert.Equal(t, 2, gen.calls)
	assert.Empty(t, m.Summary)
}

func TestStage_BackendUnavailable(t *testing.T) {
	gen := &scriptedGenerator{err: qnerrors.NewPipelineError(qnerrors.ErrModelUnavailable, "", "connection refused", nil)}

	stage := NewStage(gen, Config{}, logging.NewNopLogger())
	m := meetingWithTranscript("discussion")

	err := stage.Run(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, qnerrors.ErrModelUnavailable, qnerrors.Code(err))
}

func TestStage_EmptyTranscript(t *testing.T) {
	stage := NewStage(&scriptedGenerator{}, Config{}, logging.NewNopLogger())
	m := note.NewMeeting("nothing")

	err := stage.Run(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, qnerrors.ErrSummarizationFailed, qnerrors.Code(err))
}

func TestStage_MapReduceForLongTranscripts(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"## SUMMARY\n- partial point",
	}}

	stage := NewStage(gen, Config{MaxChunkChars: 200}, logging.NewNopLogger())
	m := meetingWithTranscript(
		strings.Repeat("first half of a very long discussion. ", 5),
		strings.Repeat("second half of a very long discussion. ", 5),
	)

	require.NoError(t, stage.Run(context.Background(), m))
	assert.Equal(t, []string{"partial point"}, m.Summary)
	// At least one map call per chunk plus the final reduce.
	assert.GreaterOrEqual(t, gen.calls, 3)
	// The final call is the reduce over partial summaries.
	assert.Contains(t, gen.prompts[gen.calls-1], "partial point")
}

func TestParseBullets(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"dash bullets", "## SUMMARY\n- a\n- b", []string{"a", "b"}, false},
		{"star bullets", "* a\n* b", []string{"a", "b"}, false},
		{"unicode bullets", "• a", []string{"a"}, false},
		{"blank lines ignored", "- a\n\n- b\n", []string{"a", "b"}, false},
		{"prose line fails", "- a\nand also some prose", nil, true},
		{"empty output fails", "", nil, true},
		{"heading only fails", "## SUMMARY", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBullets(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitChunks(t *testing.T) {
	text := "line one\nline two\nline three\nline four"
	chunks := splitChunks(text, 20)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 20)
		assert.NotEmpty(t, c)
	}
	assert.Equal(t, strings.ReplaceAll(text, "\n", " "), strings.ReplaceAll(strings.Join(chunks, " "), "\n", " "))
}
