package cmd

import (
	"bytes"
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaurya-ahuja/quicknotes-ai/config"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/index"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/model"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/observability"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/store"
)

type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, req model.GenerateRequest) (string, error) {
	if strings.Contains(req.Prompt, "QUESTION:") {
		return "The release ships Friday [1].", nil
	}
	return "## SUMMARY\n- Release ships Friday\n- Bob reviews the deck", nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, _ string, _ string) (*model.Transcription, error) {
	return &model.Transcription{
		Language:    "en",
		DurationSec: 30,
		Segments: []model.TranscriptSegment{
			{StartSec: 0, EndSec: 15, Text: "We will ship the release by Friday.", Confidence: 0.95},
			{StartSec: 18, EndSec: 30, Text: "I will review the deck tomorrow.", Confidence: 0.9},
		},
	}, nil
}

type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 16)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%16]++
	}
	return vec, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MemoryStore = true

	st := store.NewMemoryStore()
	app := &App{
		Config:      cfg,
		Logger:      logging.NewNopLogger(),
		Store:       st,
		Indexer:     index.NewIndexer(wordEmbedder{}, st, index.Config{}, nil),
		Metrics:     observability.NewNopMetrics(),
		transcriber: fakeTranscriber{},
		generator:   fakeGenerator{},
	}
	return app
}

func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestProcessCommand_TranscriptFile(t *testing.T) {
	app := newTestApp(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	transcript := "Alice: We will ship the release by Friday.\nBob: I will review the deck tomorrow."
	require.NoError(t, os.WriteFile(path, []byte(transcript), 0o600))

	out, err := run(t, NewProcessCommand(app), "--transcript", path, "--title", "Planning")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: complete")
	assert.Contains(t, out, "Release ships Friday")

	meetings, err := app.Store.ListMeetings(context.Background())
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, note.StatusComplete, meetings[0].Status)
	assert.Equal(t, "Planning", meetings[0].Title)
	assert.Positive(t, app.Indexer.Size())
}

func TestProcessCommand_Audio(t *testing.T) {
	app := newTestApp(t)

	audio := filepath.Join(t.TempDir(), "standup.wav")
	require.NoError(t, os.WriteFile(audio, []byte("riff"), 0o600))

	out, err := run(t, NewProcessCommand(app), audio, "--title", "Standup")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: complete")
	assert.Contains(t, out, "Language: en")
}

func TestProcessCommand_RequiresInput(t *testing.T) {
	app := newTestApp(t)
	_, err := run(t, NewProcessCommand(app))
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	m := note.NewMeeting("Planning")
	m.Segments = []note.Segment{{Text: "We will ship the release by Friday.", Speaker: "Alice"}}
	m.Status = note.StatusComplete
	require.NoError(t, app.Store.SaveMeeting(ctx, m))
	require.NoError(t, app.Indexer.Index(ctx, m.ID, m.IndexableText()))

	out, err := run(t, NewAskCommand(app), "when does the release ship?")
	require.NoError(t, err)
	assert.Contains(t, out, "The release ships Friday")
	assert.Contains(t, out, "Cited meetings: "+m.ID)
}

func TestAskCommand_EmptyIndex(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, NewAskCommand(app), "anything at all?")
	require.NoError(t, err)
	assert.Contains(t, out, "No relevant meetings found")
}

func TestMeetingListShowDelete(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	m := note.NewMeeting("Budget review")
	m.Status = note.StatusComplete
	m.Summary = []string{"Budget approved"}
	require.NoError(t, app.Store.SaveMeeting(ctx, m))
	require.NoError(t, app.Indexer.Index(ctx, m.ID, "budget approved"))

	out, err := run(t, NewMeetingCommand(app), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Budget review")

	out, err = run(t, NewMeetingCommand(app), "show", m.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Budget approved")

	out, err = run(t, NewMeetingCommand(app), "delete", m.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted meeting")

	_, err = app.Store.GetMeeting(ctx, m.ID)
	assert.Error(t, err)
	assert.Zero(t, app.Indexer.Size())
}

func TestMeetingActionsToggle(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	m := note.NewMeeting("Standup")
	require.NoError(t, app.Store.SaveMeeting(ctx, m))
	items := []note.ActionItem{{
		ID:          "item-1",
		MeetingID:   m.ID,
		Description: "ship the release",
		Priority:    note.PriorityNormal,
	}}
	require.NoError(t, app.Store.ReplaceActionItems(ctx, m.ID, items))

	out, err := run(t, NewMeetingCommand(app), "actions", m.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "- [ ] ship the release")

	out, err = run(t, NewMeetingCommand(app), "actions", m.ID, "--toggle", "item-1")
	require.NoError(t, err)
	assert.Contains(t, out, "done: ship the release")
}

func TestMeetingExportJSON(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	m := note.NewMeeting("Retro")
	m.Status = note.StatusComplete
	require.NoError(t, app.Store.SaveMeeting(ctx, m))

	out, err := run(t, NewMeetingCommand(app), "export", m.ID, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Retro"`)
}

func TestReindexCommand(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	m := note.NewMeeting("Planning")
	m.Segments = []note.Segment{{Text: "ship the release", Speaker: "Alice"}}
	m.Status = note.StatusComplete
	require.NoError(t, app.Store.SaveMeeting(ctx, m))

	out, err := run(t, NewReindexCommand(app), m.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Reindexed meeting")
	assert.Positive(t, app.Indexer.Size())

	out, err = run(t, NewReindexCommand(app), "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Reindexed 1 meetings, 0 failed")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, NewVersionCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "quicknotes")
}
