package actions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// meetingAt builds a meeting with a fixed creation time so date resolution
// is reproducible.
func meetingAt(created time.Time) *note.Meeting {
	m := note.NewMeeting("planning")
	m.CreatedAt = created
	return m
}

func TestExtract_UrgentReportScenario(t *testing.T) {
	// Wednesday 2024-01-10.
	created := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	m := meetingAt(created)
	m.Segments = []note.Segment{
		{StartSec: 0, EndSec: 5, Speaker: "Alice", Text: "We need the report by Friday, John. This is urgent."},
	}

	items := NewExtractor().Extract(m)
	require.Len(t, items, 1)

	item := items[0]
	assert.Contains(t, item.Description, "report")
	assert.NotContains(t, item.Description, "Friday")
	assert.Equal(t, "John", item.Assignee)
	assert.Equal(t, note.PriorityUrgent, item.Priority)
	require.NotNil(t, item.DueDate)
	// Next Friday after Wednesday the 10th is the 12th.
	assert.Equal(t, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), *item.DueDate)
}

func TestExtract_Deterministic(t *testing.T) {
	m := meetingAt(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	m.Summary = []string{
		"Alice will draft the proposal by Tuesday",
		"Budget approved without changes",
		"@bob should review the contract ASAP",
	}

	first := NewExtractor().Extract(m)
	second := NewExtractor().Extract(m)
	assert.Equal(t, first, second)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestExtract_SummaryPreferredOverTranscript(t *testing.T) {
	m := meetingAt(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	m.Summary = []string{"Carol will send the minutes"}
	m.Segments = []note.Segment{
		{Speaker: "Speaker 1", Text: "Dave should fix the build"},
	}

	items := NewExtractor().Extract(m)
	require.Len(t, items, 1)
	assert.Equal(t, "Carol", items[0].Assignee)
}

func TestExtract_FallbackToTranscript(t *testing.T) {
	m := meetingAt(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	m.Summary = []string{"Quarterly numbers look good"}
	m.Segments = []note.Segment{
		{Speaker: "Speaker 1", Text: "Dave should fix the build tomorrow"},
	}

	items := NewExtractor().Extract(m)
	require.Len(t, items, 1)
	assert.Equal(t, "Dave", items[0].Assignee)
	require.NotNil(t, items[0].DueDate)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *items[0].DueDate)
}

func TestExtract_AssigneePatterns(t *testing.T) {
	m := meetingAt(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))

	tests := []struct {
		bullet string
		want   string
	}{
		{"@maria will update the roadmap", "Maria"},
		{"please review the deck [assignee: Pat]", "Pat"},
		{"this is assigned to Lee, please follow up", "Lee"},
		{"Sam needs to call the vendor", "Sam"},
		{"someone should take notes", ""},
		{"we will revisit next quarter", ""},
	}

	for _, tt := range tests {
		t.Run(tt.bullet, func(t *testing.T) {
			m.Summary = []string{tt.bullet}
			items := NewExtractor().Extract(m)
			if tt.want == "" && len(items) == 0 {
				return
			}
			require.NotEmpty(t, items)
			assert.Equal(t, tt.want, items[0].Assignee)
		})
	}
}

func TestExtract_EmptyDescriptionsDropped(t *testing.T) {
	m := meetingAt(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	m.Summary = []string{"- should", "TODO:"}

	items := NewExtractor().Extract(m)
	assert.Empty(t, items)
}

func TestExtract_EmptyIsValid(t *testing.T) {
	m := meetingAt(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	m.Summary = []string{"Everything on track", "No blockers raised"}

	items := NewExtractor().Extract(m)
	assert.Empty(t, items)
}

func TestDetectPriority(t *testing.T) {
	tests := []struct {
		line string
		want note.Priority
	}{
		{"fix the server ASAP", note.PriorityUrgent},
		{"this is urgent", note.PriorityUrgent},
		{"clean up docs when you get a chance", note.PriorityLow},
		{"no rush on this one", note.PriorityLow},
		{"send the invoice", note.PriorityNormal},
	}
	for _, tt := range tests {
		got, _ := detectPriority(tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestResolveDueDate(t *testing.T) {
	// Wednesday.
	ref := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"by weekday", "send it by Friday", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)},
		{"by same weekday wraps", "send it by Wednesday", time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)},
		{"next weekday", "next Monday works", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"tomorrow", "finish tomorrow", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)},
		{"today", "ship today", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"end of week", "wrap up by end of week", time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)},
		{"end of month", "report due by end of the month", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"explicit date", "deliver by 2/15", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)},
		{"explicit date with year", "deliver by 2/15/2025", time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)},
		{"past date rolls to next year", "due on 1/5", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, expr, ok := ResolveDueDate(tt.text, ref)
			require.True(t, ok)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			assert.NotEmpty(t, expr)
		})
	}
}

func TestResolveDueDate_NoMatch(t *testing.T) {
	got, expr, ok := ResolveDueDate("just a statement", time.Now())
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Empty(t, expr)
}
