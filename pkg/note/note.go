// Package note defines the core domain types for QuickNotes: meetings,
// transcript segments, action items, and index chunks.
package note

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks how far a meeting has progressed through the processing
// pipeline. Transitions are sequential; Failed is an absorbing state that
// records the furthest stage reached.
type Status string

const (
	StatusReceived          Status = "received"
	StatusTranscribing      Status = "transcribing"
	StatusDiarizing         Status = "diarizing"
	StatusSummarizing       Status = "summarizing"
	StatusExtractingActions Status = "extracting_actions"
	StatusIndexing          Status = "indexing"
	StatusComplete          Status = "complete"
	StatusFailed            Status = "failed"
)

// Stage identifies a pipeline stage, used in Failed status and error codes.
type Stage string

const (
	StageTranscribing      Stage = "transcribing"
	StageDiarizing         Stage = "diarizing"
	StageSummarizing       Stage = "summarizing"
	StageExtractingActions Stage = "extracting_actions"
	StageIndexing          Stage = "indexing"
)

// Priority classifies an action item's urgency.
type Priority string

const (
	PriorityUrgent     Priority = "urgent"
	PriorityNormal     Priority = "normal"
	PriorityLow        Priority = "low"
	PriorityUnresolved Priority = "unresolved"
)

// Segment is a single time-stamped portion of a transcript. Segments are
// ordered chronologically within a meeting and must not overlap.
type Segment struct {
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Text       string  `json:"text"`
	Speaker    string  `json:"speaker,omitempty"` // empty until diarized
	Confidence float64 `json:"confidence,omitempty"`
}

// Meeting is the aggregate root. It is owned by the pipeline while
// processing and by the store once committed.
type Meeting struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Language    string    `json:"language,omitempty"`
	AudioPath   string    `json:"audio_path,omitempty"`
	Segments    []Segment `json:"segments,omitempty"`
	Summary     []string  `json:"summary,omitempty"` // ordered bullet points
	Tags        []string  `json:"tags,omitempty"`
	Status      Status    `json:"status"`
	FailedStage Stage     `json:"failed_stage,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewMeeting creates a meeting in the Received state.
func NewMeeting(title string) *Meeting {
	return &Meeting{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Title:     title,
		Status:    StatusReceived,
	}
}

// Speakers returns the distinct speaker labels in segment order.
func (m *Meeting) Speakers() []string {
	seen := make(map[string]bool)
	var speakers []string
	for _, seg := range m.Segments {
		if seg.Speaker != "" && !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			speakers = append(speakers, seg.Speaker)
		}
	}
	return speakers
}

// Transcript renders the attributed transcript, one "Speaker: text" line per
// segment. This is the form consumed by the summarizer and the indexer.
func (m *Meeting) Transcript() string {
	var b strings.Builder
	for i, seg := range m.Segments {
		if i > 0 {
			b.WriteString("\n")
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// SummaryText joins the summary bullets into a single block.
func (m *Meeting) SummaryText() string {
	return strings.Join(m.Summary, "\n")
}

// IndexableText is the text pushed into the vector index: the attributed
// transcript plus the summary, so both verbatim statements and distilled
// points are retrievable.
func (m *Meeting) IndexableText() string {
	parts := []string{m.Transcript()}
	if len(m.Summary) > 0 {
		parts = append(parts, m.SummaryText())
	}
	return strings.Join(parts, "\n\n")
}

// ActionItem is a discrete task extracted from a meeting. Items are created
// once during extraction and mutated only by toggling completion;
// reprocessing replaces the whole set atomically.
type ActionItem struct {
	ID          string     `json:"id"`
	MeetingID   string     `json:"meeting_id"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
}

// Chunk is the unit of embedding and retrieval. The chunk set for a meeting
// is always regenerated wholesale, never partially patched.
type Chunk struct {
	MeetingID string    `json:"meeting_id"`
	Seq       int       `json:"seq"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// SearchHit is one ranked retrieval result. Ephemeral, never persisted.
type SearchHit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Answer is the result of a natural-language query over indexed meetings.
type Answer struct {
	Text       string   `json:"text"`
	MeetingIDs []string `json:"meeting_ids,omitempty"`
}

// String implements fmt.Stringer for log-friendly output.
func (a ActionItem) String() string {
	parts := []string{a.Description}
	if a.Assignee != "" {
		parts = append(parts, fmt.Sprintf("[assignee: %s]", a.Assignee))
	}
	if a.DueDate != nil {
		parts = append(parts, fmt.Sprintf("[due: %s]", a.DueDate.Format("2006-01-02")))
	}
	if a.Priority != "" && a.Priority != PriorityNormal {
		parts = append(parts, fmt.Sprintf("[%s]", a.Priority))
	}
	return strings.Join(parts, " ")
}
