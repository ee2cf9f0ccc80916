// Package export renders a finished meeting as plain structured data and as
// markdown, for consumption by calendars, mail, or the terminal.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// Record is the structured export of one meeting: the full field set an
// external consumer needs, with no storage or pipeline internals.
type Record struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	Title       string            `json:"title"`
	Language    string            `json:"language,omitempty"`
	Status      string            `json:"status"`
	FailedStage string            `json:"failed_stage,omitempty"`
	Error       string            `json:"error,omitempty"`
	Speakers    []string          `json:"speakers,omitempty"`
	Transcript  []note.Segment    `json:"transcript,omitempty"`
	Summary     []string          `json:"summary,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	ActionItems []note.ActionItem `json:"action_items,omitempty"`
}

// NewRecord builds the export record for a meeting and its action items.
func NewRecord(m *note.Meeting, items []note.ActionItem) *Record {
	return &Record{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		Title:       m.Title,
		Language:    m.Language,
		Status:      string(m.Status),
		FailedStage: string(m.FailedStage),
		Error:       m.Error,
		Speakers:    m.Speakers(),
		Transcript:  m.Segments,
		Summary:     m.Summary,
		Tags:        m.Tags,
		ActionItems: items,
	}
}

// WriteJSON writes the record as indented JSON.
func (r *Record) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteMarkdown renders the record as a markdown document with the summary,
// an action item checklist, and the attributed transcript.
func (r *Record) WriteMarkdown(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	fmt.Fprintf(&b, "Date: %s\n", r.CreatedAt.Format("2006-01-02 15:04"))
	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(r.Tags, ", "))
	}
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(&b, "Failure: %s\n", r.Error)
	}
	b.WriteString("\n")

	if len(r.Summary) > 0 {
		b.WriteString("## Summary\n\n")
		for _, bullet := range r.Summary {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
		b.WriteString("\n")
	}

	if len(r.ActionItems) > 0 {
		b.WriteString("## Action Items\n\n")
		b.WriteString(Checklist(r.ActionItems, true))
		b.WriteString("\n\n")
	}

	if len(r.Transcript) > 0 {
		b.WriteString("## Transcript\n\n")
		for _, seg := range r.Transcript {
			if seg.Speaker != "" {
				fmt.Fprintf(&b, "**%s** (%s): %s\n\n", seg.Speaker, formatTimestamp(seg.StartSec), seg.Text)
			} else {
				fmt.Fprintf(&b, "(%s): %s\n\n", formatTimestamp(seg.StartSec), seg.Text)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Checklist renders action items as a markdown checklist.
func Checklist(items []note.ActionItem, showCompleted bool) string {
	var lines []string
	for _, item := range items {
		if !showCompleted && item.Completed {
			continue
		}
		checkbox := "[ ]"
		if item.Completed {
			checkbox = "[x]"
		}
		lines = append(lines, fmt.Sprintf("- %s %s", checkbox, item.String()))
	}
	return strings.Join(lines, "\n")
}

func formatTimestamp(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
