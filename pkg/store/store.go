// Package store persists meetings, action items, and index chunks. The
// default backend is PostgreSQL; an in-memory implementation backs tests and
// ephemeral runs.
package store

import (
	"context"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// Store is the persistence boundary. Deleting a meeting cascades to its
// action items and chunks.
type Store interface {
	// SaveMeeting inserts or fully replaces a meeting record.
	SaveMeeting(ctx context.Context, m *note.Meeting) error
	GetMeeting(ctx context.Context, id string) (*note.Meeting, error)
	// ListMeetings returns all meetings, newest first.
	ListMeetings(ctx context.Context) ([]*note.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	// SearchMeetings returns meetings whose title, transcript, or summary
	// contains the keyword, newest first.
	SearchMeetings(ctx context.Context, keyword string) ([]*note.Meeting, error)

	// ReplaceActionItems atomically swaps the meeting's action item set.
	ReplaceActionItems(ctx context.Context, meetingID string, items []note.ActionItem) error
	ListActionItems(ctx context.Context, meetingID string) ([]note.ActionItem, error)
	// ToggleActionItem flips an item's completion flag and returns the
	// updated item.
	ToggleActionItem(ctx context.Context, itemID string) (*note.ActionItem, error)

	// ReplaceChunks atomically swaps the meeting's chunk set.
	ReplaceChunks(ctx context.Context, meetingID string, chunks []note.Chunk) error
	ListChunks(ctx context.Context) ([]note.Chunk, error)
	DeleteChunks(ctx context.Context, meetingID string) error

	Close()
}
