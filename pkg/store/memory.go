package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

// MemoryStore is an in-memory Store used by tests and ephemeral runs. It is
// safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	meetings map[string]*note.Meeting
	items    map[string][]note.ActionItem // meetingID -> ordered items
	chunks   map[string][]note.Chunk      // meetingID -> ordered chunks
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meetings: make(map[string]*note.Meeting),
		items:    make(map[string][]note.ActionItem),
		chunks:   make(map[string][]note.Chunk),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// SaveMeeting inserts or fully replaces a meeting record.
func (s *MemoryStore) SaveMeeting(ctx context.Context, m *note.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.Segments = append([]note.Segment(nil), m.Segments...)
	cp.Summary = append([]string(nil), m.Summary...)
	cp.Tags = append([]string(nil), m.Tags...)
	s.meetings[m.ID] = &cp
	return nil
}

// GetMeeting returns a copy of the meeting.
func (s *MemoryStore) GetMeeting(ctx context.Context, id string) (*note.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", id, qnerrors.ErrNotFound)
	}
	cp := *m
	cp.Segments = append([]note.Segment(nil), m.Segments...)
	cp.Summary = append([]string(nil), m.Summary...)
	cp.Tags = append([]string(nil), m.Tags...)
	return &cp, nil
}

// ListMeetings returns all meetings, newest first.
func (s *MemoryStore) ListMeetings(ctx context.Context) ([]*note.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*note.Meeting, 0, len(s.meetings))
	for id := range s.meetings {
		m, _ := s.getLocked(id)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) getLocked(id string) (*note.Meeting, bool) {
	m, ok := s.meetings[id]
	if !ok {
		return nil, false
	}
	cp := *m
	cp.Segments = append([]note.Segment(nil), m.Segments...)
	cp.Summary = append([]string(nil), m.Summary...)
	cp.Tags = append([]string(nil), m.Tags...)
	return &cp, true
}

// SearchMeetings returns meetings matching the keyword, newest first.
func (s *MemoryStore) SearchMeetings(ctx context.Context, keyword string) ([]*note.Meeting, error) {
	all, err := s.ListMeetings(ctx)
	if err != nil {
		return nil, err
	}
	kw := strings.ToLower(keyword)
	var out []*note.Meeting
	for _, m := range all {
		haystack := strings.ToLower(m.Title + "\n" + m.Transcript() + "\n" + m.SummaryText())
		if strings.Contains(haystack, kw) {
			out = append(out, m)
		}
	}
	return out, nil
}

// DeleteMeeting removes a meeting and cascades to items and chunks.
func (s *MemoryStore) DeleteMeeting(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[id]; !ok {
		return fmt.Errorf("meeting %s: %w", id, qnerrors.ErrNotFound)
	}
	delete(s.meetings, id)
	delete(s.items, id)
	delete(s.chunks, id)
	return nil
}

// ReplaceActionItems swaps the meeting's action item set.
func (s *MemoryStore) ReplaceActionItems(ctx context.Context, meetingID string, items []note.ActionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[meetingID] = append([]note.ActionItem(nil), items...)
	return nil
}

// ListActionItems returns the meeting's action items in order.
func (s *MemoryStore) ListActionItems(ctx context.Context, meetingID string) ([]note.ActionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]note.ActionItem(nil), s.items[meetingID]...), nil
}

// ToggleActionItem flips an item's completion flag.
func (s *MemoryStore) ToggleActionItem(ctx context.Context, itemID string) (*note.ActionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for meetingID, items := range s.items {
		for i := range items {
			if items[i].ID == itemID {
				items[i].Completed = !items[i].Completed
				s.items[meetingID] = items
				cp := items[i]
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("action item %s: %w", itemID, qnerrors.ErrNotFound)
}

// ReplaceChunks swaps the meeting's chunk set.
func (s *MemoryStore) ReplaceChunks(ctx context.Context, meetingID string, chunks []note.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[meetingID] = append([]note.Chunk(nil), chunks...)
	return nil
}

// ListChunks returns all chunks across meetings in (meeting id, seq) order.
func (s *MemoryStore) ListChunks(ctx context.Context) ([]note.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []note.Chunk
	for _, set := range s.chunks {
		out = append(out, set...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeetingID != out[j].MeetingID {
			return out[i].MeetingID < out[j].MeetingID
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// DeleteChunks removes a meeting's chunks.
func (s *MemoryStore) DeleteChunks(ctx context.Context, meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, meetingID)
	return nil
}
