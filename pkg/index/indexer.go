// Package index is the retrieval engine: it chunks meeting text, embeds
// each chunk via the embedding backend, and serves cosine-similarity
// search over the accumulated chunks of all meetings.
package index

import (
	"context"
	"math"
	"sort"
	"sync"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/model"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
	"github.com/shaurya-ahuja/quicknotes-ai/pkg/observability"
)

// ChunkStore persists chunk sets so the index survives restarts.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, meetingID string, chunks []note.Chunk) error
	ListChunks(ctx context.Context) ([]note.Chunk, error)
	DeleteChunks(ctx context.Context, meetingID string) error
}

// Config holds index settings.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// Indexer maintains the in-memory vector index. The chunk set for a meeting
// is replaced wholesale under the write lock, so concurrent searches observe
// either the full old set or the full new set, never a mix.
type Indexer struct {
	embedder model.Embedder
	store    ChunkStore
	config   Config
	logger   logging.Logger
	metrics  *observability.Metrics

	mu     sync.RWMutex
	chunks map[string][]note.Chunk // meetingID -> ordered chunk set
}

// NewIndexer creates an indexer. store may be nil for a purely in-memory
// index.
func NewIndexer(embedder model.Embedder, store ChunkStore, cfg Config, logger logging.Logger) *Indexer {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Indexer{
		embedder: embedder,
		store:    store,
		config:   cfg,
		logger:   logger,
		chunks:   make(map[string][]note.Chunk),
	}
}

// WithMetrics attaches metrics counters and returns the indexer.
func (ix *Indexer) WithMetrics(m *observability.Metrics) *Indexer {
	ix.metrics = m
	return ix
}

// Load populates the in-memory index from the chunk store.
func (ix *Indexer) Load(ctx context.Context) error {
	if ix.store == nil {
		return nil
	}
	stored, err := ix.store.ListChunks(ctx)
	if err != nil {
		return err
	}

	byMeeting := make(map[string][]note.Chunk)
	for _, c := range stored {
		byMeeting[c.MeetingID] = append(byMeeting[c.MeetingID], c)
	}
	for id := range byMeeting {
		set := byMeeting[id]
		sort.Slice(set, func(i, j int) bool { return set[i].Seq < set[j].Seq })
	}

	ix.mu.Lock()
	ix.chunks = byMeeting
	ix.mu.Unlock()

	ix.logger.Info("index loaded",
		logging.F("meetings", len(byMeeting)),
		logging.F("chunks", len(stored)))
	return nil
}

// Index replaces the chunk set for meetingID with freshly chunked and
// embedded text. All embeddings are computed before the swap, so a failure
// leaves the previous set intact and queryable.
func (ix *Indexer) Index(ctx context.Context, meetingID, text string) error {
	pieces := ChunkText(text, ix.config.ChunkSize, ix.config.ChunkOverlap)

	fresh := make([]note.Chunk, 0, len(pieces))
	for seq, piece := range pieces {
		vec, err := ix.embedder.Embed(ctx, piece)
		if err != nil {
			pe := qnerrors.ClassifyError(err, string(note.StageIndexing))
			if pe.Code == qnerrors.ErrProcessingError {
				pe.Code = qnerrors.ErrIndexingFailed
			}
			return pe
		}
		fresh = append(fresh, note.Chunk{
			MeetingID: meetingID,
			Seq:       seq,
			Text:      piece,
			Embedding: vec,
		})
	}

	if ix.store != nil {
		if err := ix.store.ReplaceChunks(ctx, meetingID, fresh); err != nil {
			return qnerrors.NewPipelineError(qnerrors.ErrIndexingFailed, string(note.StageIndexing),
				"persist chunks", err)
		}
	}

	ix.mu.Lock()
	if len(fresh) == 0 {
		delete(ix.chunks, meetingID)
	} else {
		ix.chunks[meetingID] = fresh
	}
	ix.mu.Unlock()

	if ix.metrics != nil {
		ix.metrics.ChunksIndexed.Add(float64(len(fresh)))
	}
	ix.logger.Info("meeting indexed",
		logging.F("meeting_id", meetingID),
		logging.F("chunks", len(fresh)))
	return nil
}

// Remove drops a meeting's chunks from the index and the store.
func (ix *Indexer) Remove(ctx context.Context, meetingID string) error {
	ix.mu.Lock()
	delete(ix.chunks, meetingID)
	ix.mu.Unlock()

	if ix.store != nil {
		return ix.store.DeleteChunks(ctx, meetingID)
	}
	return nil
}

// Search returns the k nearest chunks to the query by cosine similarity,
// ranked descending. Ties break on lower chunk sequence, then lower meeting
// id. An empty index yields an empty result, not an error.
func (ix *Indexer) Search(ctx context.Context, query string, k int) ([]note.SearchHit, error) {
	if k <= 0 {
		k = 5
	}

	ix.mu.RLock()
	empty := len(ix.chunks) == 0
	ix.mu.RUnlock()
	if empty {
		return nil, nil
	}

	qvec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		pe := qnerrors.ClassifyError(err, "")
		if pe.Code == qnerrors.ErrProcessingError {
			pe.Code = qnerrors.ErrQueryFailed
		}
		return nil, pe
	}

	ix.mu.RLock()
	var hits []note.SearchHit
	for _, set := range ix.chunks {
		for _, c := range set {
			hits = append(hits, note.SearchHit{Chunk: c, Score: cosineSimilarity(qvec, c.Embedding)})
		}
	}
	ix.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.Seq != hits[j].Chunk.Seq {
			return hits[i].Chunk.Seq < hits[j].Chunk.Seq
		}
		return hits[i].Chunk.MeetingID < hits[j].Chunk.MeetingID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Size reports the total number of indexed chunks.
func (ix *Indexer) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, set := range ix.chunks {
		n += len(set)
	}
	return n
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
