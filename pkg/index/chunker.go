package index

import "strings"

// Chunking is deterministic: the same text always yields the same chunk
// sequence, so re-indexing a meeting reproduces its chunk set exactly.

const (
	// DefaultChunkSize is the character bound of one chunk.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is how many characters consecutive chunks share,
	// preserving context across boundaries.
	DefaultChunkOverlap = 50
)

// sentence separators tried in order when looking for a clean break.
var breakSeps = []string{". ", "? ", "! ", "\n\n", "\n"}

// ChunkText splits text into overlapping chunks of at most size characters,
// preferring sentence boundaries. Empty input yields no chunks.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	if len(text) <= size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end < len(text) {
			for _, sep := range breakSeps {
				if idx := strings.LastIndex(text[start:end], sep); idx > 0 {
					end = start + idx + len(sep)
					break
				}
			}
		} else {
			end = len(text)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
