// Package model defines the capability interfaces for the local model
// runtimes QuickNotes depends on (speech-to-text, text generation, text
// embedding) and HTTP clients for the default backends.
//
// The pipeline is agnostic to which concrete runtime serves each
// capability; implementations are injected at construction so tests can
// substitute fakes.
package model

import "context"

// TranscriptSegment is one time-stamped portion of speech-to-text output.
type TranscriptSegment struct {
	StartSec   float64
	EndSec     float64
	Text       string
	Confidence float64
}

// Transcription is the full result of a speech-to-text call.
type Transcription struct {
	Language    string
	DurationSec float64
	Segments    []TranscriptSegment
}

// Transcriber converts an audio file into time-stamped text segments.
type Transcriber interface {
	// Transcribe runs speech-to-text on the audio file at path.
	// languageHint may be empty for auto-detection.
	Transcribe(ctx context.Context, path string, languageHint string) (*Transcription, error)
}

// GenerateRequest is a request to the text generation capability.
type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature float32 // 0 = backend default
	MaxTokens   int     // 0 = backend default
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Embedder computes a fixed-dimension vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HealthChecker is implemented by clients that can verify backend
// availability without performing real work.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
