package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a pipeline failure.
type ErrorCode string

const (
	// ErrTranscriptionFailed: audio is unreadable, silent, or shorter than
	// the minimum duration. Not retried automatically.
	ErrTranscriptionFailed ErrorCode = "transcription_failed"

	// ErrDiarizationDegraded: speaker attribution failed; the pipeline
	// continues with a single-speaker fallback. Non-fatal.
	ErrDiarizationDegraded ErrorCode = "diarization_degraded"

	// ErrSummarizationFailed: generation backend unreachable, or output
	// unparsable after one re-prompt.
	ErrSummarizationFailed ErrorCode = "summarization_failed"

	// ErrExtractionEmpty: no action items found. Non-fatal; an empty list
	// is a valid result.
	ErrExtractionEmpty ErrorCode = "extraction_empty"

	// ErrIndexingFailed: embedding backend unreachable while indexing.
	// Never aborts the pipeline; the meeting stays re-indexable.
	ErrIndexingFailed ErrorCode = "indexing_failed"

	// ErrQueryFailed: embedding or search backend unreachable at query time.
	ErrQueryFailed ErrorCode = "query_failed"

	ErrModelUnavailable ErrorCode = "model_unavailable"
	ErrParseError       ErrorCode = "parse_error"
	ErrTimeout          ErrorCode = "timeout"
	ErrContextCancelled ErrorCode = "context_cancelled"
	ErrProcessingError  ErrorCode = "processing_error"
)

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code        ErrorCode
	Retryable   bool
	Fatal       bool // aborts the pipeline when true
	Description string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTranscriptionFailed: {
		Code:        ErrTranscriptionFailed,
		Retryable:   false,
		Fatal:       true,
		Description: "Audio unreadable, silent, or below minimum duration",
	},
	ErrDiarizationDegraded: {
		Code:        ErrDiarizationDegraded,
		Retryable:   false,
		Fatal:       false,
		Description: "Speaker attribution unavailable, single-speaker fallback used",
	},
	ErrSummarizationFailed: {
		Code:        ErrSummarizationFailed,
		Retryable:   true,
		Fatal:       true,
		Description: "Generation backend unreachable or output unparsable after retry",
	},
	ErrExtractionEmpty: {
		Code:        ErrExtractionEmpty,
		Retryable:   false,
		Fatal:       false,
		Description: "No action items found in summary or transcript",
	},
	ErrIndexingFailed: {
		Code:        ErrIndexingFailed,
		Retryable:   true,
		Fatal:       false,
		Description: "Embedding backend unreachable, meeting queued for re-indexing",
	},
	ErrQueryFailed: {
		Code:        ErrQueryFailed,
		Retryable:   true,
		Fatal:       false,
		Description: "Embedding or search backend unreachable at query time",
	},
	ErrModelUnavailable: {
		Code:        ErrModelUnavailable,
		Retryable:   true,
		Fatal:       true,
		Description: "Model runtime unavailable",
	},
	ErrParseError: {
		Code:        ErrParseError,
		Retryable:   false,
		Fatal:       true,
		Description: "Model output did not match the expected grammar",
	},
	ErrTimeout: {
		Code:        ErrTimeout,
		Retryable:   true,
		Fatal:       true,
		Description: "Operation exceeded time limit",
	},
	ErrContextCancelled: {
		Code:        ErrContextCancelled,
		Retryable:   false,
		Fatal:       true,
		Description: "Operation cancelled by caller",
	},
	ErrProcessingError: {
		Code:        ErrProcessingError,
		Retryable:   false,
		Fatal:       true,
		Description: "Unclassified processing failure",
	},
}

// PipelineError is a structured error for pipeline failures.
type PipelineError struct {
	Code    ErrorCode
	Stage   string
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError builds a PipelineError with the given code.
func NewPipelineError(code ErrorCode, stage, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, Message: message, Cause: cause}
}

// ClassifyError inspects an error and returns a *PipelineError with the
// appropriate code. Errors that already carry a code pass through with the
// stage filled in. Unknown errors default to ErrProcessingError.
func ClassifyError(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		if pe.Stage == "" {
			pe.Stage = stage
		}
		return pe
	}

	pe = &PipelineError{Stage: stage, Cause: err}

	if errors.Is(err, context.DeadlineExceeded) {
		pe.Code = ErrTimeout
		pe.Message = "operation timed out"
		return pe
	}
	if errors.Is(err, context.Canceled) {
		pe.Code = ErrContextCancelled
		pe.Message = "operation cancelled"
		return pe
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "unavailable") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "503") {
		pe.Code = ErrModelUnavailable
		pe.Message = msg
		return pe
	}

	pe.Code = ErrProcessingError
	pe.Message = msg
	return pe
}

// Code returns the error code of err, or ErrProcessingError for untyped errors.
func Code(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrProcessingError
}

// IsFatal reports whether err should abort the pipeline run.
func IsFatal(err error) bool {
	info, ok := ErrorCodeRegistry[Code(err)]
	if !ok {
		return true
	}
	return info.Fatal
}

// IsErrorRetryable reports whether the error is worth retrying later.
func IsErrorRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		if info, ok := ErrorCodeRegistry[pe.Code]; ok {
			return info.Retryable
		}
	}
	return false
}
