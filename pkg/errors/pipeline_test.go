package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil, "transcribing"))
}

func TestClassifyError_PassesThroughTypedErrors(t *testing.T) {
	orig := NewPipelineError(ErrTranscriptionFailed, "", "audio too short", nil)

	pe := ClassifyError(orig, "transcribing")
	require.NotNil(t, pe)
	assert.Equal(t, ErrTranscriptionFailed, pe.Code)
	assert.Equal(t, "transcribing", pe.Stage)
}

func TestClassifyError_WrappedTypedError(t *testing.T) {
	orig := NewPipelineError(ErrSummarizationFailed, "summarizing", "bad output", nil)
	wrapped := fmt.Errorf("stage failed: %w", orig)

	pe := ClassifyError(wrapped, "summarizing")
	assert.Equal(t, ErrSummarizationFailed, pe.Code)
}

func TestClassifyError_ContextErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"cancelled", context.Canceled, ErrContextCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := ClassifyError(tt.err, "summarizing")
			assert.Equal(t, tt.want, pe.Code)
		})
	}
}

func TestClassifyError_ConnectionRefused(t *testing.T) {
	err := fmt.Errorf("dial tcp 127.0.0.1:11434: connection refused")
	pe := ClassifyError(err, "summarizing")
	assert.Equal(t, ErrModelUnavailable, pe.Code)
}

func TestClassifyError_UnknownDefaultsToProcessingError(t *testing.T) {
	pe := ClassifyError(fmt.Errorf("something odd"), "indexing")
	assert.Equal(t, ErrProcessingError, pe.Code)
	assert.Equal(t, "indexing", pe.Stage)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		fatal bool
	}{
		{ErrTranscriptionFailed, true},
		{ErrSummarizationFailed, true},
		{ErrDiarizationDegraded, false},
		{ErrExtractionEmpty, false},
		{ErrIndexingFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewPipelineError(tt.code, "stage", "msg", nil)
			assert.Equal(t, tt.fatal, IsFatal(err))
		})
	}
}

func TestIsErrorRetryable(t *testing.T) {
	assert.True(t, IsErrorRetryable(NewPipelineError(ErrIndexingFailed, "indexing", "down", nil)))
	assert.False(t, IsErrorRetryable(NewPipelineError(ErrTranscriptionFailed, "transcribing", "silent", nil)))
	assert.False(t, IsErrorRetryable(fmt.Errorf("plain error")))
}

func TestPipelineError_ErrorString(t *testing.T) {
	pe := NewPipelineError(ErrIndexingFailed, "indexing", "embedding backend down", nil)
	assert.Equal(t, "indexing_failed: indexing: embedding backend down", pe.Error())

	pe = NewPipelineError(ErrQueryFailed, "", "backend down", nil)
	assert.Equal(t, "query_failed: backend down", pe.Error())
}

func TestSentinelHelpers(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("meeting: %w", ErrNotFound)))
	assert.True(t, IsAlreadyRunning(fmt.Errorf("run: %w", ErrAlreadyRunning)))
	assert.False(t, IsNotFound(fmt.Errorf("other")))
}
