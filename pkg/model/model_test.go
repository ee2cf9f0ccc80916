package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o644))
	return path
}

func TestWhisperClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "base", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "en", r.FormValue("language"))

		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		json.NewEncoder(w).Encode(map[string]any{
			"language": "en",
			"duration": 12.5,
			"text":     "hello world and more",
			"segments": []map[string]any{
				{"start": 0.0, "end": 5.0, "text": "hello world", "no_speech_prob": 0.1},
				{"start": 5.0, "end": 12.5, "text": "and more", "no_speech_prob": 0.0},
			},
		})
	}))
	defer srv.Close()

	client := NewWhisperClient(WhisperConfig{BaseURL: srv.URL, Model: "base"})
	tr, err := client.Transcribe(context.Background(), writeTempAudio(t), "en")
	require.NoError(t, err)

	assert.Equal(t, "en", tr.Language)
	assert.Equal(t, 12.5, tr.DurationSec)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "hello world", tr.Segments[0].Text)
	assert.InDelta(t, 0.9, tr.Segments[0].Confidence, 1e-9)
	assert.Equal(t, 5.0, tr.Segments[1].StartSec)
}

func TestWhisperClient_MissingFile(t *testing.T) {
	client := NewWhisperClient(WhisperConfig{BaseURL: "http://localhost:1", Model: "base"})
	_, err := client.Transcribe(context.Background(), "/no/such/file.wav", "")
	require.Error(t, err)
	assert.Equal(t, qnerrors.ErrTranscriptionFailed, qnerrors.Code(err))
}

func TestWhisperClient_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewWhisperClient(WhisperConfig{BaseURL: srv.URL, Model: "base"})
	_, err := client.Transcribe(context.Background(), writeTempAudio(t), "")
	require.Error(t, err)
	assert.Equal(t, qnerrors.ErrModelUnavailable, qnerrors.Code(err))
}

func TestOllamaClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaChatMessage{Role: "assistant", Content: "## SUMMARY\n- a point"},
			Done:    true,
		})
	}))
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, GenerateModel: "llama3"})
	out, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "summarize this",
		System: "you summarize meetings",
	})
	require.NoError(t, err)
	assert.Equal(t, "## SUMMARY\n- a point", out)
}

func TestOllamaClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "chunk text", req.Prompt)

		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, EmbedModel: "nomic-embed-text"})
	vec, err := client.Embed(context.Background(), "chunk text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllamaClient_EmbedEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	}))
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, EmbedModel: "nomic-embed-text"})
	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, qnerrors.ErrParseError, qnerrors.Code(err))
}

func TestOllamaClient_BackendDown(t *testing.T) {
	client := NewOllamaClient(OllamaConfig{BaseURL: "http://127.0.0.1:1", GenerateModel: "llama3"})
	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, qnerrors.ErrModelUnavailable, qnerrors.Code(err))
}

func TestOllamaClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: srv.URL})
	assert.NoError(t, client.HealthCheck(context.Background()))
}
