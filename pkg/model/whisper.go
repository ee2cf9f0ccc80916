package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	qnerrors "github.com/shaurya-ahuja/quicknotes-ai/pkg/errors"
)

// WhisperConfig configures the speech-to-text client.
type WhisperConfig struct {
	// BaseURL of an OpenAI-compatible transcription server
	// (faster-whisper-server, speaches, whisper.cpp server).
	BaseURL string

	// Model name passed to the server (e.g. "base", "small").
	Model string

	// Timeout for a single transcription call. Transcription of long
	// recordings is slow; default is 10 minutes.
	Timeout time.Duration
}

// WhisperClient implements Transcriber against an OpenAI-compatible
// /v1/audio/transcriptions endpoint.
type WhisperClient struct {
	config     WhisperConfig
	httpClient *http.Client
}

// NewWhisperClient creates a new speech-to-text client.
func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &WhisperClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// verboseJSONResponse mirrors the verbose_json response format.
type verboseJSONResponse struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	Segments []struct {
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		Text         string  `json:"text"`
		AvgLogprob   float64 `json:"avg_logprob"`
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

// Transcribe uploads the audio file and returns time-stamped segments with
// the detected language.
func (c *WhisperClient) Transcribe(ctx context.Context, path string, languageHint string) (*Transcription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qnerrors.NewPipelineError(qnerrors.ErrTranscriptionFailed, "", fmt.Sprintf("open audio: %v", err), err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	_ = w.WriteField("model", c.config.Model)
	_ = w.WriteField("response_format", "verbose_json")
	if languageHint != "" {
		_ = w.WriteField("language", languageHint)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	url := c.config.BaseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, qnerrors.NewPipelineError(qnerrors.ErrTimeout, "", "transcription timeout", err)
		}
		return nil, qnerrors.NewPipelineError(qnerrors.ErrModelUnavailable, "", fmt.Sprintf("speech-to-text backend: %v", err), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, qnerrors.NewPipelineError(qnerrors.ErrModelUnavailable, "",
			fmt.Sprintf("speech-to-text backend HTTP %d: %s", resp.StatusCode, respBody), nil)
	}

	var parsed verboseJSONResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, qnerrors.NewPipelineError(qnerrors.ErrParseError, "", fmt.Sprintf("parse transcription response: %v", err), err)
	}

	tr := &Transcription{
		Language:    parsed.Language,
		DurationSec: parsed.Duration,
	}
	for _, s := range parsed.Segments {
		tr.Segments = append(tr.Segments, TranscriptSegment{
			StartSec:   s.Start,
			EndSec:     s.End,
			Text:       s.Text,
			Confidence: 1 - s.NoSpeechProb,
		})
	}
	return tr, nil
}

// HealthCheck verifies the transcription server is reachable.
func (c *WhisperClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("speech-to-text backend unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}
