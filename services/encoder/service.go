// Package encoder wraps the external embedding model behind a small client.
package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/rag-gateway/config"
	"go.uber.org/zap"
)

// Service is a client for an OpenAI-compatible embeddings endpoint. The
// default configuration targets a local Ollama serving all-minilm, which
// produces the 384-dimension vectors the fragment store was built with.
//
// The service is constructed once at process start and shared read-only by
// all request handlers; it is never reinitialized per request.
type Service struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewService creates a new encoder service
func NewService(cfg config.EmbeddingsConfig, logger *zap.Logger) *Service {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Dimension returns the embedding dimensionality the service enforces.
func (s *Service) Dimension() int {
	return s.dimension
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Encode maps a text string to a fixed-length embedding vector. It is
// deterministic for a fixed model version. Empty strings are passed through to
// the model unchanged; the model decides what an empty embedding means.
func (s *Service) Encode(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embeddingsRequest{Model: s.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embeddings endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embeddings endpoint returned no embedding")
	}

	vector := out.Data[0].Embedding
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vector), s.dimension)
	}
	return vector, nil
}

// Probe proves the embedding model is loadable by encoding a short string.
// The server calls this once before accepting traffic: an unavailable model is
// a fatal startup condition, not a per-request error.
func (s *Service) Probe(ctx context.Context) error {
	start := time.Now()
	vector, err := s.Encode(ctx, "startup probe")
	if err != nil {
		return fmt.Errorf("embedding model probe failed: %w", err)
	}
	s.logger.Info("embedding model ready",
		zap.String("model", s.model),
		zap.Int("dimension", len(vector)),
		zap.Duration("probe_duration", time.Since(start)))
	return nil
}
