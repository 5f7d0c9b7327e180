// Package generator builds grounded prompts and calls the chat-completion service.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/upb/rag-gateway/config"
	"go.uber.org/zap"
)

// Result is the outcome of a generation attempt. Every failure path of the
// external call is converted into a Result; this boundary never lets a fault
// propagate upward as an error return.
type Result struct {
	Success        bool    `json:"success"`
	Answer         string  `json:"answer,omitempty"`
	Error          string  `json:"error,omitempty"`
	ElapsedSeconds float64 `json:"time,omitempty"`
}

// Service calls an OpenAI-compatible chat-completion endpoint (Groq by
// default) with a bounded timeout, fixed sampling temperature, and an
// output-length cap.
type Service struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewService creates a new generator service
func NewService(cfg config.GroqConfig, logger *zap.Logger) *Service {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}
	return &Service{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate asks the model to answer the question using only the supplied
// context fragments, in the ranker's relevance order. ElapsedSeconds is
// populated on success; failures carry a human-readable error string instead.
func (s *Service) Generate(ctx context.Context, question string, contextFragments []string) Result {
	prompt := buildPrompt(question, contextFragments)

	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("generation request failed", zap.Error(err))
		return Result{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("generation service returned error status",
			zap.Int("status", resp.StatusCode))
		return Result{Success: false, Error: fmt.Sprintf("HTTP Error: %d", resp.StatusCode)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if len(out.Choices) == 0 {
		return Result{Success: false, Error: "generation service returned no choices"}
	}

	elapsed := time.Since(start).Seconds()
	return Result{
		Success:        true,
		Answer:         out.Choices[0].Message.Content,
		ElapsedSeconds: math.Round(elapsed*100) / 100,
	}
}

// buildPrompt constructs the grounding prompt. The answer-only-from-context
// instruction is the system's correctness mechanism against hallucination:
// the model must state explicitly when the answer is not in the context.
func buildPrompt(question string, contextFragments []string) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant specialized in answering questions from retrieved documents.\n")
	sb.WriteString("Answer ONLY with information from the context below. ")
	sb.WriteString("If the answer is not in the context, say so clearly.\n\n")
	sb.WriteString("Context: ")
	sb.WriteString(strings.Join(contextFragments, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nDetailed and structured answer:")
	return sb.String()
}
