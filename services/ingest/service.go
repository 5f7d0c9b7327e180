// Package ingest loads documents from the data directory, splits them into
// fixed-size chunks, embeds each chunk, and stores the fragments.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/upb/rag-gateway/config"
	"github.com/upb/rag-gateway/repositories"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// Embedder turns a chunk of text into an embedding vector.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float64, error)
}

// Summary reports what one ingestion run processed.
type Summary struct {
	TxtFiles     int `json:"txt_files"`
	PdfFiles     int `json:"pdf_files"`
	Chunks       int `json:"chunks"`
	SkippedFiles int `json:"skipped_files"`
}

// Service loads, chunks, embeds and stores documents
type Service struct {
	fragments repositories.FragmentRepository
	encoder   Embedder
	cfg       config.IngestConfig
	logger    *zap.Logger
}

// NewService creates a new ingest service
func NewService(fragments repositories.FragmentRepository, encoder Embedder, cfg config.IngestConfig, logger *zap.Logger) *Service {
	return &Service{
		fragments: fragments,
		encoder:   encoder,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run ingests every .txt and .pdf file in the configured data directory.
// Unreadable files are skipped with a warning; embedding or storage failures
// abort the run.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	txtFiles, err := filepath.Glob(filepath.Join(s.cfg.DataDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list txt files: %w", err)
	}
	pdfFiles, err := filepath.Glob(filepath.Join(s.cfg.DataDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("failed to list pdf files: %w", err)
	}

	for _, path := range txtFiles {
		content, err := readTextFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			summary.SkippedFiles++
			continue
		}
		inserted, err := s.ingestDocument(ctx, filepath.Base(path), "txt", content)
		if err != nil {
			return nil, err
		}
		summary.TxtFiles++
		summary.Chunks += inserted
	}

	for _, path := range pdfFiles {
		content, err := extractPDFText(path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			summary.SkippedFiles++
			continue
		}
		inserted, err := s.ingestDocument(ctx, filepath.Base(path), "pdf", content)
		if err != nil {
			return nil, err
		}
		summary.PdfFiles++
		summary.Chunks += inserted
	}

	s.logger.Info("ingestion complete",
		zap.Int("txt_files", summary.TxtFiles),
		zap.Int("pdf_files", summary.PdfFiles),
		zap.Int("chunks", summary.Chunks),
		zap.Int("skipped_files", summary.SkippedFiles))

	return summary, nil
}

func (s *Service) ingestDocument(ctx context.Context, name, kind, content string) (int, error) {
	chunks := ChunkText(content, s.cfg.ChunkSize)

	inserted := 0
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		vector, err := s.encoder.Encode(ctx, chunk)
		if err != nil {
			return inserted, fmt.Errorf("failed to embed chunk of %s: %w", name, err)
		}

		if err := s.fragments.Insert(ctx, chunk, vector, name, kind); err != nil {
			return inserted, fmt.Errorf("failed to store chunk of %s: %w", name, err)
		}
		inserted++
	}

	s.logger.Debug("document ingested",
		zap.String("file", name),
		zap.String("type", kind),
		zap.Int("chunks", inserted))

	return inserted, nil
}

// ChunkText splits content into consecutive chunks of at most size runes.
func ChunkText(content string, size int) []string {
	if size < 1 || content == "" {
		return nil
	}

	runes := []rune(content)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// readTextFile reads a .txt file, decoding legacy single-byte encodings when
// the content is not valid UTF-8.
func readTextFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if utf8.Valid(raw) {
		return strings.TrimSpace(string(raw)), nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return strings.TrimSpace(string(decoded)), nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}
