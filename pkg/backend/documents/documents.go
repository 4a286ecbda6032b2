// Package documents renders text to PDF for Slack, lists the shared files
// folder, and produces text embeddings.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/backend/slack"
)

const (
	MaxPDFText       = 500_000
	MaxEmbeddingText = 8000
	DefaultFolder    = "uploads"
)

// EmbeddingModels are the models get_embedding accepts.
var EmbeddingModels = []string{
	"text-embedding-ada-002",
	"text-embedding-3-small",
	"text-embedding-3-large",
}

type Uploader interface {
	UploadFile(ctx context.Context, source, channel, title, ts string) (slack.Upload, error)
}

type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float64, error)
}

// Config points at the shared files folder. BaseURL, when set, is the public
// prefix under which Root is served.
type Config struct {
	Root    string
	BaseURL string
}

type Service struct {
	cfg      Config
	uploader Uploader
	embedder Embedder
	logger   *slog.Logger
}

func New(cfg Config, uploader Uploader, embedder Embedder) *Service {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{cfg: cfg, uploader: uploader, embedder: embedder}
}

func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// PDFUpload reports a rendered and uploaded PDF.
type PDFUpload struct {
	Status   string `json:"status"`
	FileName string `json:"file_name"`
	FileID   string `json:"file_id"`
	Channel  string `json:"channel"`
	Archived string `json:"archived_as,omitempty"`
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

func fileName(title string) string {
	name := strings.TrimSpace(unsafeName.ReplaceAllString(title, "_"))
	name = strings.Trim(name, ".")
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}

// SendAsPDF renders text to a PDF titled title and uploads it to channel.
// A copy is kept under the files root when one is configured.
func (s *Service) SendAsPDF(ctx context.Context, text, channel, title, ts string) (PDFUpload, error) {
	text, channel, title = strings.TrimSpace(text), strings.TrimSpace(channel), strings.TrimSpace(title)
	switch {
	case text == "":
		return PDFUpload{}, backend.Errorf(backend.ErrInvalid, "Text content cannot be empty")
	case channel == "":
		return PDFUpload{}, backend.Errorf(backend.ErrInvalid, "Chat ID cannot be empty")
	case title == "":
		return PDFUpload{}, backend.Errorf(backend.ErrInvalid, "Title cannot be empty")
	case len(text) > MaxPDFText:
		return PDFUpload{}, backend.Errorf(backend.ErrInvalid, "Text content is too large for PDF conversion")
	}
	if s.uploader == nil {
		return PDFUpload{}, backend.NotConfigured("Slack upload")
	}

	dir, err := os.MkdirTemp("", "officemcp-pdf-")
	if err != nil {
		return PDFUpload{}, fmt.Errorf("create pdf workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := fileName(title)
	pdfPath := filepath.Join(dir, name)
	if err := renderPDF(title, text, pdfPath); err != nil {
		return PDFUpload{}, err
	}

	res := PDFUpload{FileName: name, Channel: channel}
	if s.cfg.Root != "" {
		archived, err := s.archive(pdfPath, name)
		if err != nil {
			s.logWarn("pdf_archive_failed", "file", name, "error", err)
		} else {
			res.Archived = archived
		}
	}

	up, err := s.uploader.UploadFile(ctx, pdfPath, channel, title, ts)
	if err != nil {
		return PDFUpload{}, fmt.Errorf("upload pdf: %w", err)
	}
	res.FileID = up.FileID
	res.Status = "Success: PDF sent to Slack."
	s.logInfo("pdf_uploaded", "file", name, "channel", channel, "file_id", up.FileID)
	return res, nil
}

func (s *Service) archive(src, name string) (string, error) {
	dir := filepath.Join(s.cfg.Root, DefaultFolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return path.Join(DefaultFolder, name), nil
}

// Listing maps file names under a folder to their locations.
type Listing struct {
	Folder    string            `json:"folder"`
	Files     map[string]string `json:"files"`
	FileCount int               `json:"file_count"`
}

// ListFiles lists regular files below Root/prefix. prefix is a single folder
// name and may not traverse.
func (s *Service) ListFiles(prefix string) (Listing, error) {
	if s.cfg.Root == "" {
		return Listing{}, backend.NotConfigured("Shared files folder")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultFolder
	}
	if strings.Contains(prefix, "..") || strings.ContainsAny(prefix, `/\`) {
		return Listing{}, backend.Errorf(backend.ErrInvalid, "Invalid folder prefix. Cannot contain path traversal characters")
	}

	base := filepath.Join(s.cfg.Root, prefix)
	files := map[string]string{}
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.cfg.Root, p)
		if err != nil {
			return err
		}
		files[d.Name()] = s.location(filepath.ToSlash(rel), p)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Listing{}, fmt.Errorf("list %s: %w", prefix, err)
	}
	return Listing{Folder: prefix, Files: files, FileCount: len(files)}, nil
}

func (s *Service) location(rel, abs string) string {
	if s.cfg.BaseURL == "" {
		return abs
	}
	return s.cfg.BaseURL + "/" + rel
}

// Embedding is a vector for a cleaned input text.
type Embedding struct {
	Text            string    `json:"text"`
	Embedding       []float64 `json:"embedding"`
	Model           string    `json:"model"`
	EmbeddingLength int       `json:"embedding_length"`
}

func (s *Service) Embedding(ctx context.Context, text, model string) (Embedding, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Embedding{}, backend.Errorf(backend.ErrInvalid, "Text cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxEmbeddingText {
		return Embedding{}, backend.Errorf(backend.ErrInvalid, "Text is too long for embedding generation")
	}
	if model == "" {
		model = EmbeddingModels[0]
	}
	if !slices.Contains(EmbeddingModels, model) {
		return Embedding{}, backend.Errorf(backend.ErrInvalid, "Invalid model. Must be one of: %s", strings.Join(EmbeddingModels, ", "))
	}
	if s.embedder == nil {
		return Embedding{}, backend.NotConfigured("OpenAI client")
	}

	cleaned := strings.ReplaceAll(text, "\n", " ")
	vec, err := s.embedder.Embed(ctx, cleaned, model)
	if err != nil {
		return Embedding{}, err
	}
	return Embedding{Text: cleaned, Embedding: vec, Model: model, EmbeddingLength: len(vec)}, nil
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
