package documents

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/backend/slack"
)

type fakeUploader struct {
	body    []byte
	name    string
	channel string
	ts      string
	err     error
}

func (f *fakeUploader) UploadFile(_ context.Context, source, channel, title, ts string) (slack.Upload, error) {
	if f.err != nil {
		return slack.Upload{}, f.err
	}
	body, err := os.ReadFile(source)
	if err != nil {
		return slack.Upload{}, err
	}
	f.body, f.name, f.channel, f.ts = body, filepath.Base(source), channel, ts
	return slack.Upload{OK: true, FileID: "F9", Title: title, Channel: channel}, nil
}

type fakeEmbedder struct{ text, model string }

func (f *fakeEmbedder) Embed(_ context.Context, text, model string) ([]float64, error) {
	f.text, f.model = text, model
	return []float64{1, 2, 3, 4}, nil
}

func TestSendAsPDF(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	up := &fakeUploader{}
	svc := New(Config{Root: root}, up, nil)

	text := "# Quarterly report\n\nRevenue is **up**.\n- item one\n- item two, café"
	res, err := svc.SendAsPDF(context.Background(), text, "C1", "Q3 / Report", "171.2")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !bytes.HasPrefix(up.body, []byte("%PDF-")) {
		t.Fatalf("uploaded file is not a PDF: %q", up.body[:min(len(up.body), 16)])
	}
	if res.FileID != "F9" || res.FileName != "Q3 _ Report.pdf" || up.name != res.FileName || up.ts != "171.2" {
		t.Fatalf("unexpected result %+v uploader %+v", res, up.name)
	}
	if res.Archived != "uploads/Q3 _ Report.pdf" {
		t.Fatalf("unexpected archive path %q", res.Archived)
	}

	listing, err := svc.ListFiles("")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listing.FileCount != 1 || listing.Files["Q3 _ Report.pdf"] == "" {
		t.Fatalf("archived pdf not listed: %+v", listing)
	}
}

func TestSendAsPDFErrors(t *testing.T) {
	t.Parallel()

	svc := New(Config{}, &fakeUploader{err: errors.New("channel_not_found")}, nil)
	if _, err := svc.SendAsPDF(context.Background(), "hi", "C1", "t", ""); err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected upload error, got %v", err)
	}
	for _, args := range [][3]string{{" ", "C1", "t"}, {"x", "", "t"}, {"x", "C1", " "}} {
		if _, err := svc.SendAsPDF(context.Background(), args[0], args[1], args[2], ""); !errors.Is(err, backend.ErrInvalid) {
			t.Fatalf("%v: expected invalid, got %v", args, err)
		}
	}
	if _, err := New(Config{}, nil, nil).SendAsPDF(context.Background(), "x", "C1", "t", ""); !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "invoices", "2024"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, p := range []string{"invoices/a.pdf", "invoices/2024/b.pdf", "secret.txt"} {
		if err := os.WriteFile(filepath.Join(root, p), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	svc := New(Config{Root: root, BaseURL: "https://files.example/"}, nil, nil)

	listing, err := svc.ListFiles("invoices")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listing.FileCount != 2 || listing.Files["b.pdf"] != "https://files.example/invoices/2024/b.pdf" {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if _, ok := listing.Files["secret.txt"]; ok {
		t.Fatalf("listing escaped folder: %+v", listing)
	}

	empty, err := svc.ListFiles("missing")
	if err != nil || empty.FileCount != 0 || empty.Files == nil {
		t.Fatalf("expected empty listing, got %+v (%v)", empty, err)
	}
	for _, bad := range []string{"..", "a/b", `a\b`, "x..y"} {
		if _, err := svc.ListFiles(bad); !errors.Is(err, backend.ErrInvalid) {
			t.Fatalf("%q: expected invalid prefix, got %v", bad, err)
		}
	}
}

func TestEmbedding(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{}
	svc := New(Config{}, nil, emb)
	res, err := svc.Embedding(context.Background(), " line one\nline two ", "")
	if err != nil {
		t.Fatalf("embedding: %v", err)
	}
	if res.Text != "line one line two" || emb.model != "text-embedding-ada-002" || res.EmbeddingLength != 4 {
		t.Fatalf("unexpected embedding %+v", res)
	}

	if _, err := svc.Embedding(context.Background(), "x", "gpt-4"); !errors.Is(err, backend.ErrInvalid) {
		t.Fatalf("expected invalid model, got %v", err)
	}
	if _, err := svc.Embedding(context.Background(), strings.Repeat("a", MaxEmbeddingText+1), ""); !errors.Is(err, backend.ErrInvalid) {
		t.Fatalf("expected too long, got %v", err)
	}
	if _, err := New(Config{}, nil, nil).Embedding(context.Background(), "x", ""); !errors.Is(err, backend.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}
