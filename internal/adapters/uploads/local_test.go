package uploads

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalUploaderWritesUnderDir(t *testing.T) {
	dir := t.TempDir()
	uploader := NewLocalUploader(filepath.Join(dir, "uploads"), "")
	uploader.newID = func() string { return "fixed" }

	ref, err := uploader.Upload(context.Background(), []byte("png"), "poster.png", "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref != "/uploads/fixed-poster.png" {
		t.Fatalf("unexpected reference: %q", ref)
	}
	data, err := os.ReadFile(filepath.Join(dir, "uploads", "fixed-poster.png"))
	if err != nil {
		t.Fatalf("read upload: %v", err)
	}
	if string(data) != "png" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestLocalUploaderUsesBaseURL(t *testing.T) {
	uploader := NewLocalUploader(t.TempDir(), "https://cdn.example.com/media/")

	ref, err := uploader.Upload(context.Background(), []byte("x"), "a.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(ref, "https://cdn.example.com/media/") || !strings.HasSuffix(ref, "-a.jpg") {
		t.Fatalf("unexpected reference: %q", ref)
	}
}

func TestLocalUploaderRejectsBadInput(t *testing.T) {
	uploader := NewLocalUploader(t.TempDir(), "")

	if _, err := uploader.Upload(context.Background(), nil, "a.png", "image/png"); err == nil {
		t.Fatal("expected empty file error")
	}
	if _, err := uploader.Upload(context.Background(), []byte("x"), ".htaccess", "image/png"); err == nil {
		t.Fatal("expected unsafe filename error")
	}
}

func TestLocalUploaderNeverOverwrites(t *testing.T) {
	uploader := NewLocalUploader(t.TempDir(), "")
	uploader.newID = func() string { return "same" }

	if _, err := uploader.Upload(context.Background(), []byte("one"), "a.png", "image/png"); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := uploader.Upload(context.Background(), []byte("two"), "a.png", "image/png"); err == nil {
		t.Fatal("expected collision error")
	}
}
