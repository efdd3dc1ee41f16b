package images

import (
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stirosario/tecnos/internal/models"
)

// tiny valid PNG header bytes, enough for a write test
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Opts{Dir: t.TempDir(), BaseURL: "https://bot.example.com"})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveImage_DataURL(t *testing.T) {
	s := newTestStore(t)
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	url, err := s.SaveImage(payload)
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasPrefix(url, "https://bot.example.com/uploads/img_") {
		t.Errorf("unexpected url %q", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("expected .png extension, got %q", url)
	}

	name := strings.TrimPrefix(url, "https://bot.example.com/uploads/")
	data, err := os.ReadFile(s.Dir() + "/" + name)
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(data) != string(pngBytes) {
		t.Error("stored bytes differ from payload")
	}
}

func TestSaveImage_BareBase64(t *testing.T) {
	s := newTestStore(t)
	url, err := s.SaveImage(base64.StdEncoding.EncodeToString(pngBytes))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("bare payload should default to .png, got %q", url)
	}
}

func TestSaveImage_JPEGExtension(t *testing.T) {
	s := newTestStore(t)
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	url, err := s.SaveImage(payload)
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasSuffix(url, ".jpg") {
		t.Errorf("expected .jpg, got %q", url)
	}
}

func TestSaveImage_InvalidBase64(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveImage("!!not base64!!"); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("err = %v, want ErrInvalidImage", err)
	}
	if _, err := s.SaveImage(""); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("empty payload err = %v, want ErrInvalidImage", err)
	}
}

func TestProcessImages(t *testing.T) {
	s := newTestStore(t)
	payload := base64.StdEncoding.EncodeToString(pngBytes)
	urls, err := s.ProcessImages([]string{payload, payload})
	if err != nil {
		t.Fatalf("ProcessImages: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2", len(urls))
	}
	if urls[0] == urls[1] {
		t.Error("uploads should get distinct names")
	}
}

func TestProcessImages_TooMany(t *testing.T) {
	s := newTestStore(t)
	payload := base64.StdEncoding.EncodeToString(pngBytes)
	batch := make([]string, models.MaxImagesPerTurn+1)
	for i := range batch {
		batch[i] = payload
	}
	if _, err := s.ProcessImages(batch); !errors.Is(err, models.ErrTooManyImages) {
		t.Errorf("err = %v, want ErrTooManyImages", err)
	}
}

func TestProcessImages_BadEntrySkipped(t *testing.T) {
	s := newTestStore(t)
	payload := base64.StdEncoding.EncodeToString(pngBytes)
	urls, err := s.ProcessImages([]string{payload, "@@@", payload})
	if err == nil {
		t.Fatal("expected an error for the bad entry")
	}
	if len(urls) != 2 {
		t.Fatalf("good entries should still save, got %d urls", len(urls))
	}
	for _, u := range urls {
		if !strings.HasPrefix(u, "https://bot.example.com"+URLPrefix) {
			t.Errorf("unexpected url %q", u)
		}
	}
}

func TestSplitDataURL(t *testing.T) {
	tests := []struct {
		in       string
		mime     string
		dataPart string
	}{
		{"data:image/png;base64,AAAA", "image/png", "AAAA"},
		{"data:image/webp;base64,BBBB", "image/webp", "BBBB"},
		{"CCCC", "", "CCCC"},
	}
	for _, tt := range tests {
		mime, data := splitDataURL(tt.in)
		if mime != tt.mime || data != tt.dataPart {
			t.Errorf("splitDataURL(%q) = (%q, %q), want (%q, %q)", tt.in, mime, data, tt.mime, tt.dataPart)
		}
	}
}
