// Package images stores user-uploaded photos on local disk and hands back
// URLs the chat widget and the vision calls can reference.
package images

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/stirosario/tecnos/internal/models"
	"github.com/stirosario/tecnos/internal/util"
)

// MaxImageBytes is the decoded size limit for one upload.
const MaxImageBytes = 10 << 20

// URLPrefix is the path under which stored images are served.
const URLPrefix = "/uploads/"

var (
	// ErrImageTooLarge indicates a decoded payload over MaxImageBytes.
	ErrImageTooLarge = errors.New("image exceeds size limit")
	// ErrInvalidImage indicates a payload that is not decodable base64.
	ErrInvalidImage = errors.New("invalid image payload")
)

// extByMIME maps the data-URL media type to the stored file extension.
var extByMIME = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store writes uploads into a directory on local disk.
type Store struct {
	dir     string
	baseURL string
}

// Opts configures an image store.
type Opts struct {
	// Dir is the directory uploads are written to.
	Dir string
	// BaseURL prefixes returned URLs, e.g. "https://bot.stirosario.com.ar".
	BaseURL string
}

// NewStore creates the upload directory if needed and returns a store.
func NewStore(opts Opts) (*Store, error) {
	if opts.Dir == "" {
		opts.Dir = "uploads"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: opts.Dir, baseURL: strings.TrimSuffix(opts.BaseURL, "/")}, nil
}

// Dir returns the directory uploads are stored in.
func (s *Store) Dir() string { return s.dir }

// SaveImage decodes one base64 payload (with or without a data-URL header),
// enforces the size limit and writes it under a random name. It returns the
// URL the stored image is served at.
func (s *Store) SaveImage(payload string) (string, error) {
	mime, data := splitDataURL(payload)
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(raw) == 0 {
		return "", ErrInvalidImage
	}
	if len(raw) > MaxImageBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(raw))
	}
	ext, ok := extByMIME[mime]
	if !ok {
		ext = ".png"
	}
	name := util.GenerateUploadName() + ext
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	slog.Debug("Store.SaveImage: stored upload", "path", path, "bytes", len(raw))
	return s.baseURL + URLPrefix + name, nil
}

// ProcessImages saves each payload in order and returns the URLs of the
// images that saved. A bad payload does not abort the batch; per-file
// errors are collected and returned joined alongside the successful URLs.
// Only an oversized batch is rejected outright.
func (s *Store) ProcessImages(payloads []string) ([]string, error) {
	if len(payloads) > models.MaxImagesPerTurn {
		return nil, models.ErrTooManyImages
	}
	urls := make([]string, 0, len(payloads))
	var errs []error
	for i, p := range payloads {
		url, err := s.SaveImage(p)
		if err != nil {
			slog.Warn("Store.ProcessImages: skipping bad upload", "index", i, "error", err)
			errs = append(errs, fmt.Errorf("image %d: %w", i, err))
			continue
		}
		urls = append(urls, url)
	}
	return urls, errors.Join(errs...)
}

// splitDataURL separates an optional "data:<mime>;base64," header from the
// payload. Bare base64 is accepted as-is.
func splitDataURL(payload string) (mime, data string) {
	if !strings.HasPrefix(payload, "data:") {
		return "", payload
	}
	header, rest, ok := strings.Cut(payload, ",")
	if !ok {
		return "", payload
	}
	header = strings.TrimPrefix(header, "data:")
	header = strings.TrimSuffix(header, ";base64")
	return header, rest
}
