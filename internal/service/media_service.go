package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"gift-store/internal/storage"
)

const (
	// MaxImageWidth is the width product images are scaled down to.
	MaxImageWidth = 800
	// DefaultMaxUploadSize applies when no limit is configured.
	DefaultMaxUploadSize = 5 << 20
	// MaxImagePixels bounds the decoded size of an upload. A small compressed
	// file can declare dimensions far beyond what the byte limit suggests.
	MaxImagePixels = 40_000_000

	jpegQuality = 80
)

var (
	ErrFileTooLarge       = errors.New("file too large")
	ErrImageTooLarge      = errors.New("image dimensions too large")
	ErrUnsupportedImage   = errors.New("unsupported image format, only JPEG and PNG are allowed")
	allowedImageMIMETypes = map[string]bool{"image/jpeg": true, "image/png": true}
)

// MediaService stores product images
type MediaService interface {
	UploadProductImage(ctx context.Context, data io.Reader) (*storage.UploadResult, error)
}

type mediaService struct {
	store   storage.Storage
	maxSize int64
}

// NewMediaService creates a new instance of MediaService
func NewMediaService(store storage.Storage, maxSize int64) MediaService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &mediaService{store: store, maxSize: maxSize}
}

// UploadProductImage accepts a JPEG or PNG, scales it down to MaxImageWidth,
// re-encodes it as JPEG and returns the stored file's public URL.
func (s *mediaService) UploadProductImage(ctx context.Context, data io.Reader) (*storage.UploadResult, error) {
	raw, err := io.ReadAll(io.LimitReader(data, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(raw)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	if !allowedImageMIMETypes[http.DetectContentType(raw)] {
		return nil, ErrUnsupportedImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, ErrImageTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	if img.Bounds().Dx() > MaxImageWidth {
		img = resize.Resize(MaxImageWidth, 0, img, resize.Lanczos3)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	result, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         uuid.NewString() + ".jpg",
		ContentType: "image/jpeg",
		Data:        &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	return result, nil
}
