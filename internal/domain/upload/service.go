// internal/domain/upload/service.go
package upload

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles file upload business logic
type Service struct {
	db         *gorm.DB
	storage    Storage
	maxSize    int64
	extensions map[string]bool
	logger     *logrus.Logger
}

// NewService creates a new upload service
func NewService(db *gorm.DB, storage Storage, cfg config.UploadConfig, logger *logrus.Logger) *Service {
	extensions := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		extensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	return &Service{
		db:         db,
		storage:    storage,
		maxSize:    maxSize,
		extensions: extensions,
		logger:     logger,
	}
}

// MaxSize is the largest accepted upload in bytes
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// StorePaymentProof validates and stores a GCash payment screenshot for an order
func (s *Service) StorePaymentProof(ctx context.Context, userID uint, orderID string, file multipart.File, header *multipart.FileHeader) (*UploadedFile, error) {
	if file == nil || header == nil {
		return nil, apperrors.Validation("screenshot", "file is required")
	}

	ext, err := s.validateFile(header)
	if err != nil {
		return nil, err
	}

	// Sniff the real content type instead of trusting the extension
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	mimeType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, apperrors.Validation("screenshot", "file is not an image")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	width, height := imageDimensions(file)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	filename := uuid.New().String() + "." + ext
	obj, err := s.storage.Store(ctx, CategoryPaymentProof, filename, mimeType, io.LimitReader(file, s.maxSize))
	if err != nil {
		return nil, err
	}

	uploaded := UploadedFile{
		OriginalName: filepath.Base(header.Filename),
		Filename:     filename,
		Path:         obj.Path,
		URL:          obj.URL,
		MimeType:     mimeType,
		Size:         header.Size,
		Provider:     s.storage.Name(),
		Category:     CategoryPaymentProof,
		OrderID:      orderID,
		Width:        width,
		Height:       height,
		UploadedBy:   userID,
	}
	if err := s.db.WithContext(ctx).Create(&uploaded).Error; err != nil {
		return nil, fmt.Errorf("failed to save upload record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"file_id":  uploaded.ID,
		"order_id": orderID,
		"user_id":  userID,
		"size":     uploaded.GetFormattedSize(),
		"provider": uploaded.Provider,
	}).Info("Payment proof uploaded")
	return &uploaded, nil
}

func (s *Service) validateFile(header *multipart.FileHeader) (string, error) {
	if header.Size <= 0 {
		return "", apperrors.Validation("screenshot", "file is empty")
	}
	if header.Size > s.maxSize {
		return "", apperrors.Validation("screenshot", "file exceeds the %d byte limit", s.maxSize)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if !s.extensions[ext] {
		return "", apperrors.Validation("screenshot", "file type %q is not allowed", ext)
	}
	return ext, nil
}

// imageDimensions reads the header of JPEG and PNG files. Other formats
// report zero.
func imageDimensions(r io.Reader) (int, int) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
