// internal/domain/upload/storage.go
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
)

const defaultCloudinaryURL = "https://api.cloudinary.com/v1_1"

// Object describes a stored file
type Object struct {
	Path string
	URL  string
}

// Storage persists uploaded bytes and returns where they can be fetched
type Storage interface {
	Name() string
	Store(ctx context.Context, dir, filename, contentType string, r io.Reader) (*Object, error)
}

// NewStorage builds the storage backend named by cfg.Provider
func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalStorage(cfg.LocalPath, cfg.PublicBaseURL), nil
	case "cloudinary":
		return NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, cfg.CloudinaryFolder), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// LocalStorage writes files under a directory served as static files
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates a disk-backed storage
func NewLocalStorage(root, baseURL string) *LocalStorage {
	if root == "" {
		root = "./uploads"
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the provider name
func (l *LocalStorage) Name() string { return "local" }

// Root returns the directory files are written under
func (l *LocalStorage) Root() string { return l.root }

// Store writes r to <root>/<dir>/<filename>
func (l *LocalStorage) Store(_ context.Context, dir, filename, _ string, r io.Reader) (*Object, error) {
	relativePath := filepath.Join(dir, filename)
	fullPath := filepath.Join(l.root, relativePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &Object{
		Path: filepath.ToSlash(relativePath),
		URL:  l.baseURL + "/" + path.Join(filepath.ToSlash(dir), filename),
	}, nil
}

// CloudinaryStorage uploads with an unsigned upload preset
type CloudinaryStorage struct {
	cloudName string
	preset    string
	folder    string
	baseURL   string
	client    *http.Client
}

// NewCloudinaryStorage creates a Cloudinary-backed storage
func NewCloudinaryStorage(cloudName, preset, folder string) *CloudinaryStorage {
	return &CloudinaryStorage{
		cloudName: cloudName,
		preset:    preset,
		folder:    folder,
		baseURL:   defaultCloudinaryURL,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider name
func (c *CloudinaryStorage) Name() string { return "cloudinary" }

type cloudinaryResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Store posts r as a multipart image upload
func (c *CloudinaryStorage) Store(ctx context.Context, dir, filename, _ string, r io.Reader) (*Object, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	folder := strings.Trim(path.Join(c.folder, dir), "/")
	fields := map[string]string{
		"upload_preset": c.preset,
		"public_id":     strings.TrimSuffix(filename, path.Ext(filename)),
	}
	if folder != "" {
		fields["folder"] = folder
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to build upload form: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudinary request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	defer resp.Body.Close()

	var result cloudinaryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Cloudinary response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("Cloudinary upload failed with status %d: %s", resp.StatusCode, msg)
	}

	return &Object{Path: result.PublicID, URL: result.SecureURL}, nil
}
