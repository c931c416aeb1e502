// Package imagegen talks to an external image-generation service and stores
// the resulting illustrations on disk.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
)

const maxImageBytes = 16 << 20

// Client posts prompts to the image backend and returns raw image bytes.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.ImageGenerator = (*Client)(nil)

// NewClient creates a reusable HTTP client for the image backend.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Generate submits the prompt with requested dimensions and returns the bytes
// of the produced image. Any failure maps to domain.ErrImageGeneration.
func (c *Client) Generate(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: no endpoint configured", domain.ErrImageGeneration)
	}

	body, err := json.Marshal(map[string]any{
		"prompt": prompt,
		"width":  width,
		"height": height,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrImageGeneration, resp.Status, strings.TrimSpace(string(detail)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrImageGeneration, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response body", domain.ErrImageGeneration)
	}
	return data, nil
}

// FileStore writes generated images under a single directory.
type FileStore struct {
	dir string
}

var _ ports.ImageStore = (*FileStore)(nil)

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// SaveImage writes the bytes and returns the reference recorded on the article.
func (s *FileStore) SaveImage(name string, data []byte) (string, error) {
	ref := filepath.Join(s.dir, name)
	if err := os.WriteFile(ref, data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", name, err)
	}
	return ref, nil
}
