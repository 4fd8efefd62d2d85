//go:build ocr

package ocr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Enabled reports whether Tesseract support was compiled in.
const Enabled = true

// Client recognises text with a single Tesseract instance. Calls are
// serialised; it is safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a Client. Close it to release the engine.
func New(opts Options) (*Client, error) {
	client := gosseract.NewClient()

	if opts.Language != "" {
		if err := client.SetLanguage(strings.Split(opts.Language, "+")...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR language %q: %w", opts.Language, err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases the engine.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// RecognizeImage performs OCR on encoded image data (PNG, TIFF, JPEG, ...)
// and returns the text with surrounding whitespace trimmed.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
