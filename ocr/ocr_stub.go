//go:build !ocr

package ocr

// Enabled reports whether Tesseract support was compiled in.
const Enabled = false

// Client is the stand-in used when OCR support is not compiled in.
type Client struct{}

// New returns ErrOCRNotEnabled.
func New(opts Options) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op. It is safe to call on a nil client.
func (c *Client) Close() error {
	return nil
}

// RecognizeImage returns ErrOCRNotEnabled.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}
