package scanning

import (
	"context"
	"errors"
)

// ErrServiceUnavailable indicates a transient failure talking to the
// extraction service (network, timeout, overload). Callers decide whether
// to retry; this package never retries on its own.
var ErrServiceUnavailable = errors.New("extraction service unavailable")

// ErrInvalidCredentials indicates the extraction service rejected the
// configured API key. This is a fatal configuration problem, not a
// transient failure, and requires operator action.
var ErrInvalidCredentials = errors.New("extraction service rejected credentials")

// Extractor sends an image plus an instruction to a vision-capable
// generation service and returns the raw text response. Failures are
// classified against ErrServiceUnavailable and ErrInvalidCredentials.
type Extractor interface {
	// Extract runs one extraction request. contentType is the declared MIME
	// type of imageData; implementations normalize the image before upload.
	Extract(ctx context.Context, imageData []byte, contentType string, instruction string) (string, error)

	// Close releases any resources held by the underlying client.
	Close() error
}

// TextGenerator runs a text-only prompt against the generation service.
// Used for voice command parsing and recipe generation, which carry no
// image payload.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
