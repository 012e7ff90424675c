package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const geminiTimeout = 30 * time.Second

// Gemini implements Extractor and TextGenerator using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini client.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Extract sends the image and instruction to Gemini and returns the raw
// text response.
func (g *Gemini) Extract(ctx context.Context, imageData []byte, contentType string, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	pngData, err := prepareImage(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData expects the format suffix, not a full MIME type.
	// prepareImage always yields PNG.
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(instruction),
	}

	return g.generate(ctx, parts)
}

// Generate runs a text-only prompt.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	return g.generate(ctx, []genai.Part{genai.Text(prompt)})
}

func (g *Gemini) generate(ctx context.Context, parts []genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from gemini", ErrServiceUnavailable)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return responseText.String(), nil
}

// classifyGeminiError maps a generation failure to the package error
// taxonomy. A rejected or revoked API key must surface distinctly from a
// transient outage: the former needs operator action, not a retry.
func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 401 || apiErr.Code == 403 {
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
	}
	msg := err.Error()
	if strings.Contains(msg, "API key not valid") || strings.Contains(msg, "API key was reported as leaked") || strings.Contains(msg, "API_KEY_INVALID") {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
