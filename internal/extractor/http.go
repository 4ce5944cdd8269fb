package extractor

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPExtractor calls a remote embedding inference endpoint.
type HTTPExtractor struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

// HTTPConfig holds configuration for the remote extractor.
type HTTPConfig struct {
	Endpoint   string
	Model      string
	APIKey     string
	Timeout    time.Duration
	Dimensions int
}

// NewHTTPExtractor creates an extractor backed by a remote inference service.
func NewHTTPExtractor(cfg *HTTPConfig) *HTTPExtractor {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &HTTPExtractor{
		client:     client,
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (e *HTTPExtractor) Dimensions() int {
	return e.dimensions
}

type embedRequest struct {
	Model     string `json:"model,omitempty"`
	ImageData string `json:"image_data"`
	MimeType  string `json:"mime_type"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Detail    string    `json:"detail,omitempty"`
}

// Extract posts the image to the inference endpoint and returns its embedding.
func (e *HTTPExtractor) Extract(ctx context.Context, image []byte, mimeType string) ([]float32, error) {
	req := embedRequest{
		Model:     e.model,
		ImageData: base64.StdEncoding.EncodeToString(image),
		MimeType:  mimeType,
	}

	var resp embedResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(e.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call extractor API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("extractor API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("extractor API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	if e.dimensions > 0 && len(resp.Embedding) != e.dimensions {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, expected %d", len(resp.Embedding), e.dimensions)
	}

	return resp.Embedding, nil
}
