// Package gemini is the direct provider adapter: one generateContent
// round trip that carries the reference image inline and returns the
// cover in the same response.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"video-cover-maker/internal/cover"
)

const defaultModel = "gemini-2.5-flash-image"

type Options struct {
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// Generate runs one synchronous generation call and returns the first
// inline image of the first candidate as a data URI.
func (c *Client) Generate(ctx context.Context, job cover.Job) (string, error) {
	if c.httpClient == nil {
		return "", errors.New("http client is nil")
	}

	payload := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: job.Prompt},
				{InlineData: &blob{Data: job.ImageBase64, MimeType: job.ImageMIME}},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig: &imageConfig{
				AspectRatio: job.AspectRatio,
				ImageSize:   job.Resolution,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", job.Secret)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return "", statusError(httpResp.StatusCode, rawBody)
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	dataURI, ok := firstInlineImage(decoded)
	if !ok {
		return "", cover.E(cover.KindNoImage, "response carried no inline image part")
	}

	c.logger.Debug("direct generation done", "ratio", job.AspectRatio)
	return dataURI, nil
}

func statusError(status int, body []byte) error {
	snippet := bodySnippet(body)

	var kind cover.Kind
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = cover.KindCredential
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		kind = cover.KindOverloaded
	default:
		kind = cover.KindSubmit
	}

	return cover.E(kind, "generation call failed").WithStatus(status).WithDetail(snippet)
}

// firstInlineImage scans the first candidate's parts for an inline image
// payload and wraps it as a self-describing data URI.
func firstInlineImage(resp generateContentResponse) (string, bool) {
	if len(resp.Candidates) == 0 {
		return "", false
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" && p.InlineData.MimeType != "" {
			return fmt.Sprintf("data:%s;base64,%s", p.InlineData.MimeType, p.InlineData.Data), true
		}
	}
	return "", false
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	const max = 300
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
