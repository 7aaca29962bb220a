// Package vision extracts structured data from page images through an
// OpenAI-compatible chat/completions endpoint.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

const Name = "vision"

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Strict      bool
	Prompt      string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	schema     *jsonschema.Schema
	logger     logger.Logger
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("vision: base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("vision: model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Prompt == "" {
		cfg.Prompt = ExtractionPrompt
	}

	schema, err := compileSchema(BuildExtractionSchema())
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		schema:     schema,
		logger:     log.Named("vision"),
	}, nil
}

func (c *Client) Name() string { return Name }

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Extract sends one page and parses the reply. It makes exactly one attempt.
func (c *Client) Extract(ctx context.Context, page models.PageImage) (models.Extraction, error) {
	start := time.Now()
	fail := func(err error) (models.Extraction, error) {
		c.logger.Error("Extraction failed",
			logger.Int("page", page.Number),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
		return nil, &models.ExtractionError{Page: page.Number, Err: err}
	}

	mime := page.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	dataURI := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(page.Data)

	body := map[string]any{
		"model":       c.cfg.Model,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": c.cfg.Prompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURI}},
				},
			},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return fail(err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return fail(fmt.Errorf("decode response: %w", err))
	}
	if cc.Error != nil && cc.Error.Message != "" {
		return fail(fmt.Errorf("model error: %s", cc.Error.Message))
	}
	if len(cc.Choices) == 0 {
		return fail(errors.New("no choices in response"))
	}

	content := cc.Choices[0].Message.Content
	result, err := parseContent(content, c.schema, c.cfg.Strict)
	if err != nil {
		return fail(err)
	}

	meta := result.Metadata()
	meta["model"] = c.cfg.Model
	meta["extractor"] = Name
	if _, bad := meta["parse_error"]; bad {
		c.logger.Warn("Model reply is not JSON, keeping raw text",
			logger.Int("page", page.Number),
			logger.Int("contentLength", len(content)),
		)
	}

	c.logger.Debug("Page extracted",
		logger.Int("page", page.Number),
		logger.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(string(data), 500))
	}
	return data, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
