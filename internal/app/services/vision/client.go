// Package vision talks to an OpenAI-compatible chat completions endpoint to
// read wound images and compare them.
package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
	"github.com/marcelomcerri-bot/feridas/internal/app/metrics"
	"github.com/marcelomcerri-bot/feridas/internal/config"
	"github.com/marcelomcerri-bot/feridas/internal/httputil"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

// Analyzer produces clinical readings from wound images.
type Analyzer interface {
	AnalyzeWound(ctx context.Context, image string) (wound.Findings, error)
	CompareWounds(ctx context.Context, beforeImage, afterImage string, before, after wound.Findings) (wound.Progress, error)
}

// Callers only ever see these; the underlying cause is logged.
var (
	ErrAnalysisFailed   = errors.New("failed to analyze wound image")
	ErrComparisonFailed = errors.New("failed to compare wound images")
)

const completionsPath = "/chat/completions"

// Client implements Analyzer. One HTTP request is issued per call and
// failed calls are not retried.
type Client struct {
	http      *httputil.Client
	model     string
	maxTokens int
	prompts   *prompts
	log       *logger.Logger
}

var _ Analyzer = (*Client)(nil)

// Option customises a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	auth       httputil.Authorizer
	prompts    *PromptSet
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithAuthorizer overrides the authorizer selected by the auth mode.
func WithAuthorizer(a httputil.Authorizer) Option {
	return func(o *clientOptions) { o.auth = a }
}

// WithPrompts overrides the prompt templates.
func WithPrompts(set PromptSet) Option {
	return func(o *clientOptions) { o.prompts = &set }
}

// New creates a client for cfg.BaseURL.
func New(cfg config.VisionConfig, log *logger.Logger, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.NewDefault("vision")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid model base url %q", cfg.BaseURL)
	}

	set := o.prompts
	if set == nil {
		loaded, err := LoadPrompts(cfg.PromptsFile)
		if err != nil {
			return nil, err
		}
		set = &loaded
	}
	compiled, err := compilePrompts(*set)
	if err != nil {
		return nil, err
	}

	auth := o.auth
	if auth == nil {
		if auth, err = NewAuthorizer(cfg); err != nil {
			return nil, err
		}
	}

	var query map[string]string
	if cfg.APIVersion != "" {
		query = map[string]string{"api-version": cfg.APIVersion}
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-5"
	}
	maxTokens := cfg.MaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	return &Client{
		http: httputil.NewClient(httputil.ClientConfig{
			BaseURL:    base,
			Timeout:    cfg.Timeout,
			HTTPClient: o.httpClient,
			Query:      query,
			Auth:       auth,
		}),
		model:     model,
		maxTokens: maxTokens,
		prompts:   compiled,
		log:       log,
	}, nil
}

// AnalyzeWound reads a single image.
func (c *Client) AnalyzeWound(ctx context.Context, image string) (wound.Findings, error) {
	start := time.Now()
	findings, err := c.analyze(ctx, image)
	metrics.RecordVisionCall("analyze", time.Since(start), err)
	if err != nil {
		c.log.WithContext(ctx).WithError(err).Error("wound analysis failed")
		return wound.Findings{}, ErrAnalysisFailed
	}
	return findings, nil
}

// CompareWounds rates the evolution between two images given their
// individual readings.
func (c *Client) CompareWounds(ctx context.Context, beforeImage, afterImage string, before, after wound.Findings) (wound.Progress, error) {
	start := time.Now()
	progress, err := c.compare(ctx, beforeImage, afterImage, before, after)
	metrics.RecordVisionCall("compare", time.Since(start), err)
	if err != nil {
		c.log.WithContext(ctx).WithError(err).Error("wound comparison failed")
		return wound.Progress{}, ErrComparisonFailed
	}
	return progress, nil
}

func (c *Client) analyze(ctx context.Context, image string) (wound.Findings, error) {
	system, err := render(c.prompts.analysisSystem, nil)
	if err != nil {
		return wound.Findings{}, err
	}
	user, err := render(c.prompts.analysisUser, nil)
	if err != nil {
		return wound.Findings{}, err
	}
	content, err := c.complete(ctx, system, user, image)
	if err != nil {
		return wound.Findings{}, err
	}
	return parseFindings(content)
}

func (c *Client) compare(ctx context.Context, beforeImage, afterImage string, before, after wound.Findings) (wound.Progress, error) {
	system, err := render(c.prompts.comparisonSystem, nil)
	if err != nil {
		return wound.Progress{}, err
	}
	user, err := render(c.prompts.comparisonUser, comparisonPromptData{Before: before, After: after})
	if err != nil {
		return wound.Progress{}, err
	}
	content, err := c.complete(ctx, system, user, beforeImage, afterImage)
	if err != nil {
		return wound.Progress{}, err
	}
	return parseProgress(content)
}

// complete sends one chat completion and returns the message content.
func (c *Client) complete(ctx context.Context, system, user string, images ...string) (string, error) {
	parts := make([]contentPart, 0, len(images)+1)
	parts = append(parts, contentPart{Type: "text", Text: user})
	for _, img := range images {
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: wound.ParseImage(img).DataURL()},
		})
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: parts},
		},
		ResponseFormat:      responseFormat{Type: "json_object"},
		MaxCompletionTokens: c.maxTokens,
	}

	body, err := c.http.PostJSON(ctx, completionsPath, req)
	if err != nil {
		return "", err
	}
	return messageContent(body)
}

type chatRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	ResponseFormat      responseFormat `json:"response_format"`
	MaxCompletionTokens int            `json:"max_completion_tokens"`
}

// chatMessage content is a string or a list of contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}
