// Package gemini classifies news items for ocean relevance with a Gemini
// model via google.golang.org/genai.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/JakeFAU/ocean-news/internal/news"
	"github.com/JakeFAU/ocean-news/internal/relevance"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

const systemInstruction = `You screen news for an ocean science data portal.
Only stories whose main subject is the ocean, marine life, coasts, sea ice or
ocean-driven weather and climate are relevant. Entertainment, games, music,
sports, finance, politics, consumer tech, cosmetics and food stories are not
relevant even when they mention the sea. Reply with JSON only.`

// Config configures the Gemini classifier.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint. Tests point it at an httptest server.
	BaseURL string
	// Timeout bounds each batch call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 10 * time.Second

// Classifier implements relevance.Classifier.
type Classifier struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a Classifier. An empty API key is an error; callers that want a
// keyword-only pipeline should pass a nil classifier instead.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Classifier{client: client, model: cfg.Model, timeout: cfg.Timeout, logger: logger}, nil
}

// Classify sends one batch and parses the verdict list.
func (c *Classifier) Classify(ctx context.Context, items []news.Item) ([]relevance.Verdict, error) {
	if len(items) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(BuildPrompt(items)), &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return nil, mapError(err)
	}
	verdicts, err := ParseVerdicts(resp.Text())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("gemini batch classified",
		zap.String("model", c.model),
		zap.Int("items", len(items)),
		zap.Int("verdicts", len(verdicts)),
	)
	return verdicts, nil
}

// BuildPrompt renders a numbered batch for the model.
func BuildPrompt(items []news.Item) string {
	var b strings.Builder
	b.WriteString("Rate each article for ocean relevance on a 0-10 scale.\n")
	b.WriteString(`Return a JSON array of objects {"index": n, "relevant": bool, "score": 0-10, "reason": "short"}, one per article.`)
	b.WriteString("\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. Title: %s\n   Description: %s\n", i+1, oneLine(item.Title), oneLine(item.Description))
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseVerdicts accepts a bare JSON array, an object wrapping one under
// "results" or "verdicts", and either form inside a markdown code fence.
func ParseVerdicts(text string) ([]relevance.Verdict, error) {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return nil, errors.New("gemini returned an empty response")
	}

	var verdicts []relevance.Verdict
	if err := json.Unmarshal([]byte(text), &verdicts); err == nil {
		return verdicts, nil
	}

	var wrapped struct {
		Results  []relevance.Verdict `json:"results"`
		Verdicts []relevance.Verdict `json:"verdicts"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, fmt.Errorf("decode gemini verdicts: %w", err)
	}
	if wrapped.Results != nil {
		return wrapped.Results, nil
	}
	return wrapped.Verdicts, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && rateLimited(apiErr) {
		return fmt.Errorf("gemini: %w: %w", relevance.ErrRateLimited, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && rateLimited(*apiErrPtr) {
		return fmt.Errorf("gemini: %w: %w", relevance.ErrRateLimited, err)
	}
	return fmt.Errorf("gemini generate content: %w", err)
}

func rateLimited(e genai.APIError) bool {
	return e.Code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}
