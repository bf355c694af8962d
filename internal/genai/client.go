package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"founderframe/internal/model"
	"founderframe/prompts"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultTextModel  = "gemini-3-pro-preview"
	defaultImageModel = "gemini-3-pro-image-preview"
)

// Recorder receives generation call metrics. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RecordGeneration(operation, outcome string)
	RecordRetry(operation string)
	ObserveLatency(operation string, d time.Duration)
}

// Config holds the backend connection settings. Zero values fall back
// to production defaults.
type Config struct {
	BaseURL     string
	APIKey      string
	TextModel   string
	ImageModel  string
	MaxAttempts int
}

// Client issues the three generation operations against the Gemini
// REST API, each wrapped in the retry policy from retry.go.
type Client struct {
	baseURL     string
	apiKey      string
	textModel   string
	imageModel  string
	maxAttempts int
	httpClient  *http.Client
	recorder    Recorder
}

// NewClient builds a generation client. recorder may be nil.
func NewClient(cfg Config, recorder Recorder) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TextModel == "" {
		cfg.TextModel = defaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultImageModel
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		textModel:   cfg.TextModel,
		imageModel:  cfg.ImageModel,
		maxAttempts: cfg.MaxAttempts,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		recorder:    recorder,
	}
}

// Gemini wire types

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *inlinePartData `json:"inlineData,omitempty"`
}

type inlinePartData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentBlock struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents         []generateContentBlock `json:"contents"`
	GenerationConfig *generationConfig      `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContentBlock `json:"content"`
	} `json:"candidates"`
}

// Analyze turns a raw startup idea into a structured market analysis.
func (c *Client) Analyze(ctx context.Context, idea string) (*model.MarketAnalysis, error) {
	prompt, err := prompts.AnalysisPrompt(idea)
	if err != nil {
		return nil, err
	}

	var analysis model.MarketAnalysis
	err = c.run(ctx, "analyze", func() error {
		text, err := c.generateText(ctx, c.textModel, prompt)
		if err != nil {
			return err
		}
		var parsed model.MarketAnalysis
		if err := json.Unmarshal([]byte(cleanJSONContent(text)), &parsed); err != nil {
			return &APIError{Kind: KindMalformed, Message: fmt.Sprintf("failed to parse analysis response: %v", err)}
		}
		if err := validateAnalysis(&parsed); err != nil {
			return err
		}
		analysis = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

// GenerateDeck builds the slide structure from an analysis. The backend
// never supplies a layout, so every slide defaults to "default"; missing
// ids are filled in so async image results can always be applied by id.
func (c *Client) GenerateDeck(ctx context.Context, analysis *model.MarketAnalysis) ([]model.Slide, error) {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize analysis: %w", err)
	}
	prompt, err := prompts.DeckPrompt(string(analysisJSON))
	if err != nil {
		return nil, err
	}

	var slides []model.Slide
	err = c.run(ctx, "generate_deck", func() error {
		text, err := c.generateText(ctx, c.textModel, prompt)
		if err != nil {
			return err
		}
		var parsed []model.Slide
		if err := json.Unmarshal([]byte(cleanJSONContent(text)), &parsed); err != nil {
			return &APIError{Kind: KindMalformed, Message: fmt.Sprintf("failed to parse deck response: %v", err)}
		}
		if len(parsed) == 0 {
			return &APIError{Kind: KindMalformed, Message: "deck response contained no slides"}
		}
		for i := range parsed {
			parsed[i].Layout = model.LayoutDefault
			parsed[i].ImageURL = ""
			parsed[i].IsLoadingImage = false
			if parsed[i].ID == "" {
				parsed[i].ID = uuid.New().String()
			}
		}
		slides = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slides, nil
}

// GenerateImage renders a slide illustration. An OK response without an
// inline image part is a failure and goes through the same retry path.
func (c *Client) GenerateImage(ctx context.Context, visualPrompt string) (*model.ImageRef, error) {
	prompt, err := prompts.ImagePrompt(visualPrompt)
	if err != nil {
		return nil, err
	}

	var ref model.ImageRef
	err = c.run(ctx, "generate_image", func() error {
		content, err := c.generateContent(ctx, c.imageModel, generateRequest{
			Contents: []generateContentBlock{{Parts: []generatePart{{Text: prompt}}}},
		})
		if err != nil {
			return err
		}
		for _, part := range content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				ref = model.ImageRef{MimeType: part.InlineData.MimeType, Data: part.InlineData.Data}
				return nil
			}
		}
		for _, part := range content.Parts {
			if part.Text != "" {
				return &APIError{Kind: KindMalformed, Message: "model returned text instead of image"}
			}
		}
		return &APIError{Kind: KindMalformed, Message: "no image data found in response"}
	})
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// run wraps an operation in retry and metrics accounting.
func (c *Client) run(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := c.withRetry(ctx, op, fn)
	if c.recorder != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.recorder.RecordGeneration(op, outcome)
		c.recorder.ObserveLatency(op, time.Since(start))
	}
	return err
}

func (c *Client) recordRetry(op string) {
	if c.recorder != nil {
		c.recorder.RecordRetry(op)
	}
}

func (c *Client) generateText(ctx context.Context, modelID, prompt string) (string, error) {
	content, err := c.generateContent(ctx, modelID, generateRequest{
		Contents:         []generateContentBlock{{Parts: []generatePart{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json", Temperature: 0.7},
	})
	if err != nil {
		return "", err
	}
	for _, part := range content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", &APIError{Kind: KindMalformed, Message: "no text found in response"}
}

func (c *Client) generateContent(ctx context.Context, modelID string, payload generateRequest) (*generateContentBlock, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, modelID, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		return nil, &APIError{Kind: kindForStatus(resp.StatusCode, msg), Status: resp.StatusCode, Message: msg}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &APIError{Kind: KindMalformed, Message: fmt.Sprintf("failed to unmarshal response: %v", err)}
	}
	if len(parsed.Candidates) == 0 {
		return nil, &APIError{Kind: KindMalformed, Message: "no candidates in response"}
	}

	return &parsed.Candidates[0].Content, nil
}

func validateAnalysis(a *model.MarketAnalysis) error {
	missing := func(field string) error {
		return &APIError{Kind: KindMalformed, Message: fmt.Sprintf("analysis response missing required field %q", field)}
	}
	switch {
	case a.Tagline == "":
		return missing("tagline")
	case a.ProblemSummary == "":
		return missing("problemSummary")
	case a.SolutionSummary == "":
		return missing("solutionSummary")
	case len(a.TargetAudience) == 0:
		return missing("targetAudience")
	case a.MarketSize.Currency == "" || a.MarketSize.Unit == "":
		return missing("marketSize")
	case a.ValueProposition == "":
		return missing("valueProposition")
	}
	return nil
}

// cleanJSONContent extracts the payload between triple backticks when a
// model wraps its JSON in a code fence.
func cleanJSONContent(text string) string {
	lines := regexp.MustCompile(`\r?\n`).Split(text, -1)

	firstBacktickLine := -1
	lastBacktickLine := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			if firstBacktickLine == -1 {
				firstBacktickLine = i
			}
			lastBacktickLine = i
		}
	}

	if firstBacktickLine != -1 && lastBacktickLine > firstBacktickLine {
		return strings.Join(lines[firstBacktickLine+1:lastBacktickLine], "\n")
	}
	return text
}
