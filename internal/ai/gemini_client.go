package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient adapts the official genai client to the Runtime interface.
// It is only used when the provider is explicitly set to "gemini".
type GeminiClient struct {
	cli *genai.Client
}

// NewGeminiClient creates a Gemini API backed runtime. An empty apiKey falls
// back to the GOOGLE_API_KEY/GEMINI_API_KEY environment variables read by genai.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiClient{cli: cli}, nil
}

// Generate maps system messages to the system instruction and the rest to user content.
func (g *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(contents) == 0 {
		return nil, errEmptyMessages
	}
	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, geminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini: empty response")
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: sb.String()}}},
	}, nil
}

// geminiError maps SDK failures onto the shared runtime error types.
func geminiError(err error) error {
	var ge genai.APIError
	if !errors.As(err, &ge) {
		return &APIError{Message: err.Error()}
	}
	apiErr := &APIError{StatusCode: ge.Code, Code: ge.Status, Message: ge.Message}
	switch sc := ge.Code; {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden || ge.Status == "PERMISSION_DENIED" || ge.Status == "UNAUTHENTICATED":
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests || ge.Status == "RESOURCE_EXHAUSTED":
		return &RateLimitError{APIError: apiErr}
	case sc == http.StatusNotFound || ge.Status == "NOT_FOUND":
		return &ModelNotFoundError{APIError: apiErr}
	case sc >= 500:
		return &ServerError{APIError: apiErr}
	case sc >= 400:
		return &BadRequestError{APIError: apiErr}
	}
	return apiErr
}
