package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

type Config struct {
	APIKey     string
	BaseURL    string
	FlashModel string
	ProModel   string
	TTSModel   string
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client talks to the Gemini API. A single client serves the question,
// transcription, speech and feedback oracles.
type Client struct {
	flashModel string
	proModel   string
	ttsModel   string
	generate   generateFunc
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	slog.Info("gemini client ready", "flash_model", cfg.FlashModel, "pro_model", cfg.ProModel, "tts_model", cfg.TTSModel)
	return newClient(cfg, client.Models.GenerateContent), nil
}

func newClient(cfg Config, generate generateFunc) *Client {
	return &Client{
		flashModel: cfg.FlashModel,
		proModel:   cfg.ProModel,
		ttsModel:   cfg.TTSModel,
		generate:   generate,
	}
}

func (c *Client) generateText(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := c.generate(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return extractText(resp), nil
}

// extractText returns the last non-thought text part of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	parts := firstCandidateParts(resp)
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == nil || parts[i].Thought {
			continue
		}
		if parts[i].Text != "" {
			return parts[i].Text
		}
	}
	return ""
}

func extractAudio(resp *genai.GenerateContentResponse) []byte {
	for _, part := range firstCandidateParts(resp) {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data
		}
	}
	return nil
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

var (
	codeFencePattern  = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

// extractJSON decodes the JSON object embedded in text, tolerating code
// fences and prose around it.
func extractJSON(text string, v any) error {
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if m := jsonObjectPattern.FindString(text); m != "" {
		text = m
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decode oracle json: %w", err)
	}
	return nil
}

// isQuotaError reports whether err means the API refused work because of
// rate limits or quota.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && quotaStatus(apiErr.Code, apiErr.Status) {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && quotaStatus(apiErrPtr.Code, apiErrPtr.Status) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")
}

func quotaStatus(code int, status string) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusServiceUnavailable ||
		status == "RESOURCE_EXHAUSTED"
}
