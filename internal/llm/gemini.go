package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"cipherbot/apps/backend/internal/logging"
)

type GeminiOptions struct {
	APIKey        string
	BaseURL       string
	Model         string
	SearchEnabled bool
	Timeout       time.Duration
}

// GeminiClient calls the generateContent endpoint of the Gemini API.
type GeminiClient struct {
	apiKey        string
	baseURL       string
	model         string
	searchEnabled bool
	httpClient    *http.Client
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	Tools            []geminiTool           `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
}

func NewGeminiClient(opts GeminiOptions) *GeminiClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		model:         model,
		searchEnabled: opts.SearchEnabled,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

func (c *GeminiClient) Name() string { return "Gemini" }

func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, ErrMissingAPIKey
	}
	log.Debug().
		Str("api_key", logging.MaskSecret(c.apiKey)).
		Str("model", c.model).
		Bool("reasoning", req.Reasoning).
		Msg("[gemini] generating")

	prompt := BuildPrompt(req)
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt.Inline(req.Reasoning)}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     prompt.Temperature,
			MaxOutputTokens: prompt.MaxOutputTokens,
		},
	}
	if c.searchEnabled {
		payload.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}

	statusCode, body, err := c.post(ctx, payload)
	if err != nil {
		return Response{}, err
	}
	if statusCode != http.StatusOK {
		log.Warn().Int("status", statusCode).Str("body", truncateForLog(string(body), 1200)).Msg("[gemini] non-200 response")
		return Response{}, &StatusError{Provider: c.Name(), StatusCode: statusCode, Body: string(body)}
	}

	text, modelVersion, err := extractCandidateText(body)
	if err != nil {
		log.Warn().Err(err).Str("body", truncateForLog(string(body), 1200)).Msg("[gemini] unexpected response format")
		return Response{}, err
	}
	if modelVersion == "" {
		modelVersion = c.model
	}
	return Response{Text: text, Model: modelVersion}, nil
}

func (c *GeminiClient) post(ctx context.Context, payload geminiRequest) (int, []byte, error) {
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal gemini payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyRaw))
	if err != nil {
		return 0, nil, transportError(redactKey(err, c.apiKey))
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, transportError(redactKey(err, c.apiKey))
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, transportError(err)
	}
	return response.StatusCode, responseBody, nil
}

// extractCandidateText returns the first text part of the first candidate.
func extractCandidateText(body []byte) (string, string, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if len(parsed.Candidates) == 0 {
		return "", "", fmt.Errorf("%w: no candidates", ErrUnexpectedResponse)
	}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, parsed.ModelVersion, nil
		}
	}
	return "", "", fmt.Errorf("%w: first candidate has no text", ErrUnexpectedResponse)
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), key, logging.MaskSecret(key)))
}
