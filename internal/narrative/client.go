package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/radarcol/radarcol/internal/errors"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// ChatClient sends a prompt to a text-generation service and returns the raw
// response text
type ChatClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GroqClient calls the Groq chat-completions API. A client-side limiter
// keeps the call rate under the free-tier budget of 30 requests per minute.
type GroqClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGroqClient creates a Groq client for the given model
func NewGroqClient(apiKey, model string) *GroqClient {
	return &GroqClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGroqBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// WithBaseURL overrides the API endpoint, used in tests
func (c *GroqClient) WithBaseURL(url string) *GroqClient {
	c.baseURL = url
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a single user prompt and returns the model's reply text.
// A 429 response surfaces as a rate-limit error so the caller can back off;
// any other failure is a plain external API error.
func (c *GroqClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewExternalAPIError("groq", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewExternalAPIError("groq", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", apperrors.NewRateLimitError("groq", fmt.Errorf("status 429: %s", string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewExternalAPIError("groq", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.NewExternalAPIError("groq", fmt.Errorf("failed to decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", apperrors.NewExternalAPIError("groq", fmt.Errorf("response has no choices"))
	}

	return parsed.Choices[0].Message.Content, nil
}
