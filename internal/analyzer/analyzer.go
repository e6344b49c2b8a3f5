package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "qwen/qwen3-max"
	defaultReferer = "https://github.com/Elarafi-trade/pair-agentverse"
	defaultTitle   = "ELARA Trade Analyzer"
)

// Analyzer produces trade analyses for a pair by prompting a hosted
// reasoning model through the OpenRouter chat-completions API.
type Analyzer struct {
	APIKey  string
	Model   string
	BaseURL string
	Referer string
	Title   string
	Client  *http.Client
}

// New creates an analyzer with optional proxy support. Model and baseURL
// fall back to the defaults when empty.
func New(apiKey, modelName, baseURL, proxyURL string) (*Analyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key not configured")
	}
	if modelName == "" {
		modelName = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Analyzer{
		APIKey:  apiKey,
		Model:   modelName,
		BaseURL: baseURL,
		Referer: defaultReferer,
		Title:   defaultTitle,
		Client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
	}, nil
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
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// AnalyzePair asks the model to analyze the pair described by metrics and
// returns the structured result. Transport and API failures are returned
// as errors; an unparseable model reply degrades to a NEUTRAL fallback
// carrying the raw text as reasoning.
func (a *Analyzer) AnalyzePair(ctx context.Context, symbolA, symbolB string, m *model.Metrics) (*model.Analysis, error) {
	prompt := buildPrompt(symbolA, symbolB, m)
	raw, err := a.complete(ctx, prompt, 0.3, 1024)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(raw), nil
}

func (a *Analyzer) complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	body := chatRequest{
		Model:       a.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	endpoint := a.BaseURL + "/chat/completions"

	var content string
	err = retryWithBackoff(ctx, 3, func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
		req.Header.Set("HTTP-Referer", a.Referer)
		req.Header.Set("X-Title", a.Title)

		resp, err := a.Client.Do(req)
		if err != nil {
			return fmt.Errorf("send chat request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read chat response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return &rateLimitError{}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return &authError{message: string(respBody)}
		case resp.StatusCode >= 500:
			return &serverError{statusCode: resp.StatusCode, body: string(respBody)}
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("OpenRouter API error: status %d, body: %s", resp.StatusCode, string(respBody))
		}

		var result chatResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("decode chat response: %w", err)
		}
		if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
			return fmt.Errorf("no content in OpenRouter response")
		}
		content = result.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}
