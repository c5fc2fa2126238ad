package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ytfilter/sieve/util"

	"github.com/carlmjohnson/versioninfo"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIClassifier classifies text with an OpenAI-compatible chat completion
// endpoint, in JSON output mode.
type OpenAIClassifier struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Model   string
	Logger  *slog.Logger

	MaxResponseBytes int64
}

var _ Classifier = (*OpenAIClassifier)(nil)

func NewOpenAIClassifier(baseURL, apiKey, model string, timeout time.Duration, logger *slog.Logger) *OpenAIClassifier {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "classifier")
	return &OpenAIClassifier{
		Client:           util.RobustHTTPClient(logger, 1, timeout),
		BaseURL:          strings.TrimSuffix(baseURL, "/"),
		APIKey:           apiKey,
		Model:            model,
		Logger:           logger,
		MaxResponseBytes: 1024 * 1024,
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIClassifier) Classify(ctx context.Context, req *Request) (*Verdict, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: formatPrompt(req)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal classifier request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create classifier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "sieve/"+versioninfo.Short())
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	start := time.Now()
	defer func() {
		classifierAPIDuration.Observe(time.Since(start).Seconds())
	}()

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		classifierAPICount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	classifierAPICount.WithLabelValues(fmt.Sprint(resp.StatusCode)).Inc()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, c.MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier response body: %w", err)
	}
	if int64(len(respBytes)) > c.MaxResponseBytes {
		return nil, fmt.Errorf("classifier response exceeded limit (%d bytes)", c.MaxResponseBytes)
	}

	var payload chatResponse
	if err := json.Unmarshal(respBytes, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("classifier request failed statusCode=%d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("classifier error statusCode=%d: %s (type=%s)", resp.StatusCode, payload.Error.Message, payload.Error.Type)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier request failed statusCode=%d", resp.StatusCode)
	}
	if len(payload.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	verdict, err := ParseVerdict(payload.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("classifier verdict", "items", len(verdict.Items), "severity", verdict.Severity, "reason", verdict.Reason)
	return verdict, nil
}
