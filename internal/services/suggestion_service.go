package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/sashabaranov/go-openai"
)

var (
	ErrSuggestionTitleRequired = errors.New("main task title is required")
	ErrAIServiceNotConfigured  = errors.New("AI service is not configured")
	ErrAIEmptyResponse         = errors.New("AI response was empty or malformed")
	ErrAIProviderFailed        = errors.New("AI provider request failed")
	ErrUpstreamThrottled       = errors.New("AI provider is rate limiting requests")
)

// ChatCompleter is the subset of the OpenAI client the suggestion service needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RetryPolicy bounds how often a throttled provider call is repeated.
// Retry n (1-based) waits BaseDelay * 2^(n-1).
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy waits 2s, 4s, 8s, 16s and 32s before giving up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  2 * time.Second,
	}
}

// Delay returns the wait before the given retry.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return p.BaseDelay << (retry - 1)
}

// SuggestionConfig configures the provider connection.
type SuggestionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Retry   RetryPolicy
}

// SuggestionService asks an OpenAI-compatible provider for sub-task ideas.
type SuggestionService struct {
	client ChatCompleter
	model  string
	retry  RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSuggestionService builds a service from configuration. Without an API
// key the service is created unconfigured and every Suggest call fails with
// ErrAIServiceNotConfigured.
func NewSuggestionService(cfg SuggestionConfig) *SuggestionService {
	var client ChatCompleter
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(clientConfig)
	}
	return NewSuggestionServiceWithClient(client, cfg.Model, cfg.Retry)
}

// NewSuggestionServiceWithClient builds a service around an existing client.
func NewSuggestionServiceWithClient(client ChatCompleter, model string, retry RetryPolicy) *SuggestionService {
	if model == "" {
		model = openai.GPT4oMini
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	return &SuggestionService{
		client: client,
		model:  model,
		retry:  retry,
		sleep:  sleepContext,
	}
}

// Configured reports whether a provider client is available.
func (s *SuggestionService) Configured() bool {
	return s != nil && s.client != nil
}

// Suggest returns short sub-tasks for mainTaskTitle. The result may be empty.
func (s *SuggestionService) Suggest(ctx context.Context, mainTaskTitle string) ([]string, error) {
	title := strings.TrimSpace(mainTaskTitle)
	if title == "" {
		return nil, ErrSuggestionTitleRequired
	}
	if !s.Configured() {
		return nil, ErrAIServiceNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildSuggestionPrompt(title),
			},
		},
		Temperature: 0.4,
	}

	var resp openai.ChatCompletionResponse
	err := s.withThrottleRetry(ctx, func() error {
		var callErr error
		resp, callErr = s.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, ErrAIEmptyResponse
	}

	return ParseSuggestions(resp.Choices[0].Message.Content), nil
}

// withThrottleRetry runs call once and then up to MaxRetries more times
// while the provider keeps reporting throttling.
func (s *SuggestionService) withThrottleRetry(ctx context.Context, call func() error) error {
	for retry := 0; ; retry++ {
		err := call()
		if err == nil {
			return nil
		}
		if !isThrottled(err) {
			return fmt.Errorf("%w: %v", ErrAIProviderFailed, err)
		}
		if retry >= s.retry.MaxRetries {
			slog.Warn("AI provider still throttling, giving up", "attempts", retry+1)
			return ErrUpstreamThrottled
		}

		delay := s.retry.Delay(retry + 1)
		slog.Info("AI provider throttled, retrying", "retry", retry+1, "delay", delay)
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func isThrottled(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func buildSuggestionPrompt(title string) string {
	return fmt.Sprintf(`Given the main task %q, suggest 3-8 concise sub-tasks or action items.
Respond only with a JSON array of strings, for example ["Subtask 1", "Subtask 2"].
Do not include any other text or formatting outside the JSON array.`, title)
}

// ParseSuggestions decodes a provider reply. Markdown code fences are
// stripped before decoding a JSON array of strings; if that still fails,
// every non-empty line becomes one suggestion.
func ParseSuggestions(raw string) []string {
	cleaned := stripCodeFence(raw)

	var decoded []string
	if err := json.Unmarshal([]byte(cleaned), &decoded); err == nil {
		return compact(decoded)
	}

	return compact(strings.Split(cleaned, "\n"))
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")

	// Drop a language tag such as "json" from the opening fence line.
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if i < 0 {
		i = len(s)
	}
	if i > 0 {
		rest := s[i:]
		if strings.EqualFold(s[:i], "json") || strings.HasPrefix(rest, "\n") || strings.HasPrefix(rest, "\r") {
			s = rest
		}
	}
	return strings.TrimSpace(s)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
