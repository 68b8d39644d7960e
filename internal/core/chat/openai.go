package chat

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/viewdesk/viewdesk/config"
)

// CompletionRequest is one chat-completion call. The API key travels with the
// request because it belongs to the active profile.
type CompletionRequest struct {
	APIKey      string
	Model       string
	Temperature float32
	Messages    []Message
}

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// OpenAICompleter calls an OpenAI-compatible chat-completions endpoint.
type OpenAICompleter struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenAICompleter(cfg config.OpenAIConfig) *OpenAICompleter {
	return &OpenAICompleter{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	clientCfg := openai.DefaultConfig(req.APIKey)
	if c.baseURL != "" {
		clientCfg.BaseURL = c.baseURL
	}
	clientCfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", completionError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// completionError surfaces the provider's own message when it sent one.
func completionError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		return reqErr.Err
	}
	return err
}
