package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

type ArkOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ArkClient runs prompts through an Eino chat model backed by Volcengine Ark.
type ArkClient struct {
	chatModel model.BaseChatModel
	model     string
	timeout   time.Duration
	apiKey    string
}

func NewArkClient(ctx context.Context, opts ArkOptions) (*ArkClient, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	modelName := strings.TrimSpace(opts.Model)
	if modelName == "" {
		return nil, errors.New("ark model is required")
	}

	client := &ArkClient{model: modelName, timeout: opts.Timeout, apiKey: apiKey}
	if apiKey == "" {
		// Without a key the client still answers, with the missing-key apology.
		return client, nil
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: strings.TrimSpace(opts.BaseURL),
		APIKey:  apiKey,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}
	client.chatModel = chatModel
	return client, nil
}

// newArkClientWithModel is used by tests to inject a fake chat model.
func newArkClientWithModel(chatModel model.BaseChatModel, modelName string, timeout time.Duration) *ArkClient {
	return &ArkClient{chatModel: chatModel, model: modelName, timeout: timeout, apiKey: "injected"}
}

func (c *ArkClient) Name() string { return "Ark" }

func (c *ArkClient) Generate(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" || c.chatModel == nil {
		return Response{}, ErrMissingAPIKey
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(req)
	message, err := c.chatModel.Generate(
		ctx,
		[]*schema.Message{
			schema.SystemMessage(prompt.System),
			schema.UserMessage(prompt.User),
		},
		model.WithMaxTokens(prompt.MaxOutputTokens),
		model.WithTemperature(prompt.Temperature),
	)
	if err != nil {
		log.Warn().Err(err).Str("model", c.model).Msg("[ark] generate failed")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Response{}, transportError(err)
		}
		return Response{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if message == nil || strings.TrimSpace(message.Content) == "" {
		return Response{}, fmt.Errorf("%w: empty ark message", ErrUnexpectedResponse)
	}
	return Response{Text: message.Content, Model: c.model}, nil
}
