package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bakkerme/polaris/internal/config"
	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
	"github.com/bakkerme/polaris/internal/observability/otelx"
)

// ErrEmptyResponse is returned when the provider answers without any choice.
var ErrEmptyResponse = errors.New("openai: empty response")

type Client struct {
	client openai.Client
}

// NewClient targets any OpenAI-compatible endpoint (the Hugging Face router by
// default). The SDK's automatic retries are disabled: each completion is tried
// exactly once.
func NewClient(cfg config.OpenAIEnvConfig, opts ...option.RequestOption) *Client {
	options := baseOptions(cfg, cfg.BaseURL)
	options = append(options, opts...)
	return &Client{client: openai.NewClient(options...)}
}

func baseOptions(cfg config.OpenAIEnvConfig, baseURL string) []option.RequestOption {
	options := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPTimeout > 0 {
		options = append(options, option.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
	}
	if cfg.OTel.Enabled {
		options = append(options, option.WithMiddleware(openAIMiddleware(cfg.OTel)))
	}
	return options
}

func (c *Client) ChatCompletion(ctx context.Context, request llm.ChatRequest) (llm.ChatResponse, error) {
	ctx, span := otelx.Tracer("llm/openai").Start(ctx, "llm.openai.chat.completions")
	span.SetAttributes(
		attribute.String("llm.provider", "openai"),
		attribute.String("llm.model", request.Model),
		attribute.Float64("llm.temperature", request.Temperature),
		attribute.Int("llm.max_tokens", request.MaxTokens),
		attribute.Int("llm.input_messages", len(request.Messages)),
		attribute.Bool("llm.json_mode", request.JSONMode),
		attribute.String("request.id", core.RequestIDFromContext(ctx)),
	)
	defer span.End()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: toParams(request.Messages),
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	response, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llm.ChatResponse{}, err
	}
	if len(response.Choices) == 0 {
		span.RecordError(ErrEmptyResponse)
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return llm.ChatResponse{}, ErrEmptyResponse
	}

	span.SetStatus(codes.Ok, "")
	return llm.ChatResponse{Content: response.Choices[0].Message.Content}, nil
}

func toParams(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(flattenText(msg)))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(flattenText(msg)))
		default:
			if len(msg.Parts) == 0 {
				out = append(out, openai.UserMessage(msg.Content))
				continue
			}
			out = append(out, openai.UserMessage(toContentParts(msg.Parts)))
		}
	}
	return out
}

func toContentParts(parts []llm.MessagePart) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case llm.MessagePartImageURL:
			out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: part.ImageURL,
			}))
		default:
			out = append(out, openai.TextContentPart(part.Text))
		}
	}
	return out
}

// flattenText joins the text parts of msg; system and assistant turns are
// always sent as plain strings.
func flattenText(msg llm.Message) string {
	if len(msg.Parts) == 0 {
		return msg.Content
	}
	var b strings.Builder
	for _, part := range msg.Parts {
		if part.Type == llm.MessagePartText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
