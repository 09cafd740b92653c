// Package vision adapts a general vision/text model (OpenAI-compatible API)
// to the domain contracts: image quality gating, species identification,
// health assessment and care plan generation. Every call goes through the
// shared throttled client protecting the provider's free-tier quota.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"leafwise-server/internal/domain/identify"
	"leafwise-server/internal/infrastructure/metrics"
	"leafwise-server/internal/infrastructure/throttle"
	"leafwise-server/internal/utils/platformerrors"
)

// Client wraps the OpenAI-compatible chat API for structured multimodal
// calls.
type Client struct {
	api      *openai.Client
	model    string
	throttle *throttle.Client
	log      zerolog.Logger
}

// New creates a vision client. baseURL may be empty for the default API
// endpoint.
func New(apiKey, baseURL, model string, throttleClient *throttle.Client, log zerolog.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		api:      openai.NewClientWithConfig(cfg),
		model:    model,
		throttle: throttleClient,
		log:      log.With().Str("component", "vision-client").Logger(),
	}
}

// chatJSON issues one throttled JSON-mode chat completion with the given
// prompt and images, unmarshalling the reply into out.
func (c *Client) chatJSON(ctx context.Context, task, system, prompt string, images []identify.Image, out any) error {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
	}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(img),
				Detail: openai.ImageURLDetailLow,
			},
		})
	}

	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	}

	var response openai.ChatCompletionResponse
	err := c.throttle.Do(ctx, func(ctx context.Context) error {
		var callErr error
		response, callErr = c.api.CreateChatCompletion(ctx, request)
		return callErr
	})
	metrics.RecordProviderCall("vision", err)
	if err != nil {
		if errors.Is(err, throttle.ErrQuotaExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", task, err)
		}
		c.log.Error().Err(err).Str("task", task).Msg("vision call failed")
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal, fmt.Sprintf("vision call for %s failed", task), err)
	}

	if len(response.Choices) == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeMalformed, fmt.Sprintf("vision reply for %s had no choices", task), nil)
	}

	content := stripCodeFence(response.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		// Full reply detail stays server-side only.
		c.log.Error().Err(err).Str("task", task).Str("content", content).Msg("unparseable vision reply")
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeMalformed, fmt.Sprintf("vision reply for %s was not valid JSON", task), err)
	}

	c.log.Debug().
		Str("task", task).
		Int("prompt_tokens", response.Usage.PromptTokens).
		Int("completion_tokens", response.Usage.CompletionTokens).
		Msg("vision call succeeded")
	return nil
}

func dataURL(img identify.Image) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data))
}

// stripCodeFence removes a wrapping markdown code fence some models emit
// even in JSON mode.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
