// Package llm wraps the inference daemon's OpenAI-compatible chat endpoint
// for JSON-mode queries.
package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/consentio/gdprscan/log"
)

const defaultSystemPrompt = "You are a helpful assistant that provides only a clean JSON output about GDPR and privacy."

// ErrMalformedJSON is returned when the model's output cannot be parsed
// into the caller's result type, even after salvaging.
var ErrMalformedJSON = errors.New("model returned malformed JSON")

// Querier is the interface analyzers program against.
type Querier interface {
	// QueryJSON sends the prompts to the model and decodes the JSON object
	// in its reply into out.
	QueryJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error
}

// Client talks to a local inference daemon over its OpenAI-compatible API.
type Client struct {
	log zerolog.Logger

	client *openai.Client
	model  string
}

// NewClient creates a client for the daemon at baseURL (e.g.
// http://127.0.0.1:11434/v1). The daemon ignores the API key, but the
// transport requires one to be set.
func NewClient(baseURL, model string) *Client {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("local"),
	)

	return &Client{
		log:    log.NewLogger("llm"),
		client: client,
		model:  model,
	}
}

func (c *Client) QueryJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	start := time.Now()

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.F(c.model),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		}),
		// Zero temperature to keep extraction deterministic.
		Temperature: openai.F(0.0),
		ResponseFormat: openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONObjectParam{
				Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject),
			},
		),
	})

	if err != nil {
		return errors.Wrap(err, "chat completion failed")
	}
	if len(completion.Choices) == 0 {
		return errors.New("model returned no choices")
	}

	raw := completion.Choices[0].Message.Content
	c.log.Debug().Dur("duration", time.Since(start)).Int("response_bytes", len(raw)).Msg("Model replied")

	jsonStr, err := ExtractJSON(raw)
	if err != nil {
		c.log.Error().Err(err).Str("raw", raw).Msg("No JSON object in model reply")
		return ErrMalformedJSON
	}

	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		c.log.Error().Err(err).Str("raw", raw).Msg("Failed to decode model reply")
		return ErrMalformedJSON
	}

	return nil
}
