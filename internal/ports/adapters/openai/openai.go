package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KiwiSingh/LyricVision/internal/domain/keywords"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	DefaultModel   = "gpt-4.1-mini"
	requestTimeout = 90 * time.Second
	systemPrompt   = "You pick stock video search terms for music videos. Reply with a JSON object only."
)

type Adapter struct {
	client openai.Client
	model  string
}

// New builds a keyword extractor. baseURL may point at any OpenAI compatible
// endpoint; empty means the OpenAI default.
func New(apiKey, model, baseURL string, extra ...option.RequestOption) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &Adapter{client: openai.NewClient(opts...), model: model}
}

func (a *Adapter) Keywords(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(text)),
		},
		Model:       a.model,
		Temperature: openai.Float(0.4),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices")
	}
	return keywords.ParseList(resp.Choices[0].Message.Content)
}

func userPrompt(line string) string {
	return "Extract 5-8 short cinematic stock video search keywords from this lyric:\n\n" +
		line + "\n\n" +
		`Return {"keywords": ["..."]}.`
}
