package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/cardmachinequote/quote-engine/internal/adapters/llm"
	"github.com/cardmachinequote/quote-engine/internal/adapters/ocr"
	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/ports"
)

const DefaultModel = openai.GPT4o

// minTextChars is the shortest extracted text worth sending; anything less is
// usually a scanned PDF without a text layer.
const minTextChars = 50

var ErrNoText = errors.New("statement text is empty or too short")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Extractor asks an OpenAI chat model for the statement fields. Images go to
// the vision prompt, everything else is converted to text first.
type Extractor struct {
	client *openai.Client
	model  string
	text   ports.TextExtractor
}

func NewExtractor(cfg Config, text ports.TextExtractor) *Extractor {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Extractor{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		text:   text,
	}
}

func (e *Extractor) Extract(ctx context.Context, doc domain.Document) (domain.ExtractionResult, error) {
	var user openai.ChatCompletionMessage
	if ocr.IsImage(doc) {
		user = imageMessage(doc)
	} else {
		text, err := e.text.ExtractText(ctx, doc)
		if err != nil {
			return domain.ExtractionResult{}, fmt.Errorf("read statement: %w", err)
		}
		if len(strings.TrimSpace(text)) < minTextChars {
			return domain.ExtractionResult{}, ErrNoText
		}
		user = openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: llm.TextPrompt(text)}
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		// a literal zero is dropped from the request body
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.SystemPrompt},
			user,
		},
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("model", e.model).Msg("openai chat completion failed")
		return domain.ExtractionResult{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.ExtractionResult{}, llm.ErrEmptyResponse
	}

	log.Ctx(ctx).Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai extraction done")

	return llm.Decode(resp.Choices[0].Message.Content)
}

func imageMessage(doc domain.Document) openai.ChatCompletionMessage {
	dataURL := fmt.Sprintf("data:%s;base64,%s", ocr.ContentType(doc), base64.StdEncoding.EncodeToString(doc.Data))
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: llm.ImagePrompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailHigh,
				},
			},
		},
	}
}
