package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cardmachinequote/quote-engine/internal/adapters/llm"
	"github.com/cardmachinequote/quote-engine/internal/adapters/ocr"
	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/ports"
)

const DefaultModel = "llama3.2-vision"

// OllamaAdapter extracts statement fields with a self-hosted model through
// the Ollama generate API.
type OllamaAdapter struct {
	baseURL    string
	model      string
	text       ports.TextExtractor
	httpClient *http.Client
}

func NewOllamaAdapter(baseURL, model string, text ports.TextExtractor) *OllamaAdapter {
	if model == "" {
		model = DefaultModel
	}
	return &OllamaAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		text:       text,
		httpClient: &http.Client{},
	}
}

func (o *OllamaAdapter) Extract(ctx context.Context, doc domain.Document) (domain.ExtractionResult, error) {
	payload, err := o.buildAIRequest(ctx, doc)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	// the caller's deadline bounds the whole call
	raw, err := o.sendRequest(ctx, payload)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	defer raw.Body.Close()

	return parseNonStreamOllamaResponse(ctx, raw)
}

func (o *OllamaAdapter) buildAIRequest(ctx context.Context, doc domain.Document) (AIRequest, error) {
	req := AIRequest{
		Model:  o.model,
		System: llm.SystemPrompt,
		Stream: false,
		Format: "json",
		Options: &AIOptions{
			NumPredict:  2048,
			Temperature: 0,
		},
	}

	if ocr.IsImage(doc) {
		req.Prompt = llm.ImagePrompt
		req.Images = []string{base64.StdEncoding.EncodeToString(doc.Data)}
		return req, nil
	}

	text, err := o.text.ExtractText(ctx, doc)
	if err != nil {
		return AIRequest{}, fmt.Errorf("read statement: %w", err)
	}
	text = PreprocessText(text)
	if text == "" {
		return AIRequest{}, errors.New("statement text is empty")
	}
	req.Prompt = llm.TextPrompt(text)
	return req, nil
}

func (o *OllamaAdapter) sendRequest(ctx context.Context, payload AIRequest) (*http.Response, error) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("error marshalling JSON")
		return nil, fmt.Errorf("internal error")
	}

	url := fmt.Sprintf("%s%s", o.baseURL, "/api/generate")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := o.httpClient.Do(req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("error connecting to Ollama API")
		return nil, fmt.Errorf("ollama API connection error: %w", err)
	}

	if raw.StatusCode != http.StatusOK {
		defer raw.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(raw.Body, 4096))
		return nil, fmt.Errorf("ollama API error: %d - %s", raw.StatusCode, string(body))
	}

	return raw, nil
}

func parseNonStreamOllamaResponse(ctx context.Context, resp *http.Response) (domain.ExtractionResult, error) {
	var ollamaResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to decode ollama response json")
		return domain.ExtractionResult{}, err
	}

	log.Ctx(ctx).Debug().
		Str("model", ollamaResp.Model).
		Str("full_response", ollamaResp.Response).
		Msg("ollama full response")

	r, err := llm.Decode(ollamaResp.Response)
	if err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Str("raw_text", ollamaResp.Response).
			Msg("failed to read statement fields from ollama")
		return domain.ExtractionResult{}, err
	}
	return r, nil
}

var (
	tableRuleRe = regexp.MustCompile(`[|]+|[-_=]{3,}|[│─┼┌┐└┘╔╗╚╝═]+`)
	blankRunRe  = regexp.MustCompile(`\n{2,}`)
	spaceRunRe  = regexp.MustCompile(`[ \t]{2,}`)
)

// PreprocessText strips table drawing and blank runs so small models see
// fewer tokens. Line breaks are kept because statement rows depend on them.
func PreprocessText(raw string) string {
	s := tableRuleRe.ReplaceAllString(raw, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
