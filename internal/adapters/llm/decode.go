package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

// Confidence is reported for every successful AI extraction.
const Confidence = 0.8

var ErrEmptyResponse = errors.New("AI response was empty")

// Amounts may come back as numbers or as strings such as "£1,234.50".
const answerSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "$defs": {
    "amount": {"type": ["number", "string", "null"], "minimum": 0}
  },
  "required": ["monthTurnover"],
  "properties": {
    "_thought_process": {"type": ["string", "null"]},
    "providerGuess": {"type": ["string", "null"]},
    "monthTurnover": {"$ref": "#/$defs/amount"},
    "currentFeesMonthly": {"$ref": "#/$defs/amount"},
    "currentFixedMonthly": {"$ref": "#/$defs/amount"},
    "mix": {
      "type": ["object", "null"],
      "properties": {
        "debitTurnover": {"$ref": "#/$defs/amount"},
        "creditTurnover": {"$ref": "#/$defs/amount"},
        "businessTurnover": {"$ref": "#/$defs/amount"},
        "internationalTurnover": {"$ref": "#/$defs/amount"},
        "amexTurnover": {"$ref": "#/$defs/amount"},
        "txCount": {"$ref": "#/$defs/amount"}
      }
    }
  }
}`

var (
	schema = mustCompile(answerSchema)

	nonNumeric = regexp.MustCompile(`[^0-9.\-]`)
)

func mustCompile(src string) *jsonschema.Schema {
	const url = "https://quote-engine.local/schemas/ai-extraction.schema.json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("ai schema load failed: %v", err))
	}
	return c.MustCompile(url)
}

// Decode validates the model's JSON answer and maps it onto an extraction result.
func Decode(content string) (domain.ExtractionResult, error) {
	content = strings.TrimSpace(stripFences(content))
	if content == "" {
		return domain.ExtractionResult{}, ErrEmptyResponse
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("AI did not return valid JSON: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("AI answer failed schema validation: %w", err)
	}

	obj := raw.(map[string]any)
	if thought, ok := obj["_thought_process"].(string); ok && thought != "" {
		log.Debug().Str("reasoning", thought).Msg("AI reasoning")
	}

	mix, _ := obj["mix"].(map[string]any)
	tx := amount(mix["txCount"]).IntPart()
	if tx < 1 {
		tx = 1
	}

	r := domain.ExtractionResult{
		ProviderGuess:       provider(obj["providerGuess"]),
		Confidence:          Confidence,
		MonthTurnover:       amount(obj["monthTurnover"]),
		CurrentFeesMonthly:  optionalAmount(obj["currentFeesMonthly"]),
		CurrentFixedMonthly: amount(obj["currentFixedMonthly"]),
		Mix: domain.Mix{
			Debit:         amount(mix["debitTurnover"]),
			Credit:        amount(mix["creditTurnover"]),
			Business:      amount(mix["businessTurnover"]),
			International: amount(mix["internationalTurnover"]),
			Amex:          amount(mix["amexTurnover"]),
			TxCount:       tx,
		},
		Source: domain.SourceAI,
	}
	return r, nil
}

// amount reads a number leniently; anything unreadable or negative is zero.
func amount(v any) decimal.Decimal {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case float64:
		return decimal.Max(decimal.Zero, decimal.NewFromFloat(x))
	case string:
		s = nonNumeric.ReplaceAllString(x, "")
	default:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return decimal.Max(decimal.Zero, d)
}

func optionalAmount(v any) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := amount(v)
	return &d
}

// provider never turns a missing answer into a name.
func provider(v any) *string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, domain.UnknownProvider) {
		return nil
	}
	return &s
}

// stripFences removes a markdown code fence some models wrap around JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
