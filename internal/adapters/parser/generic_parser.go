package parser

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/ports"
	"github.com/cardmachinequote/quote-engine/internal/reconcile"
)

// GenericParser reads statement fields with text heuristics. It is cheap and
// provider-agnostic, and its confidence decides whether the AI pass runs.
type GenericParser struct {
	text ports.TextExtractor
}

func NewGenericParser(text ports.TextExtractor) *GenericParser {
	return &GenericParser{text: text}
}

var (
	numberRe = regexp.MustCompile(`-?\d+(?:\.\d{1,2})?`)

	// "Total 1,234 £12,345.67" style summary rows (transaction count then value)
	summaryRe = regexp.MustCompile(`(?i)(?:Subtotal|Total)[\s",]+(\d{2,8})[\s",]+(£?[\d,]+\.\d{2})`)

	txCountRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:transactions|tx\s*count)[^\d]{0,10}(\d{2,8})`),
		regexp.MustCompile(`(?i)Number\s+of\s+transactions[\s",]+(\d{2,8})`),
	}

	turnoverRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total\s+value\s+of\s+transactions[^£\d]{0,30}(£?[\d,]+(?:\.\d{1,2})?)`),
		regexp.MustCompile(`(?i)(?:total\s+turnover|gross\s+sales|total\s+card\s+sales)[^£\d]{0,30}(£?[\d,]+(?:\.\d{1,2})?)`),
		regexp.MustCompile(`(?i)(?:processed\s+volume|total\s+volume)[^£\d]{0,30}(£?[\d,]+(?:\.\d{1,2})?)`),
	}

	currentFeesRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Net\s+amount[^£\d]{0,20}(£?[\d,]+(?:\.\d{1,2})?)`),
		regexp.MustCompile(`(?i)(?:total\s+fees|fees\s+total|grand\s+total)[^£\d]{0,20}(£?[\d,]+(?:\.\d{1,2})?)`),
	}

	amexRe = regexp.MustCompile(`(?i)(?:amex|american express)[\s\S]*?(£[\d,]+\.\d{2})`)

	fixedFeeRes = compileFixedFeeLabels(
		"terminal",
		"pci",
		"security",
		"mmf",
		"minimum monthly",
		"monthly service",
		"gateway",
		"statement fee",
		"chargeback",
		"services for dojo go",
		"Dojo Go",
		"Hardware care",
		"Platform",
		"Card machine & account services",
	)

	// checked in order; longer names first where one contains another
	knownProviders = []string{
		"Lloyds Cardnet",
		"Global Payments",
		"Barclaycard",
		"Paymentsense",
		"Worldpay",
		"Elavon",
		"Zettle",
		"SumUp",
		"Square",
		"Stripe",
		"Clover",
		"Dojo",
		"Teya",
	}
)

func compileFixedFeeLabels(labels ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(labels))
	for _, l := range labels {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(l)+`[^£\n]{0,40}(£?[\d,]+(?:\.\d{1,2})?)`))
	}
	return out
}

// Extract never fails: unreadable documents come back as a zero result.
func (p *GenericParser) Extract(ctx context.Context, doc domain.Document) (domain.ExtractionResult, error) {
	text, err := p.text.ExtractText(ctx, doc)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("document", doc.Name).Msg("statement text extraction failed")
		text = ""
	}
	return Parse(text), nil
}

// Parse applies the statement heuristics to already extracted text.
func Parse(text string) domain.ExtractionResult {
	tx, turnover, ok := guessSummary(text)
	if !ok {
		tx = guessTxCount(text)
		turnover = guessTurnover(text)
	}

	amex := firstMoney(amexRe, text)
	other := decimal.Max(decimal.Zero, turnover.Sub(amex))
	half := other.Div(decimal.NewFromInt(2))

	r := domain.ExtractionResult{
		ProviderGuess:       guessProvider(text),
		MonthTurnover:       turnover,
		CurrentFeesMonthly:  guessCurrentFees(text),
		CurrentFixedMonthly: guessFixedFees(text),
		Mix: domain.Mix{
			Debit:   half,
			Credit:  half,
			Amex:    amex,
			TxCount: tx,
		},
		Source: domain.SourceGeneric,
	}
	r.Confidence = reconcile.Confidence(r)
	return r
}

func guessSummary(text string) (int64, decimal.Decimal, bool) {
	m := summaryRe.FindStringSubmatch(text)
	if len(m) < 3 {
		return 0, decimal.Zero, false
	}
	tx, _ := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	return tx, money(m[2]), true
}

func guessTxCount(text string) int64 {
	for _, re := range txCountRes {
		if m := re.FindStringSubmatch(text); len(m) >= 2 {
			if tx, err := strconv.ParseInt(m[1], 10, 64); err == nil && tx > 0 {
				return tx
			}
		}
	}
	return 0
}

func guessTurnover(text string) decimal.Decimal {
	for _, re := range turnoverRes {
		if v := firstMoney(re, text); v.IsPositive() {
			return v
		}
	}
	return decimal.Zero
}

// guessCurrentFees returns nil when no bill total is printed on the statement.
func guessCurrentFees(text string) *decimal.Decimal {
	for _, re := range currentFeesRes {
		if m := re.FindStringSubmatch(text); len(m) >= 2 {
			v := money(m[1])
			return &v
		}
	}
	return nil
}

func guessFixedFees(text string) decimal.Decimal {
	total := decimal.Zero
	for _, re := range fixedFeeRes {
		total = total.Add(firstMoney(re, text))
	}
	return total
}

func guessProvider(text string) *string {
	l := strings.ToLower(text)
	for _, name := range knownProviders {
		if strings.Contains(l, strings.ToLower(name)) {
			p := name
			return &p
		}
	}
	return nil
}

func firstMoney(re *regexp.Regexp, text string) decimal.Decimal {
	if m := re.FindStringSubmatch(text); len(m) >= 2 {
		return money(m[1])
	}
	return decimal.Zero
}

// money parses "£1,234.56" style amounts; anything unparsable is zero.
func money(s string) decimal.Decimal {
	s = strings.NewReplacer(",", "", "£", "").Replace(s)
	n := numberRe.FindString(s)
	if n == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(n)
	if err != nil {
		return decimal.Zero
	}
	return v
}
