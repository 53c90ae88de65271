package reconcile

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

const (
	mergedBaseConfidence = 0.8
	maxConfidence        = 1.0
)

var (
	two          = decimal.NewFromInt(2)
	one          = decimal.NewFromInt(1)
	fivePercent  = decimal.RequireFromString("0.05")
	tenPercent   = decimal.RequireFromString("0.10")
	feeAgreement = one
)

func firstPositive(vals ...decimal.Decimal) decimal.Decimal {
	for _, v := range vals {
		if v.IsPositive() {
			return v
		}
	}
	return decimal.Zero
}

func firstPositivePtr(vals ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range vals {
		if v != nil && v.IsPositive() {
			c := *v
			return &c
		}
	}
	return nil
}

func firstPositiveInt(vals ...int64) int64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

// Merge blends generic and ai field by field, preferring positive AI values.
// The card mix is taken whole from the first source whose breakdown is not all
// zero; without one, non-amex turnover is split evenly between debit and credit.
func Merge(generic, ai domain.ExtractionResult) domain.ExtractionResult {
	turnover := firstPositive(ai.MonthTurnover, generic.MonthTurnover)
	txCount := firstPositiveInt(ai.Mix.TxCount, generic.Mix.TxCount)

	var mix domain.Mix
	switch {
	case !ai.Mix.IsZero():
		mix = ai.Mix
	case !generic.Mix.IsZero():
		mix = generic.Mix
	default:
		amex := firstPositive(ai.Mix.Amex, generic.Mix.Amex)
		half := decimal.Max(decimal.Zero, turnover.Sub(amex)).Div(two)
		mix = domain.Mix{Debit: half, Credit: half, Amex: amex}
	}
	mix.TxCount = txCount

	provider := ai.ProviderGuess
	if provider == nil {
		provider = generic.ProviderGuess
	}

	return domain.ExtractionResult{
		ProviderGuess:       provider,
		Confidence:          mergedConfidence(generic, ai),
		MonthTurnover:       turnover,
		Mix:                 mix,
		CurrentFeesMonthly:  firstPositivePtr(ai.CurrentFeesMonthly, generic.CurrentFeesMonthly),
		CurrentFixedMonthly: firstPositive(ai.CurrentFixedMonthly, generic.CurrentFixedMonthly),
		Source:              domain.SourceMerged,
	}
}

// mergedConfidence rewards agreement between the two extractors.
func mergedConfidence(generic, ai domain.ExtractionResult) float64 {
	c := mergedBaseConfidence

	if ai.MonthTurnover.IsPositive() && generic.MonthTurnover.IsPositive() {
		rel := ai.MonthTurnover.Sub(generic.MonthTurnover).Abs().Div(decimal.Max(one, generic.MonthTurnover))
		switch {
		case rel.LessThan(fivePercent):
			c += 0.1
		case rel.LessThan(tenPercent):
			c += 0.05
		}
	}

	aiFees, genFees := ai.CurrentFeesMonthly, generic.CurrentFeesMonthly
	if aiFees != nil && genFees != nil && aiFees.IsPositive() && genFees.IsPositive() &&
		aiFees.Sub(*genFees).Abs().LessThan(feeAgreement) {
		c += 0.05
	}

	if ai.Mix.TxCount > 0 && ai.Mix.TxCount == generic.Mix.TxCount {
		c += 0.05
	}

	return math.Min(maxConfidence, c)
}
