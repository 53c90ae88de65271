package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

var monthsPerYear = decimal.NewFromInt(12)

// ComputeSavings prices in and compares it with the merchant's current bill,
// falling back to the current fixed charges when no bill was extracted.
// Savings are never clamped: a negative saving is a valid result.
func ComputeSavings(in domain.QuoteInputs, tier domain.PricingTier, fixed domain.FixedFees) domain.Savings {
	b := PriceCMQ(in, tier, fixed)

	current := in.CurrentFeesMonthly
	if current == nil {
		c := in.CurrentFixedMonthly
		current = &c
	}

	monthly := current.Sub(b.CMQMonthly)
	annual := monthly.Mul(monthsPerYear)
	return domain.Savings{
		PricingBreakdown: b,
		Current:          current,
		MonthlySaving:    &monthly,
		AnnualSaving:     &annual,
	}
}

// Quote picks the tier for in and computes its savings.
func Quote(table domain.RateTable, in domain.QuoteInputs) (domain.PricingTier, domain.Savings, error) {
	tier, err := PickTier(table, in.MonthTurnover)
	if err != nil {
		return domain.PricingTier{}, domain.Savings{}, err
	}
	return tier, ComputeSavings(in, tier, table.FixedFees), nil
}
