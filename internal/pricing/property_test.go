package pricing_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/pricing"
)

func properties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

// TestPickTierPartition checks that exactly one tier covers every turnover and
// that PickTier returns it.
func TestPickTierPartition(t *testing.T) {
	table := domain.DefaultRateTable()
	props := properties()

	props.Property("tiers partition [0, ∞)", prop.ForAll(
		func(turnover float64) bool {
			v := decimal.NewFromFloat(turnover).Round(2)

			covering := -1
			matches := 0
			var lower *decimal.Decimal
			for i, tier := range table.Tiers {
				aboveLower := lower == nil || v.GreaterThan(*lower)
				belowUpper := tier.TurnoverMax == nil || v.LessThanOrEqual(*tier.TurnoverMax)
				if aboveLower && belowUpper {
					matches++
					covering = i
				}
				lower = tier.TurnoverMax
			}
			if matches != 1 {
				return false
			}

			got, err := pricing.PickTier(table, v)
			return err == nil && got.Name == table.Tiers[covering].Name
		},
		gen.Float64Range(0, 10_000_000),
	))

	props.TestingRun(t)
}

// TestPriceCMQMonotonicInTurnover checks that, for a fixed tier, mix and
// terminal option, a higher turnover never lowers the monthly price.
func TestPriceCMQMonotonicInTurnover(t *testing.T) {
	table := domain.DefaultRateTable()
	props := properties()

	options := []domain.TerminalOption{domain.TerminalNone, domain.TerminalMonthly, domain.TerminalBuyout}

	props.Property("cmqMonthly is non-decreasing in monthTurnover", prop.ForAll(
		func(a, b, debit, credit, amex float64, tx int64, tierIdx, optIdx int) bool {
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			tier := table.Tiers[tierIdx]
			mix := domain.Mix{
				Debit:   decimal.NewFromFloat(debit),
				Credit:  decimal.NewFromFloat(credit),
				Amex:    decimal.NewFromFloat(amex),
				TxCount: tx,
			}
			in := domain.QuoteInputs{Mix: mix, TerminalOption: options[optIdx], TerminalsCount: 1}

			in.MonthTurnover = decimal.NewFromFloat(lo)
			low := pricing.PriceCMQ(in, tier, table.FixedFees).CMQMonthly
			in.MonthTurnover = decimal.NewFromFloat(hi)
			high := pricing.PriceCMQ(in, tier, table.FixedFees).CMQMonthly

			return high.GreaterThanOrEqual(low)
		},
		gen.Float64Range(0, 1_000_000),
		gen.Float64Range(0, 1_000_000),
		gen.OneGenOf(gen.Const(0.0), gen.Float64Range(0, 500_000)),
		gen.OneGenOf(gen.Const(0.0), gen.Float64Range(0, 500_000)),
		gen.OneGenOf(gen.Const(0.0), gen.Float64Range(0, 50_000)),
		gen.Int64Range(0, 100_000),
		gen.IntRange(0, len(table.Tiers)-1),
		gen.IntRange(0, len(options)-1),
	))

	props.TestingRun(t)
}

// TestAnnualSavingIsTwelveMonths checks annualSaving == monthlySaving × 12.
func TestAnnualSavingIsTwelveMonths(t *testing.T) {
	table := domain.DefaultRateTable()
	props := properties()

	props.Property("annualSaving = monthlySaving × 12", prop.ForAll(
		func(turnover, fees, fixed float64, tx int64, hasFees bool) bool {
			in := domain.QuoteInputs{
				MonthTurnover:       decimal.NewFromFloat(turnover),
				Mix:                 domain.Mix{TxCount: tx},
				CurrentFixedMonthly: decimal.NewFromFloat(fixed),
				TerminalOption:      domain.TerminalNone,
				TerminalsCount:      1,
			}
			if hasFees {
				f := decimal.NewFromFloat(fees)
				in.CurrentFeesMonthly = &f
			}

			_, s, err := pricing.Quote(table, in)
			if err != nil || s.MonthlySaving == nil {
				return false
			}
			return s.AnnualSaving.Equal(s.MonthlySaving.Mul(decimal.NewFromInt(12)))
		},
		gen.Float64Range(0, 1_000_000),
		gen.Float64Range(0, 20_000),
		gen.Float64Range(0, 500),
		gen.Int64Range(0, 100_000),
		gen.Bool(),
	))

	props.TestingRun(t)
}
