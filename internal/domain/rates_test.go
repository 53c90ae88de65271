package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestDefaultRateTable_Valid(t *testing.T) {
	table := domain.DefaultRateTable()
	require.NoError(t, table.Validate())

	assert.Len(t, table.Tiers, 3)
	assert.True(t, table.Tiers[0].Rates.IsFlat())
	assert.False(t, table.Tiers[1].Rates.IsFlat())
	assert.Nil(t, table.Tiers[2].TurnoverMax)
	assert.Equal(t, "GBP", table.Currency)
}

func TestRateTable_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.RateTable)
	}{
		{"empty", func(t *domain.RateTable) { t.Tiers = nil }},
		{"unbounded in the middle", func(t *domain.RateTable) { t.Tiers[1].TurnoverMax = nil }},
		{"bounded last tier", func(t *domain.RateTable) { t.Tiers[2].TurnoverMax = dp("90000") }},
		{"descending bounds", func(t *domain.RateTable) { t.Tiers[1].TurnoverMax = dp("10000") }},
		{"equal bounds", func(t *domain.RateTable) { t.Tiers[1].TurnoverMax = dp("14999") }},
		{"negative bound", func(t *domain.RateTable) { t.Tiers[0].TurnoverMax = dp("-1") }},
		{"missing name", func(t *domain.RateTable) { t.Tiers[0].Name = "" }},
		{"negative rate", func(t *domain.RateTable) { t.Tiers[1].Rates.DebitPct = decimal.NewFromInt(-1) }},
		{"negative flat rate", func(t *domain.RateTable) { t.Tiers[0].Rates.AllCardsPct = dp("-0.1") }},
		{"negative fixed fee", func(t *domain.RateTable) { t.FixedFees.TerminalMonthly = decimal.NewFromInt(-20) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := domain.DefaultRateTable()
			tt.mutate(&table)
			assert.ErrorIs(t, table.Validate(), domain.ErrInvalidRateTable)
		})
	}
}

func TestRateTable_SingleUnboundedTier(t *testing.T) {
	table := domain.RateTable{Tiers: []domain.PricingTier{{Name: "everyone", Rates: domain.TierRates{AllCardsPct: dp("1.2")}}}}
	assert.NoError(t, table.Validate())
}
