package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidRateTable marks a rate table that cannot be used for pricing.
var ErrInvalidRateTable = errors.New("invalid rate table")

// TierRates holds the percentages (0.79 means 0.79%) and the per-transaction
// auth fee of one tier. A non-nil AllCardsPct makes the tier a flat-rate tier.
type TierRates struct {
	AllCardsPct *decimal.Decimal
	DebitPct    decimal.Decimal
	CreditPct   decimal.Decimal
	BusinessPct decimal.Decimal
	IntlPct     decimal.Decimal
	AmexPct     decimal.Decimal
	AuthFee     decimal.Decimal
}

// IsFlat reports whether a single rate applies to every card.
func (r TierRates) IsFlat() bool {
	return r.AllCardsPct != nil
}

// PricingTier is a turnover bracket. TurnoverMax is inclusive; nil means unbounded.
type PricingTier struct {
	Name        string
	TurnoverMax *decimal.Decimal
	Rates       TierRates
}

type FixedFees struct {
	PCI             decimal.Decimal
	MinimumMonthly  decimal.Decimal
	TerminalMonthly decimal.Decimal
	TerminalBuyout  decimal.Decimal
}

// RateTable is the read-only pricing configuration. Tiers are ordered by
// ascending TurnoverMax and the last one is unbounded.
type RateTable struct {
	Currency  string
	Tiers     []PricingTier
	FixedFees FixedFees
}

// Validate checks that the tiers partition [0, ∞) without gaps or overlaps.
func (t RateTable) Validate() error {
	if len(t.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidRateTable)
	}
	var prev *decimal.Decimal
	for i, tier := range t.Tiers {
		last := i == len(t.Tiers)-1
		if tier.Name == "" {
			return fmt.Errorf("%w: tier %d has no name", ErrInvalidRateTable, i)
		}
		if tier.TurnoverMax == nil && !last {
			return fmt.Errorf("%w: unbounded tier %q is not the last tier", ErrInvalidRateTable, tier.Name)
		}
		if tier.TurnoverMax != nil {
			if last {
				return fmt.Errorf("%w: last tier %q must be unbounded", ErrInvalidRateTable, tier.Name)
			}
			if tier.TurnoverMax.IsNegative() {
				return fmt.Errorf("%w: tier %q has a negative bound", ErrInvalidRateTable, tier.Name)
			}
			if prev != nil && !tier.TurnoverMax.GreaterThan(*prev) {
				return fmt.Errorf("%w: tier %q bound %s is not above %s", ErrInvalidRateTable, tier.Name, tier.TurnoverMax, prev)
			}
			prev = tier.TurnoverMax
		}
		if err := tier.Rates.validate(); err != nil {
			return fmt.Errorf("%w: tier %q: %v", ErrInvalidRateTable, tier.Name, err)
		}
	}
	f := t.FixedFees
	for name, v := range map[string]decimal.Decimal{
		"pci":              f.PCI,
		"minimum_monthly":  f.MinimumMonthly,
		"terminal_monthly": f.TerminalMonthly,
		"terminal_buyout":  f.TerminalBuyout,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: fixed fee %s is negative", ErrInvalidRateTable, name)
		}
	}
	return nil
}

func (r TierRates) validate() error {
	if r.AllCardsPct != nil && r.AllCardsPct.IsNegative() {
		return errors.New("negative all_cards_pct")
	}
	for _, v := range []decimal.Decimal{r.DebitPct, r.CreditPct, r.BusinessPct, r.IntlPct, r.AmexPct, r.AuthFee} {
		if v.IsNegative() {
			return errors.New("negative rate")
		}
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// DefaultRateTable returns the standard tier table. The first boundary sits at
// 14999 so that a turnover of exactly 15000 qualifies for the second tier.
func DefaultRateTable() RateTable {
	return RateTable{
		Currency: "GBP",
		Tiers: []PricingTier{
			{
				Name:        "Under £15k",
				TurnoverMax: decPtr("14999"),
				Rates: TierRates{
					AllCardsPct: decPtr("0.79"),
					AmexPct:     dec("0.79"),
					AuthFee:     dec("0.025"),
				},
			},
			{
				Name:        "£15k–£30k",
				TurnoverMax: decPtr("30000"),
				Rates: TierRates{
					DebitPct:    dec("0.35"),
					CreditPct:   dec("0.45"),
					BusinessPct: dec("1.65"),
					IntlPct:     dec("1.65"),
					AmexPct:     dec("1.99"),
					AuthFee:     dec("0.025"),
				},
			},
			{
				Name: "Over £30k",
				Rates: TierRates{
					DebitPct:    dec("0.25"),
					CreditPct:   dec("0.45"),
					BusinessPct: dec("1.65"),
					IntlPct:     dec("1.65"),
					AmexPct:     dec("1.99"),
					AuthFee:     dec("0.025"),
				},
			},
		},
		FixedFees: FixedFees{
			PCI:             decimal.Zero,
			MinimumMonthly:  decimal.Zero,
			TerminalMonthly: dec("20"),
			TerminalBuyout:  dec("99"),
		},
	}
}
