package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

// RatesFile is the YAML layout of a rate table.
type RatesFile struct {
	Currency  string        `yaml:"currency"`
	Tiers     []TierFile    `yaml:"tiers"`
	FixedFees FixedFeesFile `yaml:"fixed_fees"`
}

type TierFile struct {
	Name        string   `yaml:"name"`
	TurnoverMax *float64 `yaml:"turnover_max"` // omitted on the last, unbounded tier
	AllCardsPct *float64 `yaml:"all_cards_pct"`
	DebitPct    float64  `yaml:"debit_pct"`
	CreditPct   float64  `yaml:"credit_pct"`
	BusinessPct float64  `yaml:"business_pct"`
	IntlPct     float64  `yaml:"intl_pct"`
	AmexPct     float64  `yaml:"amex_pct"`
	AuthFee     float64  `yaml:"auth_fee"`
}

type FixedFeesFile struct {
	PCI             float64 `yaml:"pci"`
	MinimumMonthly  float64 `yaml:"minimum_monthly"`
	TerminalMonthly float64 `yaml:"terminal_monthly"`
	TerminalBuyout  float64 `yaml:"terminal_buyout"`
}

// LoadRateTable returns the built-in table for an empty path, otherwise the
// validated table read from the YAML file.
func LoadRateTable(path string) (domain.RateTable, error) {
	if path == "" {
		return domain.DefaultRateTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("load rates %q: %w", path, err)
	}
	table, err := ParseRateTable(data)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("rates %q: %w", path, err)
	}
	return table, nil
}

func ParseRateTable(data []byte) (domain.RateTable, error) {
	var f RatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.RateTable{}, fmt.Errorf("parse rates: %w", err)
	}

	table := f.toDomain()
	if err := table.Validate(); err != nil {
		return domain.RateTable{}, err
	}
	return table, nil
}

func (f RatesFile) toDomain() domain.RateTable {
	currency := f.Currency
	if currency == "" {
		currency = "GBP"
	}
	table := domain.RateTable{
		Currency: currency,
		FixedFees: domain.FixedFees{
			PCI:             decimal.NewFromFloat(f.FixedFees.PCI),
			MinimumMonthly:  decimal.NewFromFloat(f.FixedFees.MinimumMonthly),
			TerminalMonthly: decimal.NewFromFloat(f.FixedFees.TerminalMonthly),
			TerminalBuyout:  decimal.NewFromFloat(f.FixedFees.TerminalBuyout),
		},
	}
	for _, t := range f.Tiers {
		table.Tiers = append(table.Tiers, domain.PricingTier{
			Name:        t.Name,
			TurnoverMax: optional(t.TurnoverMax),
			Rates: domain.TierRates{
				AllCardsPct: optional(t.AllCardsPct),
				DebitPct:    decimal.NewFromFloat(t.DebitPct),
				CreditPct:   decimal.NewFromFloat(t.CreditPct),
				BusinessPct: decimal.NewFromFloat(t.BusinessPct),
				IntlPct:     decimal.NewFromFloat(t.IntlPct),
				AmexPct:     decimal.NewFromFloat(t.AmexPct),
				AuthFee:     decimal.NewFromFloat(t.AuthFee),
			},
		})
	}
	return table
}

func optional(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

// RatesFileFrom converts a table back to its YAML layout, for printing.
func RatesFileFrom(t domain.RateTable) RatesFile {
	f := RatesFile{
		Currency: t.Currency,
		FixedFees: FixedFeesFile{
			PCI:             t.FixedFees.PCI.InexactFloat64(),
			MinimumMonthly:  t.FixedFees.MinimumMonthly.InexactFloat64(),
			TerminalMonthly: t.FixedFees.TerminalMonthly.InexactFloat64(),
			TerminalBuyout:  t.FixedFees.TerminalBuyout.InexactFloat64(),
		},
	}
	for _, tier := range t.Tiers {
		r := tier.Rates
		f.Tiers = append(f.Tiers, TierFile{
			Name:        tier.Name,
			TurnoverMax: floatPtr(tier.TurnoverMax),
			AllCardsPct: floatPtr(r.AllCardsPct),
			DebitPct:    r.DebitPct.InexactFloat64(),
			CreditPct:   r.CreditPct.InexactFloat64(),
			BusinessPct: r.BusinessPct.InexactFloat64(),
			IntlPct:     r.IntlPct.InexactFloat64(),
			AmexPct:     r.AmexPct.InexactFloat64(),
			AuthFee:     r.AuthFee.InexactFloat64(),
		})
	}
	return f
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}
