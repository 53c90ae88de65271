package domain

import "github.com/shopspring/decimal"

// Document is an uploaded merchant statement.
type Document struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Mix is the monthly card turnover split by card category.
type Mix struct {
	Debit         decimal.Decimal `json:"debitTurnover"`
	Credit        decimal.Decimal `json:"creditTurnover"`
	Business      decimal.Decimal `json:"businessTurnover"`
	International decimal.Decimal `json:"internationalTurnover"`
	Amex          decimal.Decimal `json:"amexTurnover"`
	TxCount       int64           `json:"txCount"` // estimated when the statement does not list it
}

// Total sums the five card categories.
func (m Mix) Total() decimal.Decimal {
	return m.Debit.Add(m.Credit).Add(m.Business).Add(m.International).Add(m.Amex)
}

// HasNegative reports whether any category or the transaction count is below zero.
func (m Mix) HasNegative() bool {
	for _, v := range []decimal.Decimal{m.Debit, m.Credit, m.Business, m.International, m.Amex} {
		if v.IsNegative() {
			return true
		}
	}
	return m.TxCount < 0
}

// IsZero reports a degenerate breakdown where no category carries turnover.
func (m Mix) IsZero() bool {
	return m.Total().IsZero()
}

type ExtractionSource string

const (
	SourceGeneric ExtractionSource = "generic"
	SourceAI      ExtractionSource = "ai"
	SourceMerged  ExtractionSource = "merged"
)

// ExtractionResult is one extractor's reading of a statement.
type ExtractionResult struct {
	ProviderGuess       *string          `json:"providerGuess"`
	Confidence          float64          `json:"confidence"`
	MonthTurnover       decimal.Decimal  `json:"monthTurnover"`
	Mix                 Mix              `json:"mix"`
	CurrentFeesMonthly  *decimal.Decimal `json:"currentFeesMonthly"` // the merchant's whole bill
	CurrentFixedMonthly decimal.Decimal  `json:"currentFixedMonthly"`
	Source              ExtractionSource `json:"source,omitempty"`
}
