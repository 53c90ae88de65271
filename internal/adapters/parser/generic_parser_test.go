package parser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardmachinequote/quote-engine/internal/adapters/parser"
	"github.com/cardmachinequote/quote-engine/internal/domain"
)

const dojoStatement = `Dojo statement March 2025
Card type  Transactions  Value
Visa Debit 400 £8,000.00
American Express 20 £500.00
Total 500 £10,000.00
Card machine & account services £20.00
Net amount £300.00
`

const labelledStatement = `Merchant statement
Number of transactions 1234
Total card sales £45,678.90
PCI compliance fee £4.50
Terminal rental £15.00
Total fees £612.34
`

type stubText struct {
	text string
	err  error
}

func (s stubText) ExtractText(context.Context, domain.Document) (string, error) {
	return s.text, s.err
}

func decEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestParse_SummaryLine(t *testing.T) {
	r := parser.Parse(dojoStatement)

	assert.Equal(t, int64(500), r.Mix.TxCount)
	decEq(t, "10000", r.MonthTurnover)
	decEq(t, "20", r.CurrentFixedMonthly)
	require.NotNil(t, r.CurrentFeesMonthly)
	decEq(t, "300", *r.CurrentFeesMonthly)
	decEq(t, "500", r.Mix.Amex)
	decEq(t, "4750", r.Mix.Debit)
	decEq(t, "4750", r.Mix.Credit)
	assert.True(t, r.Mix.Business.IsZero())
	require.NotNil(t, r.ProviderGuess)
	assert.Equal(t, "Dojo", *r.ProviderGuess)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, domain.SourceGeneric, r.Source)
}

func TestParse_LabelFallbacks(t *testing.T) {
	r := parser.Parse(labelledStatement)

	assert.Equal(t, int64(1234), r.Mix.TxCount)
	decEq(t, "45678.90", r.MonthTurnover)
	decEq(t, "19.50", r.CurrentFixedMonthly)
	require.NotNil(t, r.CurrentFeesMonthly)
	decEq(t, "612.34", *r.CurrentFeesMonthly)
	assert.True(t, r.Mix.Amex.IsZero())
	decEq(t, "22839.45", r.Mix.Debit)
	assert.Nil(t, r.ProviderGuess)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestParse_Unreadable(t *testing.T) {
	r := parser.Parse("scanned page, nothing legible")

	assert.True(t, r.MonthTurnover.IsZero())
	assert.Nil(t, r.CurrentFeesMonthly)
	assert.True(t, r.Mix.IsZero())
	assert.Equal(t, 0.0, r.Confidence)
}

func TestParse_PartialConfidence(t *testing.T) {
	r := parser.Parse("Total turnover £12,000.00\nNet amount £150.00")

	decEq(t, "12000", r.MonthTurnover)
	require.NotNil(t, r.CurrentFeesMonthly)
	assert.Equal(t, 0.5, r.Confidence)
}

func TestGenericParser_TextErrorYieldsEmptyResult(t *testing.T) {
	p := parser.NewGenericParser(stubText{err: errors.New("corrupt pdf")})

	r, err := p.Extract(context.Background(), domain.Document{Name: "s.pdf"})

	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Confidence)
	assert.True(t, r.MonthTurnover.IsZero())
}

func TestGenericParser_Extract(t *testing.T) {
	p := parser.NewGenericParser(stubText{text: dojoStatement})

	r, err := p.Extract(context.Background(), domain.Document{Name: "s.txt"})

	require.NoError(t, err)
	decEq(t, "10000", r.MonthTurnover)
}
