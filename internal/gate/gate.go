// Package gate decides whether a reconciled statement can be auto-quoted or
// has to go to manual review, and builds the SavingsResult for either outcome.
//
// One evaluation walks Pending → Valid → AutoQuoted or Pending → Invalid →
// ManualReview. Rules run in order and the first failing rule wins:
//
//  1. the turnover must exceed the configured minimum
//  2. no card category, transaction count or fixed fee may be negative
//  3. the current monthly bill must be present and positive
//  4. the quoted cost plus the saving must give back the current bill
//     within the configured tolerance
package gate

import (
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/pricing"
)

type State string

const (
	StatePending      State = "pending"
	StateValid        State = "valid"
	StateInvalid      State = "invalid"
	StateAutoQuoted   State = "auto_quoted"
	StateManualReview State = "manual_review"
)

// IsTerminal reports whether no further transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateAutoQuoted || s == StateManualReview
}

type Reason string

const (
	ReasonNone                Reason = ""
	ReasonUnreadableTurnover  Reason = "unreadable turnover"
	ReasonNegativeAmount      Reason = "negative card amount"
	ReasonMissingCurrentCost  Reason = "missing current cost"
	ReasonInconsistentSavings Reason = "inconsistent savings arithmetic"
	ReasonRateTable           Reason = "rate table unavailable"
)

type Config struct {
	// MinTurnover is exclusive: turnover must be strictly greater.
	MinTurnover decimal.Decimal
	// Tolerance is the allowed gap, in currency units, in the savings self-check.
	Tolerance decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		MinTurnover: decimal.Zero,
		Tolerance:   decimal.NewFromInt(1),
	}
}

// Request carries the per-analysis details that are not read from the statement.
type Request struct {
	AnalysisID     string
	BusinessName   string
	UserEmail      string
	TerminalOption domain.TerminalOption
	TerminalsCount int
}

type Decision struct {
	// Checked is Valid or Invalid; State is the terminal state it settles into.
	Checked State
	State   State
	Reason  Reason
	Result  domain.SavingsResult
}

func (d Decision) AutoQuoted() bool { return d.State == StateAutoQuoted }

type Gate struct {
	table domain.RateTable
	cfg   Config
}

func New(table domain.RateTable, cfg Config) *Gate {
	return &Gate{table: table, cfg: cfg}
}

// Evaluate prices the reconciled fields for req and settles the outcome.
func (g *Gate) Evaluate(fields domain.ExtractionResult, req Request) Decision {
	in := domain.NewQuoteInputs(fields, req.TerminalOption, req.TerminalsCount)
	return g.EvaluateInputs(in, fields.ProviderGuess, req)
}

// EvaluateInputs runs the rules on inputs that were not produced by an extractor.
func (g *Gate) EvaluateInputs(in domain.QuoteInputs, provider *string, req Request) Decision {
	if !in.MonthTurnover.GreaterThan(g.cfg.MinTurnover) {
		return invalid(req, ReasonUnreadableTurnover)
	}

	if in.Mix.HasNegative() || in.CurrentFixedMonthly.IsNegative() {
		return invalid(req, ReasonNegativeAmount)
	}

	// a statement with turnover but no charges is not a merchant statement
	if in.CurrentFeesMonthly == nil || !in.CurrentFeesMonthly.IsPositive() {
		return invalid(req, ReasonMissingCurrentCost)
	}

	tier, s, err := pricing.Quote(g.table, in)
	if err != nil {
		return invalid(req, ReasonRateTable)
	}

	if !g.consistent(s, *in.CurrentFeesMonthly) {
		return invalid(req, ReasonInconsistentSavings)
	}

	return Decision{
		Checked: StateValid,
		State:   StateAutoQuoted,
		Result:  successResult(req, provider, in, tier, s, g.table.FixedFees),
	}
}

// consistent checks that the saving was derived from the reported current cost.
func (g *Gate) consistent(s domain.Savings, current decimal.Decimal) bool {
	if s.MonthlySaving == nil {
		return false
	}
	implied := s.CMQMonthly.Add(*s.MonthlySaving)
	return implied.Sub(current).Abs().LessThanOrEqual(g.cfg.Tolerance)
}

func invalid(req Request, reason Reason) Decision {
	return Decision{
		Checked: StateInvalid,
		State:   StateManualReview,
		Reason:  reason,
		Result:  failedResult(req, reason),
	}
}
