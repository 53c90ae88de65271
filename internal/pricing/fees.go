package pricing

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)

	// split assumed when an interchange tier gets no card mix at all
	assumedDebitShare  = decimal.RequireFromString("0.8")
	assumedCreditShare = decimal.RequireFromString("0.2")
)

func pct(p, amount decimal.Decimal) decimal.Decimal {
	return p.Div(hundred).Mul(amount)
}

// PriceCMQ computes the monthly fee breakdown for in under tier.
func PriceCMQ(in domain.QuoteInputs, tier domain.PricingTier, fixed domain.FixedFees) domain.PricingBreakdown {
	r := tier.Rates
	m := in.Mix

	// an under-reported mix must not price below the known turnover
	base := decimal.Max(m.Total(), in.MonthTurnover)

	var txn decimal.Decimal
	if r.IsFlat() {
		txn = pct(*r.AllCardsPct, base)
	} else {
		txn = pct(r.DebitPct, m.Debit).
			Add(pct(r.CreditPct, m.Credit)).
			Add(pct(r.BusinessPct, m.Business)).
			Add(pct(r.IntlPct, m.International)).
			Add(pct(r.AmexPct, m.Amex))

		if txn.IsZero() && in.MonthTurnover.IsPositive() {
			txn = pct(r.DebitPct, in.MonthTurnover.Mul(assumedDebitShare)).
				Add(pct(r.CreditPct, in.MonthTurnover.Mul(assumedCreditShare)))
		}
	}

	auth := decimal.NewFromInt(m.TxCount).Mul(r.AuthFee)

	terminals := decimal.NewFromInt(int64(in.TerminalsCount))
	terminalFee := decimal.Zero
	oneOff := decimal.Zero
	switch in.TerminalOption {
	case domain.TerminalMonthly:
		terminalFee = fixed.TerminalMonthly.Mul(terminals)
	case domain.TerminalBuyout:
		oneOff = fixed.TerminalBuyout.Mul(terminals)
	}

	fixedMonthly := fixed.PCI.Add(fixed.MinimumMonthly).Add(terminalFee)
	monthly := txn.Add(auth).Add(fixedMonthly)

	log.Debug().
		Str("tier", tier.Name).
		Str("turnover", in.MonthTurnover.StringFixed(2)).
		Str("txn_fees", txn.StringFixed(2)).
		Str("auth_fees", auth.StringFixed(2)).
		Str("fixed", fixedMonthly.StringFixed(2)).
		Str("cmq_monthly", monthly.StringFixed(2)).
		Msg("priced quote")

	return domain.PricingBreakdown{
		CMQMonthly:  monthly,
		CMQTxnFees:  txn,
		CMQAuthFees: auth,
		Fixed:       fixedMonthly,
		TerminalFee: terminalFee,
		OneOff:      oneOff,
	}
}
