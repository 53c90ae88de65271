package gate

import (
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func moneyPtr(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return money(*d)
}

func providerName(p *string) string {
	if p == nil || *p == "" {
		return domain.UnknownProvider
	}
	return *p
}

func successResult(req Request, provider *string, in domain.QuoteInputs, tier domain.PricingTier, s domain.Savings, fixed domain.FixedFees) domain.SavingsResult {
	r := tier.Rates
	debitRate, creditRate, otherRate := r.DebitPct, r.CreditPct, r.IntlPct
	if r.IsFlat() {
		debitRate, creditRate, otherRate = *r.AllCardsPct, *r.AllCardsPct, *r.AllCardsPct
	}

	current := decimal.Zero
	if s.Current != nil {
		current = *s.Current
	}
	currentTxn := decimal.Max(decimal.Zero, current.Sub(in.CurrentFixedMonthly))

	return domain.SavingsResult{
		AnalysisID:   req.AnalysisID,
		BusinessName: req.BusinessName,
		UserEmail:    req.UserEmail,
		ProviderName: providerName(provider),

		CurrentMonthlyCost: money(current),
		NewMonthlyCost:     money(s.CMQMonthly),
		MonthlySaving:      moneyPtr(s.MonthlySaving),
		AnnualSaving:       moneyPtr(s.AnnualSaving),

		CurrentTransactionFees: money(currentTxn),
		CurrentTerminalFees:    money(in.CurrentFixedMonthly),
		CurrentOtherFees:       0,

		CMQTransactionFees: money(s.CMQTxnFees),
		CMQAuthFees:        money(s.CMQAuthFees),
		CMQOtherFees:       money(s.Fixed),
		OneOff:             money(s.OneOff),

		TierName:          tier.Name,
		MatchedDebitRate:  debitRate.InexactFloat64(),
		MatchedCreditRate: creditRate.InexactFloat64(),
		MatchedOtherRate:  otherRate.InexactFloat64(),
		TerminalFee:       money(fixed.TerminalMonthly.Mul(decimal.NewFromInt(int64(in.TerminalsCount)))),
		AuthFee:           r.AuthFee.InexactFloat64(),

		ParsingStatus:  domain.ParsingSuccess,
		ManualRequired: false,
	}
}

// failedResult carries identification only; every monetary field stays zero.
func failedResult(req Request, reason Reason) domain.SavingsResult {
	return domain.SavingsResult{
		AnalysisID:     req.AnalysisID,
		BusinessName:   req.BusinessName,
		UserEmail:      req.UserEmail,
		ProviderName:   domain.UnknownProvider,
		ParsingStatus:  domain.ParsingFailed,
		ManualRequired: true,
		Reason:         string(reason),
	}
}
