package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type TerminalOption string

const (
	TerminalNone    TerminalOption = "none"
	TerminalMonthly TerminalOption = "monthly"
	TerminalBuyout  TerminalOption = "buyout"
)

// ParseTerminalOption maps user input to a TerminalOption. Empty input means none.
func ParseTerminalOption(s string) (TerminalOption, error) {
	switch opt := TerminalOption(strings.ToLower(strings.TrimSpace(s))); opt {
	case "":
		return TerminalNone, nil
	case TerminalNone, TerminalMonthly, TerminalBuyout:
		return opt, nil
	default:
		return TerminalNone, fmt.Errorf("unknown terminal option %q", s)
	}
}

// QuoteInputs is everything the fee calculator needs for one quote.
type QuoteInputs struct {
	MonthTurnover       decimal.Decimal  `json:"monthTurnover"`
	Mix                 Mix              `json:"mix"`
	CurrentFeesMonthly  *decimal.Decimal `json:"currentFeesMonthly"`
	CurrentFixedMonthly decimal.Decimal  `json:"currentFixedMonthly"`
	TerminalOption      TerminalOption   `json:"terminalOption"`
	TerminalsCount      int              `json:"terminalsCount"`
}

// NewQuoteInputs builds inputs from reconciled fields and the user's terminal choice.
func NewQuoteInputs(fields ExtractionResult, opt TerminalOption, terminals int) QuoteInputs {
	if terminals < 1 {
		terminals = 1
	}
	if opt == "" {
		opt = TerminalNone
	}
	return QuoteInputs{
		MonthTurnover:       fields.MonthTurnover,
		Mix:                 fields.Mix,
		CurrentFeesMonthly:  fields.CurrentFeesMonthly,
		CurrentFixedMonthly: fields.CurrentFixedMonthly,
		TerminalOption:      opt,
		TerminalsCount:      terminals,
	}
}

// PricingBreakdown is the new provider's monthly cost for one set of inputs.
type PricingBreakdown struct {
	CMQMonthly  decimal.Decimal
	CMQTxnFees  decimal.Decimal
	CMQAuthFees decimal.Decimal
	Fixed       decimal.Decimal // pci + minimum monthly + terminal rental
	TerminalFee decimal.Decimal
	OneOff      decimal.Decimal // terminal buy-out
}

// Savings adds the comparison against the merchant's current cost.
// MonthlySaving is negative when the quote is more expensive.
type Savings struct {
	PricingBreakdown
	Current       *decimal.Decimal
	MonthlySaving *decimal.Decimal
	AnnualSaving  *decimal.Decimal
}

type ParsingStatus string

const (
	ParsingSuccess ParsingStatus = "success"
	ParsingFailed  ParsingStatus = "failed"
)

// UnknownProvider is shown when no extractor recognised the provider.
const UnknownProvider = "Unknown"

// SavingsResult is the record returned to the caller and sent to the quotes inbox.
type SavingsResult struct {
	AnalysisID   string `json:"analysisId"`
	BusinessName string `json:"businessName,omitempty"`
	UserEmail    string `json:"userEmail,omitempty"`
	ProviderName string `json:"providerName"`

	CurrentMonthlyCost float64 `json:"currentMonthlyCost"`
	NewMonthlyCost     float64 `json:"newMonthlyCost"`
	MonthlySaving      float64 `json:"monthlySaving"`
	AnnualSaving       float64 `json:"annualSaving"`

	CurrentTransactionFees float64 `json:"currentTransactionFees"`
	CurrentTerminalFees    float64 `json:"currentTerminalFees"`
	CurrentOtherFees       float64 `json:"currentOtherFees"`

	CMQTransactionFees float64 `json:"cmqTransactionFees"`
	CMQAuthFees        float64 `json:"cmqAuthFees"`
	CMQOtherFees       float64 `json:"cmqOtherFees"`
	OneOff             float64 `json:"oneOff"`

	TierName          string  `json:"tierName,omitempty"`
	MatchedDebitRate  float64 `json:"matchedDebitRate"`
	MatchedCreditRate float64 `json:"matchedCreditRate"`
	MatchedOtherRate  float64 `json:"matchedOtherRate"`
	TerminalFee       float64 `json:"terminalFee"`
	AuthFee           float64 `json:"authFee"`

	ParsingStatus  ParsingStatus `json:"parsingStatus"`
	ManualRequired bool          `json:"manualRequired"`
	Reason         string        `json:"reason,omitempty"`
}

type NotificationKind string

const (
	// NotifyAnalysis follows every analysis, quoted or not.
	NotifyAnalysis NotificationKind = "analysis"
	// NotifyManualReview is a user asking for a manual quote directly.
	NotifyManualReview NotificationKind = "manual_review"
)

// Notification is what the notification sink receives. For manual review
// requests only the business name and email of Result are set.
type Notification struct {
	Kind       NotificationKind
	Result     SavingsResult
	Attachment *Document
}
