// Package reconcile merges the deterministic statement parse with the AI
// extraction into the single field set that gets priced.
package reconcile

import "github.com/cardmachinequote/quote-engine/internal/domain"

// Confidence scores a deterministic extraction by how many of the four key
// fields it found: turnover, transaction count, fixed fees and the current bill.
func Confidence(r domain.ExtractionResult) float64 {
	present := 0
	if r.MonthTurnover.IsPositive() {
		present++
	}
	if r.Mix.TxCount > 0 {
		present++
	}
	if r.CurrentFixedMonthly.IsPositive() {
		present++
	}
	if r.CurrentFeesMonthly != nil {
		present++
	}
	return float64(present) / 4
}
