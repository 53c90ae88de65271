// Package pricing selects a pricing tier for a merchant's turnover and prices
// the monthly cost and savings against a static rate table.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

// PickTier returns the first tier whose inclusive bound covers turnover.
// A turnover equal to a bound belongs to the lower tier.
func PickTier(table domain.RateTable, turnover decimal.Decimal) (domain.PricingTier, error) {
	if len(table.Tiers) == 0 {
		return domain.PricingTier{}, fmt.Errorf("%w: no tiers", domain.ErrInvalidRateTable)
	}
	for _, t := range table.Tiers {
		if t.TurnoverMax == nil || turnover.LessThanOrEqual(*t.TurnoverMax) {
			return t, nil
		}
	}
	return domain.PricingTier{}, fmt.Errorf("%w: no tier covers turnover %s", domain.ErrInvalidRateTable, turnover)
}
