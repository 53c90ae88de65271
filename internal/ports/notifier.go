package ports

import (
	"context"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

// Notifier receives every analysis outcome, successful or not.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
