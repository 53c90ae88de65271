package ports

import (
	"context"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

type Extractor interface {
	// Extract reads statement fields from doc. An unreadable document yields a
	// zero, low-confidence result; an error means the extractor itself failed.
	Extract(ctx context.Context, doc domain.Document) (domain.ExtractionResult, error)
}
