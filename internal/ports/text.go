package ports

import (
	"context"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

type TextExtractor interface {
	// Returns the plain text of a statement (PDF text layer, OCR for images).
	ExtractText(ctx context.Context, doc domain.Document) (string, error)
}
