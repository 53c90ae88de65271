package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

// Log writes notifications to the structured log. It stands in for SMTP
// when no mail server is configured.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (Log) Notify(ctx context.Context, n domain.Notification) error {
	subject, _, err := Render(n)
	if err != nil {
		return err
	}
	r := n.Result
	ev := log.Ctx(ctx).Info().
		Str("kind", string(n.Kind)).
		Str("subject", subject).
		Str("analysis_id", r.AnalysisID).
		Str("provider", r.ProviderName).
		Str("parsing_status", string(r.ParsingStatus)).
		Bool("manual_required", r.ManualRequired).
		Float64("monthly_saving", r.MonthlySaving)
	if r.Reason != "" {
		ev = ev.Str("reason", r.Reason)
	}
	if n.Attachment != nil {
		ev = ev.Str("attachment", n.Attachment.Name).Int("attachment_bytes", len(n.Attachment.Data))
	}
	ev.Msg("notification")
	return nil
}
