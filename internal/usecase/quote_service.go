package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/gate"
	"github.com/cardmachinequote/quote-engine/internal/pkg/telemetry"
	"github.com/cardmachinequote/quote-engine/internal/ports"
	"github.com/cardmachinequote/quote-engine/internal/reconcile"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrMissingEmail  = errors.New("email is required")
)

const (
	defaultAITimeout     = 4 * time.Minute
	defaultAIConcurrency = 3
)

type Options struct {
	AITimeout        time.Duration
	AIMaxConcurrency int
	Metrics          *telemetry.Metrics
}

// QuoteService runs a statement through extraction, reconciliation, pricing
// and the validation gate, and notifies the quotes inbox of every outcome.
type QuoteService struct {
	generic    ports.Extractor
	ai         ports.Extractor // nil when no AI provider is configured
	notifier   ports.Notifier
	reconciler *reconcile.Reconciler
	gate       *gate.Gate
	table      domain.RateTable
	metrics    *telemetry.Metrics

	aiTimeout time.Duration
	aiSem     chan struct{} // limit concurrent AI calls
	newID     func() string
}

func NewQuoteService(
	generic ports.Extractor,
	ai ports.Extractor,
	notifier ports.Notifier,
	reconciler *reconcile.Reconciler,
	g *gate.Gate,
	table domain.RateTable,
	opts Options,
) *QuoteService {
	if opts.AITimeout <= 0 {
		opts.AITimeout = defaultAITimeout
	}
	if opts.AIMaxConcurrency <= 0 {
		opts.AIMaxConcurrency = defaultAIConcurrency
	}
	return &QuoteService{
		generic:    generic,
		ai:         ai,
		notifier:   notifier,
		reconciler: reconciler,
		gate:       g,
		table:      table,
		metrics:    opts.Metrics,
		aiTimeout:  opts.AITimeout,
		aiSem:      make(chan struct{}, opts.AIMaxConcurrency),
		newID:      uuid.NewString,
	}
}

type AnalyseRequest struct {
	Document       domain.Document
	BusinessName   string
	UserEmail      string
	TerminalOption domain.TerminalOption
	TerminalsCount int
}

// Analyse never fails: a statement that cannot be quoted comes back as a
// failed result flagged for manual review.
func (s *QuoteService) Analyse(ctx context.Context, req AnalyseRequest) domain.SavingsResult {
	start := time.Now()
	id := s.newID()
	l := log.Ctx(ctx).With().Str("analysis_id", id).Str("document", req.Document.Name).Logger()
	ctx = l.WithContext(ctx)

	generic := s.extractGeneric(ctx, req.Document)

	var ai *domain.ExtractionResult
	if s.reconciler.NeedsAI(generic) {
		ai = s.runAI(ctx, req.Document)
	}
	fields := s.reconciler.Reconcile(generic, ai)

	l.Debug().
		Str("source", string(fields.Source)).
		Float64("confidence", fields.Confidence).
		Str("turnover", fields.MonthTurnover.String()).
		Msg("fields reconciled")

	decision := s.gate.Evaluate(fields, gate.Request{
		AnalysisID:     id,
		BusinessName:   strings.TrimSpace(req.BusinessName),
		UserEmail:      strings.TrimSpace(req.UserEmail),
		TerminalOption: req.TerminalOption,
		TerminalsCount: req.TerminalsCount,
	})

	doc := req.Document
	s.notify(ctx, domain.Notification{Kind: domain.NotifyAnalysis, Result: decision.Result, Attachment: &doc})
	s.metrics.RecordAnalysis(ctx, string(decision.State), string(decision.Reason), time.Since(start))

	l.Info().
		Str("state", string(decision.State)).
		Str("reason", string(decision.Reason)).
		Str("tier", decision.Result.TierName).
		Float64("monthly_saving", decision.Result.MonthlySaving).
		Dur("took", time.Since(start)).
		Msg("analysis finished")

	return decision.Result
}

func (s *QuoteService) extractGeneric(ctx context.Context, doc domain.Document) domain.ExtractionResult {
	res, err := s.generic.Extract(ctx, doc)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("generic extraction failed")
		return domain.ExtractionResult{Source: domain.SourceGeneric}
	}
	return res
}

// runAI returns nil when the AI pass is disabled, fails or times out; the
// generic result then stands.
func (s *QuoteService) runAI(ctx context.Context, doc domain.Document) *domain.ExtractionResult {
	if s.ai == nil {
		s.metrics.RecordAICall(ctx, "disabled")
		return nil
	}

	// concurrency limiter
	select {
	case s.aiSem <- struct{}{}:
	case <-ctx.Done():
		s.metrics.RecordAICall(ctx, "cancelled")
		return nil
	}
	defer func() { <-s.aiSem }()

	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	res, err := s.ai.Extract(aiCtx, doc)
	if err != nil {
		result := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(aiCtx.Err(), context.DeadlineExceeded) {
			result = "timeout"
		}
		s.metrics.RecordAICall(ctx, result)
		log.Ctx(ctx).Warn().Err(err).Str("result", result).Msg("AI extraction failed, keeping generic result")
		return nil
	}
	s.metrics.RecordAICall(ctx, "ok")
	return &res
}

func (s *QuoteService) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("kind", string(n.Kind)).Msg("failed to send notification")
	}
}

type QuoteRequest struct {
	Inputs       domain.QuoteInputs
	ProviderName string
	BusinessName string
	UserEmail    string
}

// Quote prices inputs that were entered by hand rather than extracted. They
// pass through the same gate as analysed statements.
func (s *QuoteService) Quote(ctx context.Context, req QuoteRequest) domain.SavingsResult {
	start := time.Now()
	in := req.Inputs
	if in.TerminalsCount < 1 {
		in.TerminalsCount = 1
	}
	if in.TerminalOption == "" {
		in.TerminalOption = domain.TerminalNone
	}

	var provider *string
	if p := strings.TrimSpace(req.ProviderName); p != "" {
		provider = &p
	}

	decision := s.gate.EvaluateInputs(in, provider, gate.Request{
		AnalysisID:     s.newID(),
		BusinessName:   strings.TrimSpace(req.BusinessName),
		UserEmail:      strings.TrimSpace(req.UserEmail),
		TerminalOption: in.TerminalOption,
		TerminalsCount: in.TerminalsCount,
	})
	s.metrics.RecordAnalysis(ctx, string(decision.State), string(decision.Reason), time.Since(start))
	return decision.Result
}

type ManualReviewRequest struct {
	Document     domain.Document
	BusinessName string
	UserEmail    string
}

// RequestManualReview forwards a statement to the quotes inbox unanalysed.
// Unlike Analyse, delivery errors are returned to the caller.
func (s *QuoteService) RequestManualReview(ctx context.Context, req ManualReviewRequest) error {
	if len(req.Document.Data) == 0 {
		return ErrEmptyDocument
	}
	email := strings.TrimSpace(req.UserEmail)
	if email == "" {
		return ErrMissingEmail
	}
	if s.notifier == nil {
		return errors.New("no notifier configured")
	}

	doc := req.Document
	return s.notifier.Notify(ctx, domain.Notification{
		Kind: domain.NotifyManualReview,
		Result: domain.SavingsResult{
			AnalysisID:     s.newID(),
			BusinessName:   strings.TrimSpace(req.BusinessName),
			UserEmail:      email,
			ProviderName:   domain.UnknownProvider,
			ParsingStatus:  domain.ParsingFailed,
			ManualRequired: true,
		},
		Attachment: &doc,
	})
}

// RateTable returns the table quotes are priced against.
func (s *QuoteService) RateTable() domain.RateTable {
	return s.table
}

func (s *QuoteService) Health(ctx context.Context) ports.HealthStatus {
	st := ports.HealthStatus{
		Healthy:   true,
		Message:   "OK: quote-engine",
		AIEnabled: s.ai != nil,
		Tiers:     len(s.table.Tiers),
	}
	if err := s.table.Validate(); err != nil {
		st.Healthy = false
		st.Message = err.Error()
		log.Ctx(ctx).Error().Err(err).Msg("health check failed")
	}
	return st
}
