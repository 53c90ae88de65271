// Package app wires configuration into a ready QuoteService.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/adapters/notify"
	"github.com/cardmachinequote/quote-engine/internal/adapters/ocr"
	"github.com/cardmachinequote/quote-engine/internal/adapters/ollama"
	"github.com/cardmachinequote/quote-engine/internal/adapters/openai"
	"github.com/cardmachinequote/quote-engine/internal/adapters/parser"
	"github.com/cardmachinequote/quote-engine/internal/config"
	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/gate"
	"github.com/cardmachinequote/quote-engine/internal/pkg/telemetry"
	"github.com/cardmachinequote/quote-engine/internal/ports"
	"github.com/cardmachinequote/quote-engine/internal/reconcile"
	"github.com/cardmachinequote/quote-engine/internal/usecase"
)

const ServiceName = "quote-engine"

// Version is set at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

type Engine struct {
	Service *usecase.QuoteService
	Table   domain.RateTable
	// Shutdown flushes telemetry. Always non-nil.
	Shutdown func(context.Context) error
}

// Build loads the rate table and assembles every adapter the configuration
// asks for. Any configuration error is returned before anything is started.
func Build(ctx context.Context, cfg *config.Config) (*Engine, error) {
	table, err := config.LoadRateTable(cfg.RatesFile)
	if err != nil {
		return nil, fmt.Errorf("load rate table: %w", err)
	}
	policy, err := reconcile.ParsePolicy(cfg.ReconcilePolicy)
	if err != nil {
		return nil, err
	}

	// Adapters (infrastructure)
	text := ocr.NewReader(cfg.OCRURL, cfg.OCRAPIKey)
	generic := parser.NewGenericParser(text)
	ai, err := aiExtractor(cfg, text)
	if err != nil {
		return nil, err
	}
	notifier := newNotifier(cfg)

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}

	gateCfg := gate.Config{
		MinTurnover: decimal.NewFromFloat(cfg.GateMinTurnover),
		Tolerance:   decimal.NewFromFloat(cfg.GateTolerance),
	}

	// Application service (use cases)
	svc := usecase.NewQuoteService(
		generic,
		ai,
		notifier,
		reconcile.NewReconciler(cfg.ReconcileThreshold, policy),
		gate.New(table, gateCfg),
		table,
		usecase.Options{
			AITimeout:        cfg.AITimeout,
			AIMaxConcurrency: cfg.AIMaxConcurrency,
			Metrics:          metrics,
		},
	)

	log.Info().
		Int("tiers", len(table.Tiers)).
		Str("ai_provider", cfg.AIProvider).
		Str("policy", string(policy)).
		Bool("smtp", cfg.SMTPEnabled()).
		Msg("quote engine ready")

	return &Engine{Service: svc, Table: table, Shutdown: shutdown}, nil
}

// aiExtractor returns nil, not a typed nil pointer, when AI is disabled.
func aiExtractor(cfg *config.Config, text ports.TextExtractor) (ports.Extractor, error) {
	switch cfg.AIProvider {
	case "", "none":
		return nil, nil
	case "openai":
		return openai.NewExtractor(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.AIModel,
		}, text), nil
	case "ollama":
		model := cfg.OllamaModel
		if model == "" {
			model = cfg.AIModel
		}
		return ollama.NewOllamaAdapter(cfg.OllamaURL, model, text), nil
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q (want openai, ollama or none)", cfg.AIProvider)
	}
}

func newNotifier(cfg *config.Config) ports.Notifier {
	if !cfg.SMTPEnabled() {
		log.Warn().Msg("SMTP not configured, notifications are only logged")
		return notify.NewLog()
	}
	return notify.NewSMTP(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
		To:   cfg.QuotesInbox,
	})
}
