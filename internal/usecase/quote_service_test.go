package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/gate"
	"github.com/cardmachinequote/quote-engine/internal/pkg/telemetry"
	"github.com/cardmachinequote/quote-engine/internal/ports"
	"github.com/cardmachinequote/quote-engine/internal/reconcile"
	"github.com/cardmachinequote/quote-engine/internal/usecase"
)

type fakeExtractor struct {
	res   domain.ExtractionResult
	err   error
	calls atomic.Int32
	// block until the context ends
	block bool
}

func (f *fakeExtractor) Extract(ctx context.Context, _ domain.Document) (domain.ExtractionResult, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return domain.ExtractionResult{}, ctx.Err()
	}
	return f.res, f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func strongGeneric() domain.ExtractionResult {
	return domain.ExtractionResult{
		Confidence:          1,
		MonthTurnover:       d("10000"),
		Mix:                 domain.Mix{Debit: d("5000"), Credit: d("5000"), TxCount: 500},
		CurrentFeesMonthly:  dp("300"),
		CurrentFixedMonthly: d("20"),
		Source:              domain.SourceGeneric,
	}
}

func weakGeneric() domain.ExtractionResult {
	return domain.ExtractionResult{
		Confidence:    0.25,
		MonthTurnover: d("10000"),
		Source:        domain.SourceGeneric,
	}
}

func aiResult() domain.ExtractionResult {
	provider := "Worldpay"
	return domain.ExtractionResult{
		ProviderGuess:       &provider,
		Confidence:          0.8,
		MonthTurnover:       d("20000"),
		Mix:                 domain.Mix{Debit: d("16000"), Credit: d("4000"), TxCount: 800},
		CurrentFeesMonthly:  dp("400"),
		CurrentFixedMonthly: d("25"),
		Source:              domain.SourceAI,
	}
}

func newService(generic, ai *fakeExtractor, n *fakeNotifier, opts usecase.Options) *usecase.QuoteService {
	table := domain.DefaultRateTable()
	var aiPort ports.Extractor
	if ai != nil {
		aiPort = ai
	}
	return usecase.NewQuoteService(generic, aiPort, n, reconcile.NewReconciler(0, ""), gate.New(table, gate.DefaultConfig()), table, opts)
}

var statement = domain.Document{Name: "march.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}

func TestAnalyse_ConfidentGenericSkipsAI(t *testing.T) {
	generic := &fakeExtractor{res: strongGeneric()}
	ai := &fakeExtractor{res: aiResult()}
	n := &fakeNotifier{}

	res := newService(generic, ai, n, usecase.Options{}).Analyse(context.Background(), usecase.AnalyseRequest{
		Document:     statement,
		BusinessName: "  Acme Cafe ",
		UserEmail:    "owner@example.com",
	})

	assert.Equal(t, int32(0), ai.calls.Load())
	assert.Equal(t, domain.ParsingSuccess, res.ParsingStatus)
	assert.False(t, res.ManualRequired)
	assert.Equal(t, 91.5, res.NewMonthlyCost)
	assert.Equal(t, 208.5, res.MonthlySaving)
	assert.Equal(t, 2502.0, res.AnnualSaving)
	assert.Equal(t, "Acme Cafe", res.BusinessName)
	assert.Equal(t, domain.UnknownProvider, res.ProviderName)
	assert.NotEmpty(t, res.AnalysisID)

	require.Len(t, n.sent, 1)
	assert.Equal(t, domain.NotifyAnalysis, n.sent[0].Kind)
	assert.Equal(t, res, n.sent[0].Result)
	require.NotNil(t, n.sent[0].Attachment)
	assert.Equal(t, "march.pdf", n.sent[0].Attachment.Name)
}

func TestAnalyse_WeakGenericUsesAI(t *testing.T) {
	generic := &fakeExtractor{res: weakGeneric()}
	ai := &fakeExtractor{res: aiResult()}

	res := newService(generic, ai, &fakeNotifier{}, usecase.Options{}).Analyse(context.Background(), usecase.AnalyseRequest{
		Document:       statement,
		TerminalOption: domain.TerminalMonthly,
		TerminalsCount: 2,
	})

	assert.Equal(t, int32(1), ai.calls.Load())
	assert.Equal(t, domain.ParsingSuccess, res.ParsingStatus)
	assert.Equal(t, "Worldpay", res.ProviderName)
	assert.Equal(t, "£15k–£30k", res.TierName)
	// 16000*0.35% + 4000*0.45% + 800*0.025 + 2*20
	assert.Equal(t, 134.0, res.NewMonthlyCost)
	assert.Equal(t, 266.0, res.MonthlySaving)
}

func TestAnalyse_AIFailureKeepsGeneric(t *testing.T) {
	generic := &fakeExtractor{res: weakGeneric()}
	ai := &fakeExtractor{err: errors.New("model unavailable")}

	res := newService(generic, ai, &fakeNotifier{}, usecase.Options{}).Analyse(context.Background(), usecase.AnalyseRequest{Document: statement})

	assert.Equal(t, int32(1), ai.calls.Load())
	assert.Equal(t, domain.ParsingFailed, res.ParsingStatus)
	assert.True(t, res.ManualRequired)
	assert.Equal(t, string(gate.ReasonMissingCurrentCost), res.Reason)
	assert.Zero(t, res.NewMonthlyCost)
}

func TestAnalyse_AITimeout(t *testing.T) {
	generic := &fakeExtractor{res: weakGeneric()}
	ai := &fakeExtractor{block: true}

	start := time.Now()
	res := newService(generic, ai, &fakeNotifier{}, usecase.Options{AITimeout: 20 * time.Millisecond}).
		Analyse(context.Background(), usecase.AnalyseRequest{Document: statement})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, res.ManualRequired)
}

func TestAnalyse_NoAIConfigured(t *testing.T) {
	generic := &fakeExtractor{res: weakGeneric()}

	res := newService(generic, nil, &fakeNotifier{}, usecase.Options{}).Analyse(context.Background(), usecase.AnalyseRequest{Document: statement})

	assert.True(t, res.ManualRequired)
	assert.Equal(t, string(gate.ReasonMissingCurrentCost), res.Reason)
}

func TestAnalyse_GenericErrorIsUnreadable(t *testing.T) {
	generic := &fakeExtractor{err: errors.New("corrupt")}

	res := newService(generic, nil, &fakeNotifier{}, usecase.Options{}).Analyse(context.Background(), usecase.AnalyseRequest{Document: statement})

	assert.Equal(t, string(gate.ReasonUnreadableTurnover), res.Reason)
	assert.Equal(t, domain.UnknownProvider, res.ProviderName)
}

func TestAnalyse_NotifierErrorDoesNotChangeResult(t *testing.T) {
	n := &fakeNotifier{err: errors.New("smtp down")}

	res := newService(&fakeExtractor{res: strongGeneric()}, nil, n, usecase.Options{}).
		Analyse(context.Background(), usecase.AnalyseRequest{Document: statement})

	assert.Equal(t, domain.ParsingSuccess, res.ParsingStatus)
	assert.Len(t, n.sent, 1)
}

func TestAnalyse_FailedResultIsStillNotified(t *testing.T) {
	n := &fakeNotifier{}

	res := newService(&fakeExtractor{}, nil, n, usecase.Options{}).
		Analyse(context.Background(), usecase.AnalyseRequest{Document: statement, UserEmail: "owner@example.com"})

	require.Len(t, n.sent, 1)
	assert.Equal(t, domain.ParsingFailed, n.sent[0].Result.ParsingStatus)
	assert.Equal(t, "owner@example.com", res.UserEmail)
}

type gaugeExtractor struct {
	active, peak atomic.Int32
}

func (g *gaugeExtractor) Extract(context.Context, domain.Document) (domain.ExtractionResult, error) {
	n := g.active.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	g.active.Add(-1)
	return aiResult(), nil
}

func TestAnalyse_AIConcurrencyIsBounded(t *testing.T) {
	table := domain.DefaultRateTable()
	ai := &gaugeExtractor{}
	svc := usecase.NewQuoteService(&fakeExtractor{res: weakGeneric()}, ai, &fakeNotifier{},
		reconcile.NewReconciler(0, ""), gate.New(table, gate.DefaultConfig()), table,
		usecase.Options{AIMaxConcurrency: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Analyse(context.Background(), usecase.AnalyseRequest{Document: statement})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, ai.peak.Load(), int32(2))
	assert.GreaterOrEqual(t, ai.peak.Load(), int32(1))
}

func TestQuote_DirectInputs(t *testing.T) {
	svc := newService(&fakeExtractor{}, nil, &fakeNotifier{}, usecase.Options{})

	res := svc.Quote(context.Background(), usecase.QuoteRequest{
		Inputs: domain.QuoteInputs{
			MonthTurnover:      d("10000"),
			Mix:                domain.Mix{TxCount: 500},
			CurrentFeesMonthly: dp("300"),
		},
		ProviderName: "Dojo",
	})

	assert.Equal(t, domain.ParsingSuccess, res.ParsingStatus)
	assert.Equal(t, "Dojo", res.ProviderName)
	assert.Equal(t, 91.5, res.NewMonthlyCost)
}

func TestQuote_MissingCurrentCost(t *testing.T) {
	svc := newService(&fakeExtractor{}, nil, &fakeNotifier{}, usecase.Options{})

	res := svc.Quote(context.Background(), usecase.QuoteRequest{Inputs: domain.QuoteInputs{MonthTurnover: d("50")}})

	assert.True(t, res.ManualRequired)
	assert.Equal(t, string(gate.ReasonMissingCurrentCost), res.Reason)
}

func TestRequestManualReview(t *testing.T) {
	n := &fakeNotifier{}
	svc := newService(&fakeExtractor{}, nil, n, usecase.Options{})

	err := svc.RequestManualReview(context.Background(), usecase.ManualReviewRequest{Document: statement, UserEmail: "owner@example.com", BusinessName: "Acme"})

	require.NoError(t, err)
	require.Len(t, n.sent, 1)
	assert.Equal(t, domain.NotifyManualReview, n.sent[0].Kind)
	assert.Equal(t, "owner@example.com", n.sent[0].Result.UserEmail)
	assert.Equal(t, statement.Data, n.sent[0].Attachment.Data)
}

func TestRequestManualReview_Validation(t *testing.T) {
	svc := newService(&fakeExtractor{}, nil, &fakeNotifier{}, usecase.Options{})

	err := svc.RequestManualReview(context.Background(), usecase.ManualReviewRequest{Document: statement})
	assert.ErrorIs(t, err, usecase.ErrMissingEmail)

	err = svc.RequestManualReview(context.Background(), usecase.ManualReviewRequest{UserEmail: "a@b.c"})
	assert.ErrorIs(t, err, usecase.ErrEmptyDocument)
}

func TestHealth(t *testing.T) {
	svc := newService(&fakeExtractor{}, &fakeExtractor{}, &fakeNotifier{}, usecase.Options{})

	h := svc.Health(context.Background())

	assert.True(t, h.Healthy)
	assert.True(t, h.AIEnabled)
	assert.Equal(t, 3, h.Tiers)
}

func TestAnalyse_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := telemetry.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	svc := newService(&fakeExtractor{res: weakGeneric()}, &fakeExtractor{res: aiResult()}, &fakeNotifier{}, usecase.Options{Metrics: metrics})
	svc.Analyse(context.Background(), usecase.AnalyseRequest{Document: statement})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["quote.analyses.total"])
	assert.True(t, names["quote.ai.calls.total"])
	assert.True(t, names["quote.analysis.duration"])
}
