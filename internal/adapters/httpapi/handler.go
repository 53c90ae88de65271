package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/pkg/logger"
	"github.com/cardmachinequote/quote-engine/internal/ports"
	"github.com/cardmachinequote/quote-engine/internal/usecase"
)

// DefaultMaxUploadBytes caps statement uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// QuoteEngine is the part of the use case the HTTP API drives.
type QuoteEngine interface {
	Analyse(ctx context.Context, req usecase.AnalyseRequest) domain.SavingsResult
	Quote(ctx context.Context, req usecase.QuoteRequest) domain.SavingsResult
	RequestManualReview(ctx context.Context, req usecase.ManualReviewRequest) error
	ports.HealthChecker
}

type Handler struct {
	engine         QuoteEngine
	maxUploadBytes int64
}

func NewHandler(engine QuoteEngine, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{engine: engine, maxUploadBytes: maxUploadBytes}
}

type analysisResponse struct {
	Status string               `json:"status"`
	Result domain.SavingsResult `json:"result"`
}

func responseFor(result domain.SavingsResult) analysisResponse {
	status := "ok"
	if result.ParsingStatus == domain.ParsingFailed {
		status = "unreadable"
	}
	return analysisResponse{Status: status, Result: result}
}

// Analyse handles POST /api/analyse. Whatever the statement contains, the
// answer is 200; only malformed requests are rejected.
func (h *Handler) Analyse(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.parseUpload(w, r)
	if !ok {
		return
	}

	opt, err := domain.ParseTerminalOption(r.FormValue("terminalOption"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	terminals, err := parseTerminalsCount(r.FormValue("terminalsCount"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.engine.Analyse(r.Context(), usecase.AnalyseRequest{
		Document:       doc,
		BusinessName:   r.FormValue("businessName"),
		UserEmail:      r.FormValue("email"),
		TerminalOption: opt,
		TerminalsCount: terminals,
	})
	writeJSON(w, http.StatusOK, responseFor(result))
}

type quoteBody struct {
	MonthTurnover       decimal.Decimal  `json:"monthTurnover"`
	Mix                 domain.Mix       `json:"mix"`
	CurrentFeesMonthly  *decimal.Decimal `json:"currentFeesMonthly"`
	CurrentFixedMonthly decimal.Decimal  `json:"currentFixedMonthly"`
	TerminalOption      string           `json:"terminalOption"`
	TerminalsCount      int              `json:"terminalsCount"`
	ProviderName        string           `json:"providerName"`
	BusinessName        string           `json:"businessName"`
	Email               string           `json:"email"`
}

// Quote handles POST /api/quote with hand-entered figures.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var body quoteBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSONError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.MonthTurnover.IsNegative() || body.CurrentFixedMonthly.IsNegative() ||
		(body.CurrentFeesMonthly != nil && body.CurrentFeesMonthly.IsNegative()) ||
		body.Mix.HasNegative() {
		writeJSONError(w, "amounts must not be negative", http.StatusBadRequest)
		return
	}
	opt, err := domain.ParseTerminalOption(body.TerminalOption)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.TerminalsCount < 0 {
		writeJSONError(w, "terminalsCount must not be negative", http.StatusBadRequest)
		return
	}

	result := h.engine.Quote(r.Context(), usecase.QuoteRequest{
		Inputs: domain.QuoteInputs{
			MonthTurnover:       body.MonthTurnover,
			Mix:                 body.Mix,
			CurrentFeesMonthly:  body.CurrentFeesMonthly,
			CurrentFixedMonthly: body.CurrentFixedMonthly,
			TerminalOption:      opt,
			TerminalsCount:      body.TerminalsCount,
		},
		ProviderName: body.ProviderName,
		BusinessName: body.BusinessName,
		UserEmail:    body.Email,
	})
	writeJSON(w, http.StatusOK, responseFor(result))
}

// ManualReview handles POST /api/manual-review.
func (h *Handler) ManualReview(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.parseUpload(w, r)
	if !ok {
		return
	}

	err := h.engine.RequestManualReview(r.Context(), usecase.ManualReviewRequest{
		Document:     doc,
		BusinessName: r.FormValue("businessName"),
		UserEmail:    r.FormValue("email"),
	})
	switch {
	case errors.Is(err, usecase.ErrMissingEmail), errors.Is(err, usecase.ErrEmptyDocument):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		logger.FromContext(r.Context()).Error().Err(err).Msg("manual review request failed")
		writeJSONError(w, "could not send the manual review request", http.StatusBadGateway)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Health(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (domain.Document, bool) {
	// multipart framing adds a little on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, errFileTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return domain.Document{}, false
		}
		writeJSONError(w, "invalid multipart form", http.StatusBadRequest)
		return domain.Document{}, false
	}

	doc, err := readUpload(r, h.maxUploadBytes)
	switch {
	case errors.Is(err, errFileTooLarge):
		writeJSONError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return domain.Document{}, false
	case err != nil:
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return domain.Document{}, false
	}
	log.Ctx(r.Context()).Debug().
		Str("file", doc.Name).
		Str("content_type", doc.ContentType).
		Int("size", len(doc.Data)).
		Msg("upload received")
	return doc, true
}

func parseTerminalsCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("terminalsCount must be a non-negative whole number")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}
