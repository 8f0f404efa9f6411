package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/case-event-hub/internal/adapters/primary/http/middleware"
	"github.com/lorrc/case-event-hub/internal/adapters/primary/validation"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

const (
	defaultSignalRows = 25
	maxSignalRows     = 100
)

// SignalHandler serves the dashboard signals of the calling user.
type SignalHandler struct {
	signals      ports.SignalService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewSignalHandler(signals ports.SignalService, errorHandler *ErrorHandler, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		signals:      signals,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "signal"),
	}
}

func (h *SignalHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListSignals)
	r.Delete("/", h.HandleDismissSignals)
}

type ListSignalsQuery struct {
	validation.PageParams
	Types   []string `query:"type"`
	Subject string   `query:"subject"`
}

func (q *ListSignalsQuery) Validate() error {
	return validation.NewValidator().
		Min("page", q.Page, 0).
		Range("rows", q.Rows, 0, maxSignalRows).
		Err()
}

type DismissSignalsQuery struct {
	Type    string `query:"type"`
	Subject string `query:"subject"`
}

func (q *DismissSignalsQuery) Validate() error {
	return validation.NewValidator().Required("type", q.Type).Err()
}

// HandleListSignals handles GET /signals?type=T&page=P&rows=R
func (h *SignalHandler) HandleListSignals(w http.ResponseWriter, r *http.Request) {
	target, ok := h.caller(w, r)
	if !ok {
		return
	}

	q, err := validation.DecodeQuery[ListSignalsQuery](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	types := make([]domain.SignalType, 0, len(q.Types))
	for _, name := range q.Types {
		t, err := domain.ParseSignalType(name)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		types = append(types, t)
	}

	page := q.Pagination(defaultSignalRows, maxSignalRows)
	// One extra row tells whether another page exists.
	signals, err := h.signals.ListSignals(r.Context(), ports.ListSignalsParams{
		Target:  target,
		Types:   types,
		Subject: q.Subject,
		Limit:   page.Limit + 1,
		Offset:  page.Offset,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginatedSimple(w, signals, page.Limit, page.Offset)
}

// HandleDismissSignals handles DELETE /signals?type=T&subject=S
func (h *SignalHandler) HandleDismissSignals(w http.ResponseWriter, r *http.Request) {
	target, ok := h.caller(w, r)
	if !ok {
		return
	}

	q, err := validation.DecodeQuery[DismissSignalsQuery](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	signalType, err := domain.ParseSignalType(q.Type)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	removed, err := h.signals.DismissSignals(r.Context(), ports.DeleteSignalsParams{
		Target:  target,
		Type:    signalType,
		Subject: q.Subject,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "signals dismissed", "type", signalType, "removed", removed)
	WriteNoContent(w)
}

func (h *SignalHandler) caller(w http.ResponseWriter, r *http.Request) (domain.Target, bool) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Authentication required"))
		return domain.Target{}, false
	}
	return domain.UserTarget(claims.UserID), true
}
