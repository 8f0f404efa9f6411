package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/case-event-hub/internal/adapters/primary/validation"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// AdminDefaults are used when a maintenance call leaves out its parameter.
type AdminDefaults struct {
	BatchSize     int
	RetentionDays int
}

// AdminHandler serves the maintenance calls made by the scheduler and the
// preference administration screens.
type AdminHandler struct {
	batch        ports.BatchSignalJob
	sweeper      ports.RetentionSweeper
	signals      ports.SignalService
	preferences  ports.PreferenceService
	defaults     AdminDefaults
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAdminHandler(
	batch ports.BatchSignalJob,
	sweeper ports.RetentionSweeper,
	signals ports.SignalService,
	preferences ports.PreferenceService,
	defaults AdminDefaults,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		batch:        batch,
		sweeper:      sweeper,
		signals:      signals,
		preferences:  preferences,
		defaults:     defaults,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "admin"),
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/signals", func(r chi.Router) {
		r.Post("/batch", h.HandleRunBatch)
		r.Post("/retention", h.HandleRetention)
		r.Post("/candidates", h.HandleEnqueueCandidate)
		r.Delete("/ledger", h.HandleForgetSent)
	})

	r.Get("/preferences", h.HandleListPreferences)
	r.Put("/preferences", h.HandleSavePreference)
}

type BatchQuery struct {
	Count *int `query:"count"`
}

type RetentionQuery struct {
	Days *int `query:"days"`
}

// OwnerQuery selects the owner of a set of preferences.
type OwnerQuery struct {
	Group string `query:"group"`
	User  string `query:"user"`
}

func (q *OwnerQuery) Validate() error {
	return validation.NewValidator().
		ExactlyOne(map[string]string{"group": q.Group, "user": q.User}).
		Err()
}

func (q *OwnerQuery) Owner() domain.Target {
	if q.Group != "" {
		return domain.GroupTarget(q.Group)
	}
	return domain.UserTarget(q.User)
}

// Field limits of a candidate.
const (
	maxIDLength     = 255
	maxDetailLength = 64
)

// CandidateRequest is a signal raised by an external scheduler, such as a
// due-date warning. The same shape identifies a sent signal to forget.
type CandidateRequest struct {
	Type    string         `json:"type"`
	Target  domain.Target  `json:"target"`
	Subject domain.Subject `json:"subject"`
	Detail  string         `json:"detail,omitempty"`
}

func (c *CandidateRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("type", c.Type).
		Required("target.id", c.Target.ID).
		OneOf("target.kind", string(c.Target.Kind), []string{string(domain.TargetUser), string(domain.TargetGroup)}).
		Required("subject.id", c.Subject.ID).
		MaxLength("target.id", c.Target.ID, maxIDLength).
		MaxLength("subject.id", c.Subject.ID, maxIDLength).
		MaxLength("detail", c.Detail, maxDetailLength)

	return v.Err()
}

func (c *CandidateRequest) params() (ports.CandidateParams, error) {
	signalType, err := domain.ParseSignalType(c.Type)
	if err != nil {
		return ports.CandidateParams{}, err
	}
	return ports.CandidateParams{
		Type:    signalType,
		Target:  c.Target,
		Subject: c.Subject,
		Detail:  c.Detail,
	}, nil
}

// ForgetResult reports how many ledger entries were removed.
type ForgetResult struct {
	Removed int64 `json:"removed"`
}

// PreferenceRequest replaces the preference of one owner for one type.
type PreferenceRequest struct {
	Type      string `json:"type"`
	GroupID   string `json:"groupId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Dashboard bool   `json:"dashboard"`
	Mail      bool   `json:"mail"`
}

func (p *PreferenceRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("type", p.Type).
		ExactlyOne(map[string]string{"groupId": p.GroupID, "userId": p.UserID})

	return v.Err()
}

// HandleRunBatch handles POST /admin/signals/batch?count=N
func (h *AdminHandler) HandleRunBatch(w http.ResponseWriter, r *http.Request) {
	q, err := validation.DecodeQuery[BatchQuery](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	count := h.defaults.BatchSize
	if q.Count != nil {
		count = *q.Count
	}

	result, err := h.batch.Run(r.Context(), count)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// HandleRetention handles POST /admin/signals/retention?days=N
func (h *AdminHandler) HandleRetention(w http.ResponseWriter, r *http.Request) {
	q, err := validation.DecodeQuery[RetentionQuery](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	days := h.defaults.RetentionDays
	if q.Days != nil {
		days = *q.Days
	}

	var result domain.RetentionResult
	if result.LedgerRemoved, err = h.sweeper.Purge(r.Context(), days); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if result.DashboardRemoved, err = h.sweeper.PurgeDashboard(r.Context(), days); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// HandleEnqueueCandidate handles POST /admin/signals/candidates
func (h *AdminHandler) HandleEnqueueCandidate(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[CandidateRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params, err := req.params()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	signal, err := h.signals.EnqueueCandidate(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, signal)
}

// HandleForgetSent handles DELETE /admin/signals/ledger. The scheduler calls
// it when a due date moves later, so the warning is mailed again.
func (h *AdminHandler) HandleForgetSent(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[CandidateRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params, err := req.params()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	removed, err := h.batch.Forget(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, ForgetResult{Removed: removed})
}

// HandleListPreferences handles GET /admin/preferences?group=G or ?user=U
func (h *AdminHandler) HandleListPreferences(w http.ResponseWriter, r *http.Request) {
	q, err := validation.DecodeQuery[OwnerQuery](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	prefs, err := h.preferences.List(r.Context(), q.Owner())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, prefs)
}

// HandleSavePreference handles PUT /admin/preferences
func (h *AdminHandler) HandleSavePreference(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[PreferenceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	saved, err := h.preferences.Save(r.Context(), &domain.SignalPreference{
		Type:      domain.SignalType(req.Type),
		GroupID:   req.GroupID,
		UserID:    req.UserID,
		Dashboard: req.Dashboard,
		Mail:      req.Mail,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "signal preference saved",
		"type", saved.Type,
		"owner", saved.Owner().String(),
		"dashboard", saved.Dashboard,
		"mail", saved.Mail,
	)
	WriteJSON(w, http.StatusOK, saved)
}
