package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/case-event-hub/internal/adapters/primary/validation"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
	"github.com/lorrc/case-event-hub/internal/infrastructure/logging"
)

// NotificationHandler receives mutation notifications from the notification
// service and the workflow engine.
type NotificationHandler struct {
	service      ports.NotificationService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewNotificationHandler(service ports.NotificationService, errorHandler *ErrorHandler, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "notification"),
	}
}

func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleNotification)
	r.Post("/tasks", h.HandleTaskAssignment)
}

// NotificationRequest is the payload posted by the notification service.
type NotificationRequest domain.Notification

func (n *NotificationRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("kanaal", string(n.Channel)).
		Required("hoofdObject", n.MainResource).
		Required("resource", string(n.Resource)).
		Required("resourceUrl", n.ResourceURL).
		Required("actie", n.Action)

	return v.Err()
}

// TaskAssignmentRequest is posted by the workflow engine when a task is
// assigned.
type TaskAssignmentRequest domain.TaskAssignment

func (a *TaskAssignmentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("taskId", a.TaskID).
		Required("caseId", a.CaseID).
		Custom("assignee", a.Assignee != "" || a.Group != "", "Either assignee or group is required")

	return v.Err()
}

// HandleNotification handles POST /notifications
func (h *NotificationHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[NotificationRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	notification := domain.Notification(*req)
	// Unknown channels are acknowledged so the notifier does not retry them.
	if !notification.Channel.IsValid() {
		h.logger.DebugContext(r.Context(), "notification for unknown channel ignored", "channel", notification.Channel)
		WriteNoContent(w)
		return
	}

	ctx := logging.WithNotification(r.Context(), notification.String())
	if err := h.service.Handle(ctx, notification); err != nil {
		h.errorHandler.Handle(w, r.WithContext(ctx), err)
		return
	}

	WriteNoContent(w)
}

// HandleTaskAssignment handles POST /notifications/tasks
func (h *NotificationHandler) HandleTaskAssignment(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[TaskAssignmentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.service.HandleTaskAssignment(r.Context(), domain.TaskAssignment(*req)); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}
