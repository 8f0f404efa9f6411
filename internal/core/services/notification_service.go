package services

import (
	"context"
	"log/slog"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
	"github.com/lorrc/case-event-hub/internal/infrastructure/logging"
)

// NotificationService feeds incoming notifications to the live event
// dispatcher and the signal service. A failure in one never affects the
// other or the caller.
type NotificationService struct {
	router     ports.NotificationRouter
	dispatcher ports.Dispatcher
	signals    ports.SignalService
	logger     *slog.Logger
}

var _ ports.NotificationService = (*NotificationService)(nil)

func NewNotificationService(
	router ports.NotificationRouter,
	dispatcher ports.Dispatcher,
	signals ports.SignalService,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		router:     router,
		dispatcher: dispatcher,
		signals:    signals,
		logger:     logger.With("component", "notification_service"),
	}
}

// Handle processes one registry notification. Only a malformed
// notification is reported back.
func (s *NotificationService) Handle(ctx context.Context, n domain.Notification) error {
	main, resource, err := n.Resources()
	if err != nil {
		return apperrors.NewBadRequestError(err, "Invalid notification").WithDetails(map[string]interface{}{
			"kanaal":      n.Channel,
			"resource":    n.Resource,
			"resourceUrl": n.ResourceURL,
			"actie":       n.Action,
		})
	}

	s.isolate("events", n, func() {
		events := s.router.Route(n.Channel, main, resource)
		for _, event := range events {
			s.dispatcher.Dispatch(event)
		}
		s.logger.DebugContext(ctx, "notification routed", "notification", n.String(), "events", len(events))
	})

	s.isolate("signals", n, func() {
		s.signals.HandleNotification(ctx, n)
	})

	return nil
}

// HandleTaskAssignment announces a changed task and raises its signal.
func (s *NotificationService) HandleTaskAssignment(ctx context.Context, a domain.TaskAssignment) error {
	taskEvent, err := domain.NewEvent(domain.OpcodeUpdated, domain.EventTask, domain.NewEventID(a.TaskID))
	if err != nil {
		return apperrors.NewBadRequestError(err, "Invalid task id")
	}
	s.dispatcher.Dispatch(taskEvent)

	if a.CaseID != "" {
		if caseEvent, err := domain.NewEvent(domain.OpcodeUpdated, domain.EventCaseTasks, domain.NewEventID(a.CaseID)); err == nil {
			s.dispatcher.Dispatch(caseEvent)
		}
	}
	s.signals.HandleTaskAssignment(ctx, a)
	return nil
}

func (s *NotificationService) isolate(handler string, n domain.Notification, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(s.logger.With("handler", handler, "notification", n.String()), r)
		}
	}()
	fn()
}
