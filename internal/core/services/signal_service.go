package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

const defaultSignalPageSize = 25

// SignalServiceConfig configures the background signal worker.
type SignalServiceConfig struct {
	Queue QueueConfig
	// Timeout bounds the registry lookups made for one trigger.
	Timeout time.Duration
}

// signalTrigger is one observed mutation waiting to be turned into signals.
type signalTrigger struct {
	notification *domain.Notification
	assignment   *domain.TaskAssignment
}

// SignalService raises signals for observed mutations, stores dashboard
// signals and queues mail candidates.
type SignalService struct {
	factory    ports.SignalFactory
	prefs      ports.PreferenceService
	signals    ports.SignalRepository
	mailQueue  ports.MailQueue
	cases      ports.CaseRegistry
	dispatcher ports.Dispatcher
	timeout    time.Duration
	queue      *delayedQueue[signalTrigger]
	logger     *slog.Logger
}

var _ ports.SignalService = (*SignalService)(nil)

// NewSignalService starts the signal workers.
func NewSignalService(
	factory ports.SignalFactory,
	prefs ports.PreferenceService,
	signals ports.SignalRepository,
	mailQueue ports.MailQueue,
	cases ports.CaseRegistry,
	dispatcher ports.Dispatcher,
	cfg SignalServiceConfig,
	logger *slog.Logger,
) *SignalService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &SignalService{
		factory:    factory,
		prefs:      prefs,
		signals:    signals,
		mailQueue:  mailQueue,
		cases:      cases,
		dispatcher: dispatcher,
		timeout:    cfg.Timeout,
		logger:     logger.With("component", "signal_service"),
	}
	s.queue = newDelayedQueue(cfg.Queue, s.logger, s.process)
	return s
}

// HandleNotification queues a registry notification for signal processing.
func (s *SignalService) HandleNotification(ctx context.Context, notification domain.Notification) {
	if !raisesSignal(notification) {
		return
	}
	if !s.queue.push(signalTrigger{notification: &notification}) {
		s.logger.WarnContext(ctx, "signal trigger dropped", "notification", notification.String())
	}
}

// HandleTaskAssignment queues a task assignment for signal processing.
func (s *SignalService) HandleTaskAssignment(ctx context.Context, assignment domain.TaskAssignment) {
	if !s.queue.push(signalTrigger{assignment: &assignment}) {
		s.logger.WarnContext(ctx, "signal trigger dropped", "task_id", assignment.TaskID)
	}
}

// EnqueueCandidate builds a signal raised outside the notification flow,
// such as a due-date warning, and delivers it right away.
func (s *SignalService) EnqueueCandidate(ctx context.Context, params ports.CandidateParams) (*domain.Signal, error) {
	signal, err := s.factory.Build(params.Type, params.Target, params.Subject, params.Detail)
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, signal, ""); err != nil {
		return nil, err
	}
	return signal, nil
}

// ListSignals returns dashboard signals, newest first.
func (s *SignalService) ListSignals(ctx context.Context, params ports.ListSignalsParams) ([]*domain.Signal, error) {
	if params.Limit <= 0 {
		params.Limit = defaultSignalPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.signals.List(ctx, params)
}

// DismissSignals removes dashboard signals and tells the target's open
// dashboards to refresh.
func (s *SignalService) DismissSignals(ctx context.Context, params ports.DeleteSignalsParams) (int64, error) {
	removed, err := s.signals.Delete(ctx, params)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.dispatcher.Dispatch(domain.SignalTargetsEvent(params.Target, params.Type))
	}
	return removed, nil
}

// Shutdown finishes queued triggers and stops the workers.
func (s *SignalService) Shutdown() {
	s.queue.shutdown()
}

func (s *SignalService) process(trigger signalTrigger) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	switch {
	case trigger.notification != nil:
		s.processNotification(ctx, *trigger.notification)
	case trigger.assignment != nil:
		s.processAssignment(ctx, *trigger.assignment)
	}
}

// raisesSignal filters notifications that can never produce a signal
// before they take up queue space.
func raisesSignal(n domain.Notification) bool {
	if n.Channel != domain.ChannelCases {
		return false
	}
	if n.Resource != domain.ResourceRole && n.Resource != domain.ResourceCaseDocument {
		return false
	}
	action, err := domain.ParseAction(n.Action)
	return err == nil && action == domain.ActionCreate
}

func (s *SignalService) processNotification(ctx context.Context, n domain.Notification) {
	main, resource, err := n.Resources()
	if err != nil || resource.Action != domain.ActionCreate {
		return
	}

	var signal *domain.Signal
	switch resource.Type {
	case domain.ResourceRole:
		signal, err = s.caseAssigned(ctx, main, resource)
	case domain.ResourceCaseDocument:
		signal, err = s.caseDocumentAdded(ctx, main, resource)
	default:
		return
	}
	if err != nil {
		s.logger.Warn("signal not raised", "notification", n.String(), "error", err)
		return
	}
	if signal == nil {
		return
	}

	if err := s.deliver(ctx, signal, ""); err != nil {
		s.logger.Error("signal delivery failed", "notification", n.String(), "error", err)
	}
}

// caseAssigned signals the new handler of a case. A group is only signalled
// when no user handles the case.
func (s *SignalService) caseAssigned(ctx context.Context, main, resource domain.ResourceInfo) (*domain.Signal, error) {
	role, err := s.cases.ReadRole(ctx, resource.URL)
	if err != nil {
		return nil, fmt.Errorf("read role: %w", err)
	}
	if !role.IsHandler() {
		return nil, nil
	}

	if role.UserID == "" {
		if role.GroupID == "" {
			return nil, nil
		}
		handler, err := s.userHandler(ctx, main.URL)
		if err != nil {
			return nil, err
		}
		if handler != nil {
			return nil, nil
		}
	}

	return s.factory.Build(domain.SignalCaseAssigned, role.Target(), domain.CaseSubject(main.ID()), "")
}

// caseDocumentAdded signals the user handling a case about a new document.
func (s *SignalService) caseDocumentAdded(ctx context.Context, main, resource domain.ResourceInfo) (*domain.Signal, error) {
	handler, err := s.userHandler(ctx, main.URL)
	if err != nil || handler == nil {
		return nil, err
	}

	link, err := s.cases.ReadCaseDocument(ctx, resource.URL)
	if err != nil {
		return nil, fmt.Errorf("read case document: %w", err)
	}

	return s.factory.Build(
		domain.SignalCaseDocumentAdded,
		domain.UserTarget(handler.UserID),
		domain.CaseSubject(main.ID()),
		link.DocumentID,
	)
}

func (s *SignalService) userHandler(ctx context.Context, caseURL string) (*domain.CaseRole, error) {
	roles, err := s.cases.ListHandlerRoles(ctx, caseURL)
	if err != nil {
		return nil, fmt.Errorf("list handler roles: %w", err)
	}
	for _, r := range roles {
		if r.IsHandler() && r.UserID != "" {
			return r, nil
		}
	}
	return nil, nil
}

func (s *SignalService) processAssignment(ctx context.Context, a domain.TaskAssignment) {
	target := a.Recipient()
	if target.IsZero() {
		return
	}

	signal, err := s.factory.Build(domain.SignalTaskAssigned, target, domain.TaskSubject(a.TaskID), "")
	if err != nil {
		s.logger.Warn("signal not raised", "task_id", a.TaskID, "error", err)
		return
	}
	if err := s.deliver(ctx, signal, a.EffectiveActor()); err != nil {
		s.logger.Error("signal delivery failed", "task_id", a.TaskID, "error", err)
	}
}

// deliver applies the target's preferences to signal. Dashboard signals are
// stored and announced immediately; every signal becomes a mail candidate,
// the batch job decides whether it is actually mailed.
func (s *SignalService) deliver(ctx context.Context, signal *domain.Signal, actor string) error {
	if !isNecessary(signal, actor) {
		return nil
	}

	settings, err := s.prefs.IsEnabled(ctx, signal.Type, signal.Target)
	if err != nil {
		return err
	}

	if settings.Dashboard && signal.Type.HasDashboard() {
		if _, err := s.signals.Save(ctx, signal); err != nil {
			return fmt.Errorf("store signal: %w", err)
		}
		s.dispatcher.Dispatch(domain.SignalTargetsEvent(signal.Target, signal.Type))
	}

	if settings.Mail {
		if err := s.mailQueue.Enqueue(ctx, signal); err != nil {
			return fmt.Errorf("queue mail: %w", err)
		}
	}

	s.logger.Debug("signal raised",
		"type", signal.Type,
		"target", signal.Target.String(),
		"subject", signal.Subject.ID,
	)
	return nil
}

// isNecessary reports whether anyone needs to hear about signal. Users are
// not signalled about their own actions.
func isNecessary(signal *domain.Signal, actor string) bool {
	return signal.Target.Kind != domain.TargetUser || actor == "" || signal.Target.ID != actor
}
