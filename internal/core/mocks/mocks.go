package mocks

import (
	"context"
	"time"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockPreferenceRepository is a mock implementation of ports.PreferenceRepository
type MockPreferenceRepository struct {
	mock.Mock
}

func NewMockPreferenceRepository() *MockPreferenceRepository {
	return &MockPreferenceRepository{}
}

func (m *MockPreferenceRepository) Get(ctx context.Context, signalType domain.SignalType, owner domain.Target) (*domain.SignalPreference, error) {
	args := m.Called(ctx, signalType, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignalPreference), args.Error(1)
}

func (m *MockPreferenceRepository) ListByOwner(ctx context.Context, owner domain.Target) ([]*domain.SignalPreference, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SignalPreference), args.Error(1)
}

func (m *MockPreferenceRepository) Upsert(ctx context.Context, pref *domain.SignalPreference) (*domain.SignalPreference, error) {
	args := m.Called(ctx, pref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignalPreference), args.Error(1)
}

func (m *MockPreferenceRepository) Delete(ctx context.Context, signalType domain.SignalType, owner domain.Target) error {
	args := m.Called(ctx, signalType, owner)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of ports.LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) Exists(ctx context.Context, key domain.LedgerKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) Insert(ctx context.Context, entry domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) DeleteByKey(ctx context.Context, key domain.LedgerKey) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockSignalRepository is a mock implementation of ports.SignalRepository
type MockSignalRepository struct {
	mock.Mock
}

func NewMockSignalRepository() *MockSignalRepository {
	return &MockSignalRepository{}
}

func (m *MockSignalRepository) Save(ctx context.Context, signal *domain.Signal) (*domain.Signal, error) {
	args := m.Called(ctx, signal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Signal), args.Error(1)
}

func (m *MockSignalRepository) List(ctx context.Context, params ports.ListSignalsParams) ([]*domain.Signal, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Signal), args.Error(1)
}

func (m *MockSignalRepository) Delete(ctx context.Context, params ports.DeleteSignalsParams) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSignalRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockMailQueue is a mock implementation of ports.MailQueue
type MockMailQueue struct {
	mock.Mock
}

func NewMockMailQueue() *MockMailQueue {
	return &MockMailQueue{}
}

func (m *MockMailQueue) Enqueue(ctx context.Context, signal *domain.Signal) error {
	args := m.Called(ctx, signal)
	return args.Error(0)
}

func (m *MockMailQueue) Claim(ctx context.Context, limit int, lease time.Duration) ([]*domain.MailCandidate, error) {
	args := m.Called(ctx, limit, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MailCandidate), args.Error(1)
}

func (m *MockMailQueue) Remove(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMailQueue) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockCaseRegistry is a mock implementation of ports.CaseRegistry
type MockCaseRegistry struct {
	mock.Mock
}

func NewMockCaseRegistry() *MockCaseRegistry {
	return &MockCaseRegistry{}
}

func (m *MockCaseRegistry) ReadRole(ctx context.Context, roleURL string) (*domain.CaseRole, error) {
	args := m.Called(ctx, roleURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CaseRole), args.Error(1)
}

func (m *MockCaseRegistry) ListHandlerRoles(ctx context.Context, caseURL string) ([]*domain.CaseRole, error) {
	args := m.Called(ctx, caseURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CaseRole), args.Error(1)
}

func (m *MockCaseRegistry) ReadCaseDocument(ctx context.Context, caseDocumentURL string) (*domain.CaseDocument, error) {
	args := m.Called(ctx, caseDocumentURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CaseDocument), args.Error(1)
}

// MockDirectory is a mock implementation of ports.Directory
type MockDirectory struct {
	mock.Mock
}

func NewMockDirectory() *MockDirectory {
	return &MockDirectory{}
}

func (m *MockDirectory) User(ctx context.Context, id string) (*domain.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *MockDirectory) Group(ctx context.Context, id string) (*domain.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

// MockMailSender is a mock implementation of ports.MailSender
type MockMailSender struct {
	mock.Mock
}

func NewMockMailSender() *MockMailSender {
	return &MockMailSender{}
}

func (m *MockMailSender) Send(ctx context.Context, to domain.Contact, signal *domain.Signal) error {
	args := m.Called(ctx, to, signal)
	return args.Error(0)
}

// MockTransactionManager runs the function inline unless an error is configured.
type MockTransactionManager struct {
	mock.Mock
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// MockDispatcher is a mock implementation of ports.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Dispatch(event domain.Event) {
	m.Called(event)
}

func (m *MockDispatcher) Shutdown() {
	m.Called()
}

// MockSubscriber is a mock implementation of ports.Subscriber
type MockSubscriber struct {
	mock.Mock
	id string
}

func NewMockSubscriber(id string) *MockSubscriber {
	return &MockSubscriber{id: id}
}

func (m *MockSubscriber) ID() string {
	return m.id
}

func (m *MockSubscriber) Deliver(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockSignalService is a mock implementation of ports.SignalService
type MockSignalService struct {
	mock.Mock
}

func NewMockSignalService() *MockSignalService {
	return &MockSignalService{}
}

func (m *MockSignalService) HandleNotification(ctx context.Context, notification domain.Notification) {
	m.Called(ctx, notification)
}

func (m *MockSignalService) HandleTaskAssignment(ctx context.Context, assignment domain.TaskAssignment) {
	m.Called(ctx, assignment)
}

func (m *MockSignalService) EnqueueCandidate(ctx context.Context, params ports.CandidateParams) (*domain.Signal, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Signal), args.Error(1)
}

func (m *MockSignalService) ListSignals(ctx context.Context, params ports.ListSignalsParams) ([]*domain.Signal, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Signal), args.Error(1)
}

func (m *MockSignalService) DismissSignals(ctx context.Context, params ports.DeleteSignalsParams) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSignalService) Shutdown() {
	m.Called()
}

// MockPreferenceService is a mock implementation of ports.PreferenceService
type MockPreferenceService struct {
	mock.Mock
}

func NewMockPreferenceService() *MockPreferenceService {
	return &MockPreferenceService{}
}

func (m *MockPreferenceService) IsEnabled(ctx context.Context, signalType domain.SignalType, owner domain.Target) (domain.PreferenceSettings, error) {
	args := m.Called(ctx, signalType, owner)
	return args.Get(0).(domain.PreferenceSettings), args.Error(1)
}

func (m *MockPreferenceService) Save(ctx context.Context, pref *domain.SignalPreference) (*domain.SignalPreference, error) {
	args := m.Called(ctx, pref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignalPreference), args.Error(1)
}

func (m *MockPreferenceService) List(ctx context.Context, owner domain.Target) ([]*domain.SignalPreference, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SignalPreference), args.Error(1)
}

// MockNotificationService is a mock implementation of ports.NotificationService
type MockNotificationService struct {
	mock.Mock
}

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) Handle(ctx context.Context, notification domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationService) HandleTaskAssignment(ctx context.Context, assignment domain.TaskAssignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

// MockBatchSignalJob is a mock implementation of ports.BatchSignalJob
type MockBatchSignalJob struct {
	mock.Mock
}

func NewMockBatchSignalJob() *MockBatchSignalJob {
	return &MockBatchSignalJob{}
}

func (m *MockBatchSignalJob) Run(ctx context.Context, count int) (*domain.BatchResult, error) {
	args := m.Called(ctx, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockBatchSignalJob) Forget(ctx context.Context, params ports.CandidateParams) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

// MockRetentionSweeper is a mock implementation of ports.RetentionSweeper
type MockRetentionSweeper struct {
	mock.Mock
}

func NewMockRetentionSweeper() *MockRetentionSweeper {
	return &MockRetentionSweeper{}
}

func (m *MockRetentionSweeper) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRetentionSweeper) PurgeDashboard(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}
