package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// uniqueUser keeps tests that share the database apart.
func uniqueUser() domain.Target {
	return domain.UserTarget("user-" + uuid.NewString())
}

func caseSignal(t *testing.T, signalType domain.SignalType, target domain.Target, caseID, detail string) *domain.Signal {
	t.Helper()
	signal, err := domain.NewSignal(signalType, target)
	require.NoError(t, err)
	require.NoError(t, signal.SetSubject(domain.CaseSubject(caseID)))
	require.NoError(t, signal.SetDetail(detail))
	return signal
}

func TestPreferenceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPreferenceRepository(testPool)
	user := uniqueUser()
	group := domain.GroupTarget("group-" + uuid.NewString())

	_, err := repo.Get(ctx, domain.SignalCaseAssigned, user)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	saved, err := repo.Upsert(ctx, &domain.SignalPreference{Type: domain.SignalCaseAssigned, UserID: user.ID, Mail: true})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	// Same owner and type replaces the flags.
	updated, err := repo.Upsert(ctx, &domain.SignalPreference{Type: domain.SignalCaseAssigned, UserID: user.ID, Dashboard: true})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.True(t, updated.Dashboard)
	assert.False(t, updated.Mail)

	// A group preference for the same type is a row of its own.
	_, err = repo.Upsert(ctx, &domain.SignalPreference{Type: domain.SignalCaseAssigned, GroupID: group.ID, Mail: true})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &domain.SignalPreference{Type: domain.SignalTaskAssigned, UserID: user.ID, Mail: true})
	require.NoError(t, err)

	found, err := repo.Get(ctx, domain.SignalCaseAssigned, user)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)
	assert.Empty(t, found.GroupID)
	assert.True(t, found.Dashboard)

	list, err := repo.ListByOwner(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.SignalCaseAssigned, list[0].Type)
	assert.Equal(t, domain.SignalTaskAssigned, list[1].Type)

	require.NoError(t, repo.Delete(ctx, domain.SignalCaseAssigned, user))
	assert.ErrorIs(t, repo.Delete(ctx, domain.SignalCaseAssigned, user), apperrors.ErrNotFound)

	groupPref, err := repo.Get(ctx, domain.SignalCaseAssigned, group)
	require.NoError(t, err)
	assert.Equal(t, group.ID, groupPref.GroupID)
}

func TestPreferenceRepository_RejectsTwoOwners(t *testing.T) {
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO signal_preference (type, group_id, user_id, mail) VALUES ('CASE_ASSIGNED', 'g', 'u', TRUE)`)

	assert.Error(t, err)
}

func TestLedgerRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(testPool)
	user := uniqueUser()

	fatal := caseSignal(t, domain.SignalCaseDue, user, "zaak-1", domain.DetailFatalDate).Key()
	target := caseSignal(t, domain.SignalCaseDue, user, "zaak-1", domain.DetailTargetDate).Key()
	plain := caseSignal(t, domain.SignalCaseAssigned, user, "zaak-1", "").Key()

	exists, err := repo.Exists(ctx, fatal)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Insert(ctx, domain.NewLedgerEntry(fatal)))
	require.NoError(t, repo.Insert(ctx, domain.NewLedgerEntry(plain)))

	exists, err = repo.Exists(ctx, fatal)
	require.NoError(t, err)
	assert.True(t, exists)

	// The detail is part of the key.
	exists, err = repo.Exists(ctx, target)
	require.NoError(t, err)
	assert.False(t, exists)

	// An empty detail matches the stored NULL.
	exists, err = repo.Exists(ctx, plain)
	require.NoError(t, err)
	assert.True(t, exists)

	// Recording a key again keeps a single entry.
	require.NoError(t, repo.Insert(ctx, domain.NewLedgerEntry(fatal)))

	removed, err := repo.DeleteByKey(ctx, fatal)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	exists, err = repo.Exists(ctx, fatal)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLedgerRepository_PurgeOlderThan(t *testing.T) {
	truncate(t, "signal_sent_ledger")
	ctx := context.Background()
	repo := NewLedgerRepository(testPool)
	user := uniqueUser()
	now := time.Now().UTC()

	old := caseSignal(t, domain.SignalCaseAssigned, user, "zaak-old", "").Key()
	fresh := caseSignal(t, domain.SignalCaseAssigned, user, "zaak-new", "").Key()
	require.NoError(t, repo.Insert(ctx, domain.LedgerEntry{Key: old, SentAt: now.AddDate(0, 0, -30)}))
	require.NoError(t, repo.Insert(ctx, domain.LedgerEntry{Key: fresh, SentAt: now.AddDate(0, 0, -1)}))

	cutoff := now.AddDate(0, 0, -14)
	removed, err := repo.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = repo.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, removed, "a second purge finds nothing left to remove")

	exists, err := repo.Exists(ctx, old)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.Exists(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSignalRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSignalRepository(testPool)
	user := uniqueUser()

	first := caseSignal(t, domain.SignalCaseAssigned, user, "zaak-1", "")
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	saved, err := repo.Save(ctx, first)
	require.NoError(t, err)

	second := caseSignal(t, domain.SignalCaseDocumentAdded, user, "zaak-2", "doc-1")
	_, err = repo.Save(ctx, second)
	require.NoError(t, err)

	// Saving an identical signal moves it to the top instead of adding a row.
	again := caseSignal(t, domain.SignalCaseAssigned, user, "zaak-1", "")
	again.CreatedAt = time.Now().UTC().Add(time.Minute)
	resaved, err := repo.Save(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, resaved.ID)

	all, err := repo.List(ctx, ports.ListSignalsParams{Target: user, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.SignalCaseAssigned, all[0].Type)
	assert.Equal(t, "doc-1", all[1].Detail)

	byType, err := repo.List(ctx, ports.ListSignalsParams{
		Target: user,
		Types:  []domain.SignalType{domain.SignalCaseDocumentAdded},
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "zaak-2", byType[0].Subject.ID)

	paged, err := repo.List(ctx, ports.ListSignalsParams{Target: user, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, domain.SignalCaseDocumentAdded, paged[0].Type)

	removed, err := repo.Delete(ctx, ports.DeleteSignalsParams{Target: user, Type: domain.SignalCaseAssigned, Subject: "zaak-9"})
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = repo.Delete(ctx, ports.DeleteSignalsParams{Target: user, Type: domain.SignalCaseAssigned})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	others, err := repo.List(ctx, ports.ListSignalsParams{Target: uniqueUser(), Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestSignalRepository_PurgeOlderThan(t *testing.T) {
	truncate(t, "signal")
	ctx := context.Background()
	repo := NewSignalRepository(testPool)
	user := uniqueUser()

	old := caseSignal(t, domain.SignalCaseAssigned, user, "zaak-old", "")
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -20)
	_, err := repo.Save(ctx, old)
	require.NoError(t, err)
	_, err = repo.Save(ctx, caseSignal(t, domain.SignalCaseAssigned, user, "zaak-new", ""))
	require.NoError(t, err)

	cutoff := time.Now().UTC().AddDate(0, 0, -14)
	removed, err := repo.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = repo.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, removed)

	left, err := repo.List(ctx, ports.ListSignalsParams{Target: user, Limit: 10})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "zaak-new", left[0].Subject.ID)
}

func TestMailQueueRepository(t *testing.T) {
	truncate(t, "signal_mail_queue")
	ctx := context.Background()
	repo := NewMailQueueRepository(testPool)
	user := uniqueUser()

	for _, caseID := range []string{"zaak-1", "zaak-2", "zaak-3"} {
		require.NoError(t, repo.Enqueue(ctx, caseSignal(t, domain.SignalCaseDue, user, caseID, domain.DetailTargetDate)))
	}

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	claimed, err := repo.Claim(ctx, 2, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "zaak-1", claimed[0].Signal.Subject.ID)
	assert.Equal(t, "zaak-2", claimed[1].Signal.Subject.ID)
	assert.Equal(t, domain.DetailTargetDate, claimed[0].Signal.Detail)
	assert.Equal(t, user, claimed[0].Signal.Target)

	// Claimed candidates are not handed out again while the lease runs.
	rest, err := repo.Claim(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "zaak-3", rest[0].Signal.Subject.ID)

	none, err := repo.Claim(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.Remove(ctx, claimed[0].ID))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "claimed candidates stay queued until removed")
}

func TestMailQueueRepository_ExpiredClaim(t *testing.T) {
	truncate(t, "signal_mail_queue")
	ctx := context.Background()
	repo := NewMailQueueRepository(testPool)

	require.NoError(t, repo.Enqueue(ctx, caseSignal(t, domain.SignalCaseDue, uniqueUser(), "zaak-1", domain.DetailFatalDate)))

	first, err := repo.Claim(ctx, 10, -time.Second)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A run that died leaves a lease that has run out.
	again, err := repo.Claim(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[0].ID, again[0].ID)
}

func TestMailQueueRepository_ConcurrentClaims(t *testing.T) {
	truncate(t, "signal_mail_queue")
	ctx := context.Background()
	repo := NewMailQueueRepository(testPool)
	user := uniqueUser()

	for i := 0; i < 20; i++ {
		caseID := fmt.Sprintf("zaak-%02d", i)
		require.NoError(t, repo.Enqueue(ctx, caseSignal(t, domain.SignalCaseAssigned, user, caseID, "")))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]int{}
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := repo.Claim(ctx, 10, time.Minute)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			for _, c := range claimed {
				seen[c.ID]++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 20)
	for id, n := range seen {
		assert.Equal(t, 1, n, "candidate %d claimed by more than one run", id)
	}
}

func TestTransactionManager(t *testing.T) {
	ctx := context.Background()
	tm := NewTransactionManager(testPool)
	ledger := NewLedgerRepository(testPool)
	user := uniqueUser()
	key := domain.LedgerKey{
		Type:        domain.SignalTaskDue,
		TargetKind:  user.Kind,
		Target:      user.ID,
		SubjectKind: domain.SubjectTask,
		Subject:     "task-1",
	}

	errBoom := errors.New("boom")
	err := tm.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, ledger.Insert(ctx, domain.NewLedgerEntry(key)))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	exists, err := ledger.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists, "rolled back insert must not be visible")

	err = tm.WithTransaction(ctx, func(ctx context.Context) error {
		return ledger.Insert(ctx, domain.NewLedgerEntry(key))
	})
	require.NoError(t, err)

	exists, err = ledger.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)
}
