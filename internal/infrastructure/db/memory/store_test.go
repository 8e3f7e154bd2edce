package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func seedEvent(t *testing.T, s *Store, mut func(*domain.Event)) *domain.Event {
	t.Helper()
	e := &domain.Event{
		Title:       "seeded",
		CategoryID:  1,
		InitiatorID: 1,
		EventDate:   base,
		State:       domain.StatePublished,
	}
	if mut != nil {
		mut(e)
	}
	require.NoError(t, s.Create(context.Background(), e))
	return e
}

func TestStore_GetByID_NotFound(t *testing.T) {
	s := New()
	_, err := s.GetByID(context.Background(), 42)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestStore_GetByID_ReturnsCopy(t *testing.T) {
	s := New()
	e := seedEvent(t, s, nil)

	got, err := s.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	got.Title = "mutated"

	again, _ := s.GetByID(context.Background(), e.ID)
	assert.Equal(t, "seeded", again.Title)
}

func TestStore_Find_OrderAndPage(t *testing.T) {
	s := New()
	late := seedEvent(t, s, func(e *domain.Event) { e.EventDate = base.Add(48 * time.Hour) })
	early := seedEvent(t, s, func(e *domain.Event) { e.EventDate = base.Add(24 * time.Hour) })
	seedEvent(t, s, func(e *domain.Event) { e.State = domain.StatePending })

	c := domain.NewCriteria().States(domain.StatePublished)

	got, err := s.Find(context.Background(), c, domain.Page{Size: 10}, domain.OrderEventDateAsc)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)

	got, err = s.Find(context.Background(), c, domain.Page{From: 1, Size: 10}, domain.OrderNatural)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, early.ID, got[0].ID)

	got, err = s.Find(context.Background(), c, domain.Page{From: 5, Size: 10}, domain.OrderNatural)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithTx_CommitAppliesStagedWrites(t *testing.T) {
	s := New()
	e := seedEvent(t, s, nil)
	ctx := context.Background()

	var reqID int64
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetEventForUpdate(ctx, e.ID); err != nil {
			return err
		}
		r := &domain.ParticipationRequest{RequesterID: 2, EventID: e.ID, Created: base, Status: domain.RequestConfirmed}
		if err := tx.InsertRequest(ctx, r); err != nil {
			return err
		}
		reqID = r.ID

		n, err := tx.CountConfirmed(ctx, e.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), n)

		if err := tx.SetConfirmedRequests(ctx, e.ID, n); err != nil {
			return err
		}
		return tx.InsertOutbox(ctx, contracts.OutboxMessage{MessageID: "m1", RoutingKey: contracts.RKRequestCreated})
	})
	require.NoError(t, err)

	got, _ := s.GetByID(ctx, e.ID)
	assert.Equal(t, int64(1), got.ConfirmedRequests)

	r, err := s.GetRequest(ctx, reqID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestConfirmed, r.Status)
	assert.Len(t, s.Outbox(), 1)
}

func TestWithTx_ErrorDiscardsWrites(t *testing.T) {
	s := New()
	e := seedEvent(t, s, nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		ev, _ := tx.GetEventForUpdate(ctx, e.ID)
		ev.Title = "changed"
		_ = tx.UpdateEvent(ctx, ev)
		_ = tx.InsertRequest(ctx, &domain.ParticipationRequest{RequesterID: 2, EventID: e.ID, Status: domain.RequestPending})
		_ = tx.InsertOutbox(ctx, contracts.OutboxMessage{MessageID: "m1"})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.GetByID(ctx, e.ID)
	assert.Equal(t, "seeded", got.Title)
	reqs, _ := s.ListByEvent(ctx, e.ID)
	assert.Empty(t, reqs)
	assert.Empty(t, s.Outbox())
}

func TestWithTx_CanceledContextRollsBack(t *testing.T) {
	s := New()
	e := seedEvent(t, s, nil)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithTx(ctx, func(tx store.Tx) error {
		ev, _ := tx.GetEventForUpdate(ctx, e.ID)
		ev.Title = "changed"
		cancel()
		return tx.UpdateEvent(ctx, ev)
	})
	assert.ErrorIs(t, err, context.Canceled)

	got, _ := s.GetByID(context.Background(), e.ID)
	assert.Equal(t, "seeded", got.Title)
}

func TestWithTx_EventLockSerializes(t *testing.T) {
	s := New()
	e := seedEvent(t, s, nil)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.WithTx(ctx, func(tx store.Tx) error {
			_, _ = tx.GetEventForUpdate(ctx, e.ID)
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	go func() {
		defer close(done)
		_ = s.WithTx(ctx, func(tx store.Tx) error {
			_, err := tx.GetEventForUpdate(ctx, e.ID)
			return err
		})
	}()

	select {
	case <-done:
		t.Fatal("second unit acquired a held event lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second unit never acquired the lock")
	}
}

func TestWithTx_LockWaitHonorsDeadline(t *testing.T) {
	s := New()
	e := seedEvent(t, s, nil)

	release := make(chan struct{})
	locked := make(chan struct{})
	go func() {
		_ = s.WithTx(context.Background(), func(tx store.Tx) error {
			_, _ = tx.GetEventForUpdate(context.Background(), e.ID)
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.GetEventForUpdate(ctx, e.ID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTx_FindActiveRequest_IgnoresCanceled(t *testing.T) {
	s := New()
	e := seedEvent(t, s, nil)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertRequest(ctx, &domain.ParticipationRequest{RequesterID: 7, EventID: e.ID, Status: domain.RequestCanceled})
	}))

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		r, err := tx.FindActiveRequest(ctx, 7, e.ID)
		assert.Nil(t, r)
		return err
	}))
}

func TestTx_GetRequestsForUpdate_ScopedToEvent(t *testing.T) {
	s := New()
	a := seedEvent(t, s, nil)
	b := seedEvent(t, s, nil)
	ctx := context.Background()

	var ids []int64
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		for _, ev := range []int64{a.ID, b.ID} {
			r := &domain.ParticipationRequest{RequesterID: 9, EventID: ev, Status: domain.RequestPending}
			if err := tx.InsertRequest(ctx, r); err != nil {
				return err
			}
			ids = append(ids, r.ID)
		}
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		got, err := tx.GetRequestsForUpdate(ctx, a.ID, ids)
		require.Len(t, got, 1)
		assert.Equal(t, ids[0], got[0].ID)
		return err
	}))
}

func TestDirectory(t *testing.T) {
	s := New()
	s.AddUser(1)
	s.AddCategory(5)
	ctx := context.Background()

	ok, _ := s.UserExists(ctx, 1)
	assert.True(t, ok)
	ok, _ = s.UserExists(ctx, 2)
	assert.False(t, ok)
	ok, _ = s.CategoryExists(ctx, 5)
	assert.True(t, ok)
}
