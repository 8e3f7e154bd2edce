package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, WithRetryPolicy(fastRetry)), mock, db
}

var eventCols = []string{
	"id", "annotation", "description", "title", "category_id", "initiator_id",
	"lat", "lon", "event_date", "created_on", "published_on", "paid",
	"participant_limit", "request_moderation", "confirmed_requests", "state",
}

var requestCols = []string{"id", "requester_id", "event_id", "created", "status"}

func eventRow(rows *sqlmock.Rows, id int64, state string, publishedOn any) *sqlmock.Rows {
	date := time.Date(2030, 5, 1, 18, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, "annotation text long enough", "description text long enough", "Title", int64(5), int64(1),
		55.75, 37.61, date, date.Add(-72*time.Hour), publishedOn, true,
		int64(10), true, int64(2), state,
	)
}

func TestRepo_Create(t *testing.T) {
	repo, mock, _ := newMockRepo(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	e := &domain.Event{
		Annotation: "a", Description: "d", Title: "t", CategoryID: 5, InitiatorID: 1,
		EventDate: now.Add(48 * time.Hour), CreatedOn: now, RequestModeration: true,
		State: domain.StatePending,
	}

	mock.ExpectQuery("INSERT INTO events").
		WithArgs(
			e.Annotation, e.Description, e.Title, e.CategoryID, e.InitiatorID,
			0.0, 0.0, e.EventDate, e.CreatedOn, nil, false,
			int64(0), true, int64(0), "PENDING",
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))

	require.NoError(t, repo.Create(context.Background(), e))
	assert.Equal(t, int64(17), e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_GetByID(t *testing.T) {
	t.Run("success_mapping", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		pub := time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT (.+) FROM events WHERE id =").
			WithArgs(int64(3)).
			WillReturnRows(eventRow(sqlmock.NewRows(eventCols), 3, "PUBLISHED", pub))

		e, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), e.ID)
		assert.Equal(t, domain.StatePublished, e.State)
		require.NotNil(t, e.PublishedOn)
		assert.Equal(t, pub, *e.PublishedOn)
		assert.Equal(t, int64(2), e.ConfirmedRequests)
		assert.Equal(t, 55.75, e.Location.Lat)
	})

	t.Run("not_found_mapping", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("SELECT").WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

		e, err := repo.GetByID(context.Background(), 9)
		assert.Nil(t, e)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("invalid_state", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("SELECT").
			WillReturnRows(eventRow(sqlmock.NewRows(eventCols), 3, "ARCHIVED", nil))

		_, err := repo.GetByID(context.Background(), 3)
		assert.Error(t, err)
	})
}

func TestRepo_ReadsRetryTransientErrors(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("SELECT").WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectQuery("SELECT").
			WillReturnRows(eventRow(sqlmock.NewRows(eventCols), 3, "PENDING", nil))

		e, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), e.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exhausted_is_unavailable", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		for i := 0; i < 3; i++ {
			mock.ExpectQuery("SELECT EXISTS").WillReturnError(&pq.Error{Code: "08006"})
		}

		_, err := repo.UserExists(context.Background(), 1)
		assert.True(t, domain.IsCode(err, domain.CodeUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("permanent_not_retried", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("SELECT EXISTS").WillReturnError(&pq.Error{Code: "42P01"})

		_, err := repo.CategoryExists(context.Background(), 1)
		assert.Error(t, err)
		assert.False(t, domain.IsCode(err, domain.CodeUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepo_Find(t *testing.T) {
	repo, mock, _ := newMockRepo(t)
	c := domain.NewCriteria().States(domain.StatePublished).Categories([]int64{5})

	mock.ExpectQuery(`SELECT (.+) FROM events WHERE state = ANY\(\$1\) AND category_id = ANY\(\$2\) ORDER BY event_date ASC, id ASC LIMIT \$3 OFFSET \$4`).
		WithArgs(pq.Array([]string{"PUBLISHED"}), pq.Array([]int64{5}), 10, 0).
		WillReturnRows(eventRow(eventRow(sqlmock.NewRows(eventCols), 1, "PUBLISHED", nil), 2, "PUBLISHED", nil))

	got, err := repo.Find(context.Background(), c, domain.Page{}, domain.OrderEventDateAsc)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Requests(t *testing.T) {
	created := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("get", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM requests WHERE id =").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(requestCols).AddRow(int64(4), int64(2), int64(1), created, "PENDING"))

		r, err := repo.GetRequest(context.Background(), 4)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestPending, r.Status)
		assert.Equal(t, created, r.Created)
	})

	t.Run("get_missing", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("SELECT").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetRequest(context.Background(), 4)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("list_by_event", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("FROM requests WHERE event_id=").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(requestCols).
				AddRow(int64(4), int64(2), int64(1), created, "CONFIRMED").
				AddRow(int64(5), int64(3), int64(1), created, "REJECTED"))

		got, err := repo.ListByEvent(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.RequestRejected, got[1].Status)
	})

	t.Run("list_by_requester_empty", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("FROM requests WHERE requester_id=").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(requestCols))

		got, err := repo.ListByRequester(context.Background(), 2)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestRepo_Directory(t *testing.T) {
	repo, mock, _ := newMockRepo(t)
	mock.ExpectQuery("SELECT EXISTS (.+) FROM users").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS (.+) FROM categories").
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.UserExists(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CategoryExists(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, ok)
}
