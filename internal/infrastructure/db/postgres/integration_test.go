//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/admission"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/migrations"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if _, err := testcontainers.NewDockerClientWithOpts(ctx); err != nil {
		t.Skipf("Skipping integration test because Docker is unavailable: %v", err)
	}

	pg, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:17"),
		tcpostgres.WithDatabase("ewm"),
		tcpostgres.WithUsername("ewm"),
		tcpostgres.WithPassword("ewm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(20)

	require.NoError(t, migrations.Apply(ctx, db))
	return db
}

func seedUsers(t *testing.T, db *sql.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := db.Exec(`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`,
			i, "user", fmt.Sprintf("u%d@example.com", i))
		require.NoError(t, err)
	}
	_, err := db.Exec(`INSERT INTO categories (id, name) VALUES (5, 'concerts')`)
	require.NoError(t, err)
}

func TestIntegration_ConcurrentSubmitRespectsLimit(t *testing.T) {
	db := setupDB(t)
	seedUsers(t, db, 25)
	ctx := context.Background()
	repo := New(db)

	ev := &domain.Event{
		Annotation: "integration annotation", Description: "integration description",
		Title: "Integration", CategoryID: 5, InitiatorID: 1,
		EventDate: time.Now().UTC().Add(72 * time.Hour), CreatedOn: time.Now().UTC(),
		ParticipantLimit: 3, RequestModeration: false, State: domain.StatePublished,
	}
	require.NoError(t, repo.Create(ctx, ev))

	svc := admission.New(repo, repo, repo, wallClock{})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
		full      int
	)
	for u := int64(2); u <= 21; u++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := svc.Submit(ctx, user, ev.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				confirmed++
			} else if domain.IsCapacityExhausted(err) {
				full++
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 3, confirmed)
	assert.Equal(t, 17, full)

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ConfirmedRequests)

	var outbox int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM event_outbox`).Scan(&outbox))
	assert.Equal(t, 3, outbox)
}

func TestIntegration_ActiveRequestIndex(t *testing.T) {
	db := setupDB(t)
	seedUsers(t, db, 3)
	ctx := context.Background()
	repo := New(db)

	ev := &domain.Event{
		Annotation: "integration annotation", Description: "integration description",
		Title: "Integration", CategoryID: 5, InitiatorID: 1,
		EventDate: time.Now().UTC().Add(72 * time.Hour), CreatedOn: time.Now().UTC(),
		State: domain.StatePublished,
	}
	require.NoError(t, repo.Create(ctx, ev))

	insert := func() error {
		return repo.WithTx(ctx, func(tx store.Tx) error {
			return tx.InsertRequest(ctx, &domain.ParticipationRequest{
				RequesterID: 2, EventID: ev.ID, Created: time.Now().UTC(), Status: domain.RequestPending,
			})
		})
	}
	require.NoError(t, insert())
	err := insert()
	assert.True(t, domain.IsCode(err, domain.CodeConflict))
}
