//go:build container

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
)

func setupPostgres(t *testing.T) *PostgresRepository {
	t.Helper()

	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "hotel",
			"POSTGRES_PASSWORD": "hotel",
			"POSTGRES_DB":       "hotel",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://hotel:hotel@%s:%s/hotel?sslmode=disable", host, port.Port())
	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seed(t *testing.T, repo *PostgresRepository) (memberID, roomID int64) {
	t.Helper()
	ctx := context.Background()

	memberID, err := repo.CreateMember(ctx, "guest@example.com", "0912345678", []byte("hash"))
	require.NoError(t, err)

	roomID, err = repo.CreateRoom(ctx, model.Room{Name: "Deluxe", PriceCents: 250000, Capacity: 2, Active: true})
	require.NoError(t, err)

	return memberID, roomID
}

func newOrder(memberID, roomID int64, start, end string) model.Order {
	return model.Order{
		RoomID:     roomID,
		MemberID:   memberID,
		OrderedAt:  time.Now().UTC(),
		StartDate:  day(start),
		EndDate:    day(end),
		TotalCents: 250000,
	}
}

func TestPostgres_CreateOrderOverlap(t *testing.T) {
	repo := setupPostgres(t)
	memberID, roomID := seed(t, repo)
	ctx := context.Background()

	_, err := repo.CreateOrder(ctx, newOrder(memberID, roomID, "2024-06-01", "2024-06-03"))
	require.NoError(t, err)

	_, err = repo.CreateOrder(ctx, newOrder(memberID, roomID, "2024-06-03", "2024-06-05"))
	require.NoError(t, err, "adjacent stay must be accepted")

	_, err = repo.CreateOrder(ctx, newOrder(memberID, roomID, "2024-06-02", "2024-06-04"))
	assert.ErrorIs(t, err, ErrRoomUnavailable)

	_, err = repo.CreateOrder(ctx, newOrder(memberID, roomID, "2024-06-04", "2024-06-04"))
	assert.ErrorIs(t, err, ErrRoomUnavailable, "same-day stay occupies one night")

	orders, err := repo.ListOrdersByRoom(ctx, roomID, true)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestPostgres_ExclusionConstraintIgnoresCancelled(t *testing.T) {
	repo := setupPostgres(t)
	memberID, roomID := seed(t, repo)
	ctx := context.Background()

	first, err := repo.CreateOrder(ctx, newOrder(memberID, roomID, "2024-07-01", "2024-07-05"))
	require.NoError(t, err)
	require.NoError(t, repo.CancelOrder(ctx, first.ID, false))

	_, err = repo.CreateOrder(ctx, newOrder(memberID, roomID, "2024-07-02", "2024-07-04"))
	require.NoError(t, err)

	// прямой INSERT в обход проверки в транзакции должен упереться в ограничение схемы
	_, err = repo.pool.Exec(ctx,
		`INSERT INTO orders (room_id, member_id, start_date, end_date, total_cents) VALUES ($1, $2, $3, $4, 1)`,
		roomID, memberID, day("2024-07-03"), day("2024-07-06"),
	)
	require.Error(t, err)
	assert.True(t, hasPgCode(err, "23P01"), "expected exclusion violation, got %v", err)
}

func TestPostgres_ConcurrentCreateOrder(t *testing.T) {
	repo := setupPostgres(t)
	memberID, roomID := seed(t, repo)
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := day("2024-08-01").AddDate(0, 0, i%2)
			o := newOrder(memberID, roomID, start.Format(model.DateLayout), "2024-08-10")
			_, err := repo.CreateOrder(ctx, o)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrRoomUnavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestPostgres_CancelAndCheckout(t *testing.T) {
	repo := setupPostgres(t)
	memberID, roomID := seed(t, repo)
	ctx := context.Background()

	a, err := repo.CreateOrder(ctx, newOrder(memberID, roomID, "2024-09-01", "2024-09-02"))
	require.NoError(t, err)
	b, err := repo.CreateOrder(ctx, newOrder(memberID, roomID, "2024-09-05", "2024-09-07"))
	require.NoError(t, err)

	require.NoError(t, repo.CancelOrder(ctx, a.ID, true))
	assert.ErrorIs(t, repo.CancelOrder(ctx, a.ID, true), ErrOrderAlreadyCancelled)

	paid, err := repo.CheckoutCart(ctx, memberID)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, b.ID, paid[0].ID)
	assert.True(t, paid[0].Paid)

	again, err := repo.CheckoutCart(ctx, memberID)
	require.NoError(t, err)
	assert.Empty(t, again)

	assert.ErrorIs(t, repo.CancelOrder(ctx, b.ID, true), ErrOrderPaid)
	assert.NoError(t, repo.CancelOrder(ctx, b.ID, false))
}

func TestPostgres_MembersAndRooms(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	_, err := repo.CreateMember(ctx, "dup@example.com", "0912345678", []byte("x"))
	require.NoError(t, err)
	_, err = repo.CreateMember(ctx, "dup@example.com", "0912345679", []byte("y"))
	assert.ErrorIs(t, err, ErrMemberExists)

	_, err = repo.GetMemberByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	id, err := repo.CreateRoom(ctx, model.Room{Name: "Garden Suite", PriceCents: 100, Capacity: 2, Active: true})
	require.NoError(t, err)
	_, err = repo.CreateRoom(ctx, model.Room{Name: "Attic", PriceCents: 100, Capacity: 1, Active: false})
	require.NoError(t, err)

	active, err := repo.ListActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)

	inactive := false
	page, err := repo.SearchRooms(ctx, model.RoomFilter{Active: &inactive, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Attic", page.Rooms[0].Name)

	page, err = repo.SearchRooms(ctx, model.RoomFilter{Keyword: "suite", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	assert.ErrorIs(t, repo.UpdateRoom(ctx, model.Room{ID: 999, Name: "x", PriceCents: 1, Capacity: 1}), ErrRoomNotFound)
}
