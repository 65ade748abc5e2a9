package tickets_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/tickets"
	"github.com/eventium/eventium/pkg/metrics"
)

// fakePoolRepo mimics the database's behavior under the inventory
// controller: reads return a snapshot, and the decrement is atomic with its
// own stock check, exactly like the guarded UPDATE.
type fakePoolRepo struct {
	mu   sync.Mutex
	pool *model.TicketPool
}

func (r *fakePoolRepo) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *fakePoolRepo) Create(ctx context.Context, pool *model.TicketPool) error {
	r.pool = pool
	return nil
}

func (r *fakePoolRepo) Get(ctx context.Context, id uuid.UUID) (*model.TicketPool, error) {
	return r.GetForUpdate(ctx, nil, id)
}

func (r *fakePoolRepo) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.TicketPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := *r.pool
	snapshot.ClearEvents()
	return &snapshot, nil
}

func (r *fakePoolRepo) DecrementAvailable(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool.AvailableQuantity < qty {
		return model.ErrInsufficientStock
	}
	r.pool.AvailableQuantity -= qty
	return nil
}

type captureOutbox struct {
	mu   sync.Mutex
	msgs []*model.Message
}

func (o *captureOutbox) Begin(ctx context.Context) (*sqlx.Tx, error) { return nil, nil }

func (o *captureOutbox) Commit(tx *sqlx.Tx) error { return nil }

func (o *captureOutbox) Rollback(tx *sqlx.Tx) error { return nil }

func (o *captureOutbox) Insert(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *captureOutbox) InsertIfAbsent(ctx context.Context, msg *model.Message) error {
	return o.Insert(ctx, nil, msg)
}

func (o *captureOutbox) FetchPending(ctx context.Context, limit int) ([]*model.Message, error) {
	return nil, nil
}

func (o *captureOutbox) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (o *captureOutbox) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return nil
}

func (o *captureOutbox) HasMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, h string) (bool, error) {
	return false, nil
}

func (o *captureOutbox) InsertMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, h string) error {
	return nil
}

func newTestInventory(available int) (*tickets.Inventory, *fakePoolRepo, *captureOutbox) {
	repo := &fakePoolRepo{pool: &model.TicketPool{
		ID:                uuid.New(),
		ShowID:            uuid.New(),
		Name:              "general",
		UnitPrice:         2500,
		TotalQuantity:     available,
		AvailableQuantity: available,
	}}
	outbox := &captureOutbox{}
	inv := tickets.NewInventory(repo, mailbox.NewCapture(outbox),
		metrics.NewWithRegisterer("test", prometheus.NewRegistry()))
	return inv, repo, outbox
}

func TestAcquireAndDecrement(t *testing.T) {
	inv, repo, _ := newTestInventory(10)

	pool, err := inv.AcquireAndDecrement(context.Background(), nil, repo.pool.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, pool.AvailableQuantity)
	assert.Equal(t, 7, repo.pool.AvailableQuantity)
}

func TestAcquireAndDecrementInsufficientStock(t *testing.T) {
	inv, repo, outbox := newTestInventory(2)

	_, err := inv.AcquireAndDecrement(context.Background(), nil, repo.pool.ID, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInsufficientStock))
	assert.Equal(t, 2, repo.pool.AvailableQuantity, "a rejected purchase must not touch stock")
	assert.Empty(t, outbox.msgs)
}

func TestAcquireAndDecrementRaisesSoldOutAtZero(t *testing.T) {
	inv, repo, outbox := newTestInventory(5)

	_, err := inv.AcquireAndDecrement(context.Background(), nil, repo.pool.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.pool.AvailableQuantity)

	require.Len(t, outbox.msgs, 1)
	assert.Equal(t, model.EventTypeTicketPoolSoldOut, outbox.msgs[0].EventType)
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	const stock = 7
	const buyers = 50

	inv, repo, _ := newTestInventory(stock)

	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inv.AcquireAndDecrement(context.Background(), nil, repo.pool.ID, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, rejections := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, model.ErrInsufficientStock):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, stock, successes, "exactly as many successes as there was stock")
	assert.Equal(t, buyers-stock, rejections)
	assert.Equal(t, 0, repo.pool.AvailableQuantity)
}
