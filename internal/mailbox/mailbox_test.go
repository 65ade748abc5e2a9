package mailbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/pkg/logger"
	"github.com/eventium/eventium/pkg/metrics"
)

// fakeStore is an in-memory mailbox.Store. Transactions are faked: Begin
// hands out a nil *sqlx.Tx and Commit/Rollback decide whether buffered
// markers stick, which is enough to exercise the guard's atomicity contract.
type fakeStore struct {
	mu             sync.Mutex
	rows           map[uuid.UUID]*model.Message
	order          []uuid.UUID
	markers        map[string]bool
	pendingMarkers []string

	beginErr  error
	commitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:    make(map[uuid.UUID]*model.Message),
		markers: make(map[string]bool),
	}
}

func markerKey(id uuid.UUID, handler string) string {
	return id.String() + "/" + handler
}

func (s *fakeStore) Begin(ctx context.Context) (*sqlx.Tx, error) {
	return nil, s.beginErr
}

func (s *fakeStore) Commit(tx *sqlx.Tx) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.pendingMarkers {
		s.markers[k] = true
	}
	s.pendingMarkers = nil
	return nil
}

func (s *fakeStore) Rollback(tx *sqlx.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingMarkers = nil
	return nil
}

func (s *fakeStore) Insert(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *fakeStore) InsertIfAbsent(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[msg.ID]; ok {
		return nil
	}
	s.rows[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *fakeStore) FetchPending(ctx context.Context, limit int) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Message
	for _, id := range s.order {
		if msg := s.rows[id]; msg.ProcessedAt == nil {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.rows[id].ProcessedAt = &now
	s.rows[id].Error = nil
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id].Error = &reason
	return nil
}

func (s *fakeStore) HasMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, handlerName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[markerKey(id, handlerName)], nil
}

func (s *fakeStore) InsertMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, handlerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingMarkers = append(s.pendingMarkers, markerKey(id, handlerName))
	return nil
}

func testMessage(t *testing.T, eventType string) *model.Message {
	t.Helper()
	msg, err := model.NewMessage(model.DomainEvent{
		Type:       eventType,
		Payload:    map[string]string{"k": "v"},
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	return msg
}

func countingHandler(name string, calls *int, fail *bool) mailbox.HandlerFunc {
	return mailbox.HandlerFunc{
		HandlerName: name,
		Fn: func(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
			*calls++
			if fail != nil && *fail {
				return errors.New("handler failed")
			}
			return nil
		},
	}
}

func testMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	return metrics.NewWithRegisterer("test", prometheus.NewRegistry())
}

func TestGuardRunsHandlerOnce(t *testing.T) {
	store := newFakeStore()
	guard := mailbox.NewGuard(store)
	msg := testMessage(t, "test.event")

	calls := 0
	h := countingHandler("h1", &calls, nil)

	require.NoError(t, guard.Execute(context.Background(), msg, h))
	require.NoError(t, guard.Execute(context.Background(), msg, h))

	assert.Equal(t, 1, calls, "second execution must be skipped by the marker")
}

func TestGuardFailureLeavesNoMarker(t *testing.T) {
	store := newFakeStore()
	guard := mailbox.NewGuard(store)
	msg := testMessage(t, "test.event")

	calls := 0
	fail := true
	h := countingHandler("h1", &calls, &fail)

	require.Error(t, guard.Execute(context.Background(), msg, h))
	assert.Equal(t, 1, calls)

	// The retry runs the handler again because the failed attempt committed
	// nothing.
	fail = false
	require.NoError(t, guard.Execute(context.Background(), msg, h))
	assert.Equal(t, 2, calls)
}

func TestGuardDistinctHandlersGetDistinctMarkers(t *testing.T) {
	store := newFakeStore()
	guard := mailbox.NewGuard(store)
	msg := testMessage(t, "test.event")

	calls1, calls2 := 0, 0
	require.NoError(t, guard.Execute(context.Background(), msg, countingHandler("h1", &calls1, nil)))
	require.NoError(t, guard.Execute(context.Background(), msg, countingHandler("h2", &calls2, nil)))

	assert.Equal(t, 1, calls1)
	assert.Equal(t, 1, calls2)
}

func newTestDispatcher(t *testing.T, store mailbox.Store, reg *mailbox.Registry) *mailbox.Dispatcher {
	t.Helper()
	return mailbox.NewDispatcher("test", store, reg, mailbox.DispatcherConfig{
		BatchSize:      10,
		PollInterval:   time.Second,
		HandlerTimeout: time.Second,
	}, logger.NewLogger(nil), testMetrics(t))
}

func TestDispatcherMarksProcessedWhenAllHandlersSucceed(t *testing.T) {
	store := newFakeStore()
	reg := mailbox.NewRegistry()

	calls := 0
	reg.Register("test.event", countingHandler("h1", &calls, nil))

	msg := testMessage(t, "test.event")
	require.NoError(t, store.Insert(context.Background(), nil, msg))

	d := newTestDispatcher(t, store, reg)
	require.NoError(t, d.Tick(context.Background()))

	assert.Equal(t, 1, calls)
	assert.NotNil(t, store.rows[msg.ID].ProcessedAt)
}

func TestDispatcherKeepsRowPendingOnPartialFailure(t *testing.T) {
	store := newFakeStore()
	reg := mailbox.NewRegistry()

	okCalls, failCalls := 0, 0
	fail := true
	reg.Register("test.event",
		countingHandler("ok", &okCalls, nil),
		countingHandler("flaky", &failCalls, &fail))

	msg := testMessage(t, "test.event")
	require.NoError(t, store.Insert(context.Background(), nil, msg))

	d := newTestDispatcher(t, store, reg)
	require.NoError(t, d.Tick(context.Background()))

	assert.Nil(t, store.rows[msg.ID].ProcessedAt, "row must stay pending")
	require.NotNil(t, store.rows[msg.ID].Error)
	assert.Contains(t, *store.rows[msg.ID].Error, "flaky")

	// On the retry tick only the failed handler re-runs; the successful one
	// is skipped by its marker. Once it succeeds the row is processed.
	fail = false
	require.NoError(t, d.Tick(context.Background()))

	assert.Equal(t, 1, okCalls)
	assert.Equal(t, 2, failCalls)
	assert.NotNil(t, store.rows[msg.ID].ProcessedAt)
	assert.Nil(t, store.rows[msg.ID].Error)
}

func TestDispatcherProcessesOldestFirst(t *testing.T) {
	store := newFakeStore()
	reg := mailbox.NewRegistry()

	var seen []string
	reg.Register("test.event", mailbox.HandlerFunc{
		HandlerName: "recorder",
		Fn: func(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
			seen = append(seen, msg.ID.String())
			return nil
		},
	})

	// Inserted out of order; dispatch follows occurrence order.
	base := time.Now()
	want := make([]string, 3)
	for _, i := range []int{2, 0, 1} {
		msg := testMessage(t, "test.event")
		msg.OccurredAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Insert(context.Background(), nil, msg))
		want[i] = msg.ID.String()
	}

	d := newTestDispatcher(t, store, reg)
	require.NoError(t, d.Tick(context.Background()))

	assert.Equal(t, want, seen)
}

func TestDispatcherMessageWithoutHandlersIsProcessed(t *testing.T) {
	store := newFakeStore()
	msg := testMessage(t, "nobody.cares")
	require.NoError(t, store.Insert(context.Background(), nil, msg))

	d := newTestDispatcher(t, store, mailbox.NewRegistry())
	require.NoError(t, d.Tick(context.Background()))

	assert.NotNil(t, store.rows[msg.ID].ProcessedAt)
}

func TestRegistryResolveAndEventTypes(t *testing.T) {
	reg := mailbox.NewRegistry()
	calls := 0
	reg.Register("a.one", countingHandler("h1", &calls, nil))
	reg.Register("a.one", countingHandler("h2", &calls, nil))
	reg.Register("b.two", countingHandler("h3", &calls, nil))

	assert.Len(t, reg.Resolve("a.one"), 2)
	assert.Len(t, reg.Resolve("b.two"), 1)
	assert.Empty(t, reg.Resolve("c.three"))
	assert.ElementsMatch(t, []string{"a.one", "b.two"}, reg.EventTypes())
}

type testAggregate struct {
	model.AggregateRoot
}

func TestCaptureDrainsAndClears(t *testing.T) {
	store := newFakeStore()
	capture := mailbox.NewCapture(store)

	agg := &testAggregate{}
	agg.Raise("test.one", map[string]string{"n": "1"})
	agg.Raise("test.two", map[string]string{"n": "2"})

	require.NoError(t, capture.Drain(context.Background(), nil, agg))

	assert.Len(t, store.rows, 2)
	assert.Empty(t, agg.PendingEvents(), "drained aggregate must have no buffered events")

	// Draining again is a no-op.
	require.NoError(t, capture.Drain(context.Background(), nil, agg))
	assert.Len(t, store.rows, 2)
}

func TestReceiverPersistsAndDeduplicates(t *testing.T) {
	store := newFakeStore()
	broker := newFakeBroker()
	r := mailbox.NewReceiver("test", broker, store, []string{"test.event"}, logger.NewLogger(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	msg := testMessage(t, "test.event")
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	broker.deliver("test.event", raw)
	broker.deliver("test.event", raw) // transport redelivery

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.rows) == 1
	}, time.Second, 10*time.Millisecond)
}
