package shows_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/shows"
)

type fakeShowRepo struct {
	mu    sync.Mutex
	shows map[uuid.UUID]*model.Show
	gets  int
}

func newFakeShowRepo() *fakeShowRepo {
	return &fakeShowRepo{shows: make(map[uuid.UUID]*model.Show)}
}

func (r *fakeShowRepo) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *fakeShowRepo) Create(ctx context.Context, show *model.Show) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if show.ID == uuid.Nil {
		show.ID = uuid.New()
	}
	copied := *show
	r.shows[show.ID] = &copied
	return nil
}

func (r *fakeShowRepo) Get(ctx context.Context, id uuid.UUID) (*model.Show, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	copied := *r.shows[id]
	return &copied, nil
}

func (r *fakeShowRepo) GetTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Show, error) {
	return r.Get(ctx, id)
}

func (r *fakeShowRepo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, show *model.Show) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shows[show.ID].Status = show.Status
	return nil
}

type recordingOutbox struct {
	mu   sync.Mutex
	msgs []*model.Message
}

func (o *recordingOutbox) Begin(ctx context.Context) (*sqlx.Tx, error) { return nil, nil }

func (o *recordingOutbox) Commit(tx *sqlx.Tx) error { return nil }

func (o *recordingOutbox) Rollback(tx *sqlx.Tx) error { return nil }

func (o *recordingOutbox) Insert(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *recordingOutbox) InsertIfAbsent(ctx context.Context, msg *model.Message) error {
	return o.Insert(ctx, nil, msg)
}

func (o *recordingOutbox) FetchPending(ctx context.Context, limit int) ([]*model.Message, error) {
	return nil, nil
}

func (o *recordingOutbox) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (o *recordingOutbox) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return nil
}

func (o *recordingOutbox) HasMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, h string) (bool, error) {
	return false, nil
}

func (o *recordingOutbox) InsertMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, h string) error {
	return nil
}

func TestRequestCancellationRecordsStatusAndOutboxRow(t *testing.T) {
	repo := newFakeShowRepo()
	outbox := &recordingOutbox{}
	svc := shows.NewService(repo, mailbox.NewCapture(outbox))

	show := &model.Show{Name: "Closing Night", Status: model.ShowStatusScheduled}
	require.NoError(t, svc.CreateShow(context.Background(), show))

	require.NoError(t, svc.RequestCancellation(context.Background(), show.ID))

	stored, err := repo.Get(context.Background(), show.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShowStatusCancelling, stored.Status)

	require.Len(t, outbox.msgs, 1)
	assert.Equal(t, model.EventTypeShowCancellationRequested, outbox.msgs[0].EventType)
}

func TestRequestCancellationRejectedLeavesNoOutboxRow(t *testing.T) {
	repo := newFakeShowRepo()
	outbox := &recordingOutbox{}
	svc := shows.NewService(repo, mailbox.NewCapture(outbox))

	show := &model.Show{Name: "Closing Night", Status: model.ShowStatusCancelled}
	require.NoError(t, svc.CreateShow(context.Background(), show))

	err := svc.RequestCancellation(context.Background(), show.ID)
	assert.ErrorIs(t, err, model.ErrShowNotCancellable)
	assert.Empty(t, outbox.msgs, "a rejected cancellation must not record an event")
}

func TestQueryServiceCachesReads(t *testing.T) {
	repo := newFakeShowRepo()
	query := shows.NewQueryService(repo)

	show := &model.Show{Name: "Matinee", Status: model.ShowStatusScheduled}
	require.NoError(t, repo.Create(context.Background(), show))

	for i := 0; i < 3; i++ {
		got, err := query.GetShow(context.Background(), show.ID)
		require.NoError(t, err)
		assert.Equal(t, "Matinee", got.Name)
	}
	assert.Equal(t, 1, repo.gets, "repeated reads must be served from cache")

	query.Invalidate(show.ID)
	_, err := query.GetShow(context.Background(), show.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.gets)
}
