package shows

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// QueryService is the read side used by outbox handlers to enrich thin
// domain events before publishing. Reads are cached; a slightly stale name
// or organizer email in an integration event is acceptable.
type QueryService struct {
	repo  repository.ShowRepository
	cache *gocache.Cache
}

func NewQueryService(repo repository.ShowRepository) *QueryService {
	return &QueryService{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

func (q *QueryService) GetShow(ctx context.Context, id uuid.UUID) (*model.Show, error) {
	key := id.String()
	if cached, ok := q.cache.Get(key); ok {
		return cached.(*model.Show), nil
	}

	show, err := q.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	q.cache.Set(key, show, gocache.DefaultExpiration)
	return show, nil
}

// Invalidate drops a show from the cache after a status change.
func (q *QueryService) Invalidate(id uuid.UUID) {
	q.cache.Delete(id.String())
}
