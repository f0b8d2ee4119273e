package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"clinical-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CaseLoader fetches a clinical case from a backing store (e.g., Postgres).
type CaseLoader interface {
	LoadCase(ctx context.Context, caseID string) (domain.ClinicalCase, error)
}

// CaseRepository caches whole cases in Redis and falls back to a loader on cache miss.
// Cases are stored as JSON: SET case:{caseID} {json} EX ttl
type CaseRepository struct {
	client *redis.Client
	loader CaseLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCaseRepository(client *redis.Client, loader CaseLoader, ttl time.Duration) *CaseRepository {
	return &CaseRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CaseRepository) GetCase(ctx context.Context, caseID string) (domain.ClinicalCase, error) {
	if c, ok := r.cached(ctx, caseID); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(caseID, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if c, ok := r.cached(ctx, caseID); ok {
			return c, nil
		}

		c, err := r.loader.LoadCase(ctx, caseID)
		if err != nil {
			return domain.ClinicalCase{}, err
		}

		if data, err := json.Marshal(c); err == nil {
			// best-effort; a failed write only costs a reload
			_ = r.client.Set(ctx, r.key(caseID), data, r.ttlWithJitter()).Err()
		}
		return c, nil
	})
	if err != nil {
		return domain.ClinicalCase{}, err
	}
	return result.(domain.ClinicalCase), nil
}

// Invalidate drops a cached case.
func (r *CaseRepository) Invalidate(ctx context.Context, caseID string) error {
	return r.client.Del(ctx, r.key(caseID)).Err()
}

func (r *CaseRepository) cached(ctx context.Context, caseID string) (domain.ClinicalCase, bool) {
	data, err := r.client.Get(ctx, r.key(caseID)).Bytes()
	if err != nil {
		return domain.ClinicalCase{}, false
	}
	var c domain.ClinicalCase
	if err := json.Unmarshal(data, &c); err != nil {
		// corrupt entry, drop it so the loader refills it
		_ = r.client.Del(ctx, r.key(caseID)).Err()
		return domain.ClinicalCase{}, false
	}
	return c, true
}

func (r *CaseRepository) key(caseID string) string {
	return "case:" + caseID
}

func (r *CaseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
