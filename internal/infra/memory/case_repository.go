package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"clinical-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CaseLoader fetches a clinical case from a backing store (e.g., Postgres).
type CaseLoader interface {
	LoadCase(ctx context.Context, caseID string) (domain.ClinicalCase, error)
}

// CaseRepository caches cases with TTL to avoid repeated DB hits.
type CaseRepository struct {
	loader CaseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedCase
}

type cachedCase struct {
	clinicalCase domain.ClinicalCase
	expiresAt    time.Time
}

func NewCaseRepository(loader CaseLoader, ttl time.Duration) *CaseRepository {
	return &CaseRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCase),
	}
}

func (r *CaseRepository) GetCase(ctx context.Context, caseID string) (domain.ClinicalCase, error) {
	if c, ok := r.lookup(caseID); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(caseID, func() (interface{}, error) {
		if c, ok := r.lookup(caseID); ok {
			return c, nil
		}

		c, err := r.loader.LoadCase(ctx, caseID)
		if err != nil {
			return domain.ClinicalCase{}, err
		}

		r.mu.Lock()
		r.cache[caseID] = cachedCase{
			clinicalCase: c,
			expiresAt:    r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return domain.ClinicalCase{}, err
	}
	return result.(domain.ClinicalCase), nil
}

// Invalidate drops a cached case, e.g. after reseeding.
func (r *CaseRepository) Invalidate(caseID string) {
	r.mu.Lock()
	delete(r.cache, caseID)
	r.mu.Unlock()
}

func (r *CaseRepository) lookup(caseID string) (domain.ClinicalCase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[caseID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.ClinicalCase{}, false
	}
	return entry.clinicalCase, true
}

func (r *CaseRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
