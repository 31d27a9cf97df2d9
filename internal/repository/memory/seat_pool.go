package memory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/repository"
)

type seatPoolRepo struct {
	s *Store
}

func (r seatPoolRepo) pool(key domain.PoolKey) (*pool, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.pools[key]
	return p, ok
}

func (r seatPoolRepo) Reserve(ctx context.Context, key domain.PoolKey, count int) error {
	if count <= 0 {
		return fmt.Errorf("reserve %d seats: count must be positive", count)
	}
	p, ok := r.pool(key)
	if !ok {
		return domain.ErrFareClassNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.class.Retired {
		return domain.ErrFareClassNotFound
	}
	if p.class.RemainingSeats < count {
		return domain.ErrInsufficientSeats
	}
	p.class.RemainingSeats -= count
	p.class.UpdatedAt = r.s.now()

	onRollback(ctx, func() {
		_, _ = r.Release(context.Background(), key, count)
	})
	return nil
}

func (r seatPoolRepo) Release(ctx context.Context, key domain.PoolKey, count int) (repository.ReleaseResult, error) {
	if count <= 0 {
		return repository.ReleaseResult{}, fmt.Errorf("release %d seats: count must be positive", count)
	}
	p, ok := r.pool(key)
	if !ok {
		return repository.ReleaseResult{}, domain.ErrFareClassNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var res repository.ReleaseResult
	next := p.class.RemainingSeats + count
	if next > p.class.TotalSeats {
		res.Overflow = next - p.class.TotalSeats
		next = p.class.TotalSeats
	}
	applied := next - p.class.RemainingSeats
	p.class.RemainingSeats = next
	p.class.UpdatedAt = r.s.now()
	res.Remaining = next

	if applied > 0 {
		onRollback(ctx, func() {
			p.mu.Lock()
			p.class.RemainingSeats -= applied
			p.mu.Unlock()
		})
	}
	return res, nil
}

func (r seatPoolRepo) Get(ctx context.Context, key domain.PoolKey) (*domain.FareClass, error) {
	p, ok := r.pool(key)
	if !ok {
		return nil, domain.ErrFareClassNotFound
	}
	p.mu.Lock()
	c := p.class
	p.mu.Unlock()
	return &c, nil
}

var _ repository.SeatPoolRepository = seatPoolRepo{}
