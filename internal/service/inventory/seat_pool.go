package inventory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/metrics"
	"github.com/Domenick1991/seatbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

// ReleaseReason labels why seats go back to a pool.
type ReleaseReason string

const (
	ReasonCompensation ReleaseReason = "compensation"
	ReasonCancel       ReleaseReason = "cancel"
	ReasonExpiry       ReleaseReason = "expiry"
)

type SeatPool interface {
	// Reserve takes count seats out of the pool or nothing at all.
	Reserve(ctx context.Context, key domain.PoolKey, count int) error
	Release(ctx context.Context, key domain.PoolKey, count int, reason ReleaseReason) error
	PeekFare(ctx context.Context, key domain.PoolKey) (int64, error)
}

type Service struct {
	repo repository.SeatPoolRepository
	log  logrus.FieldLogger
}

func NewService(repo repository.SeatPoolRepository, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Reserve(ctx context.Context, key domain.PoolKey, count int) error {
	if err := s.repo.Reserve(ctx, key, count); err != nil {
		return err
	}
	metrics.SeatsReserved.Add(float64(count))
	return nil
}

// Release returns seats to the pool. A release that would push the counter past the
// pool capacity is clamped and reported as a bookkeeping error, never returned.
func (s *Service) Release(ctx context.Context, key domain.PoolKey, count int, reason ReleaseReason) error {
	res, err := s.repo.Release(ctx, key, count)
	if err != nil {
		return fmt.Errorf("release %d seats on flight %d class %d: %w", count, key.FlightID, key.FareClassID, err)
	}
	metrics.SeatsReleased.WithLabelValues(string(reason)).Add(float64(count - res.Overflow))
	if res.Overflow > 0 {
		metrics.SeatReleaseOverflow.Inc()
		s.log.WithFields(logrus.Fields{
			"flight_id":     key.FlightID,
			"fare_class_id": key.FareClassID,
			"requested":     count,
			"overflow":      res.Overflow,
			"reason":        reason,
		}).Error("seat release exceeded pool capacity, clamped")
	}
	return nil
}

func (s *Service) PeekFare(ctx context.Context, key domain.PoolKey) (int64, error) {
	class, err := s.repo.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return class.FareCents, nil
}

var _ SeatPool = (*Service)(nil)
