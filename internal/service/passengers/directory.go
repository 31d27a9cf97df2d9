package passengers

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type Directory interface {
	// Resolve returns the passenger registered under info's citizen id, creating it on first use.
	Resolve(ctx context.Context, info domain.PassengerInfo) (*domain.Passenger, error)
	UpdateContact(ctx context.Context, citizenID string, email, phone *string) (*domain.Passenger, error)
}

type Service struct {
	repo repository.PassengerRepository
	log  logrus.FieldLogger
}

func NewService(repo repository.PassengerRepository, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Resolve(ctx context.Context, info domain.PassengerInfo) (*domain.Passenger, error) {
	info = info.Normalize()
	if err := info.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.FindByCitizenID(ctx, info.CitizenID)
	switch {
	case err == nil:
		return s.refreshContact(ctx, p, info), nil
	case !errors.Is(err, domain.ErrPassengerNotFound):
		return nil, fmt.Errorf("find passenger: %w", err)
	}

	p, err = s.repo.Create(ctx, info)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrPassengerExists) {
		return nil, fmt.Errorf("create passenger: %w", err)
	}

	// a concurrent booking registered the same citizen id first
	p, err = s.repo.FindByCitizenID(ctx, info.CitizenID)
	if err != nil {
		return nil, fmt.Errorf("find passenger after conflict: %w", err)
	}
	return p, nil
}

// refreshContact stores newer contact details. Failing to do so never fails a booking.
func (s *Service) refreshContact(ctx context.Context, p *domain.Passenger, info domain.PassengerInfo) *domain.Passenger {
	if !p.ContactChanged(info) {
		return p
	}
	updated, err := s.repo.UpdateContact(ctx, p.ID, info.Email, info.Phone)
	if err != nil {
		s.log.WithError(err).WithField("passenger_id", p.ID).Warn("failed to refresh passenger contact")
		return p
	}
	return updated
}

func (s *Service) UpdateContact(ctx context.Context, citizenID string, email, phone *string) (*domain.Passenger, error) {
	p, err := s.repo.FindByCitizenID(ctx, citizenID)
	if err != nil {
		return nil, err
	}
	info := domain.PassengerInfo{CitizenID: p.CitizenID, FullName: p.FullName, Email: email, Phone: phone}.Normalize()
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return s.repo.UpdateContact(ctx, p.ID, info.Email, info.Phone)
}

var _ Directory = (*Service)(nil)
