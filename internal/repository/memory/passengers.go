package memory

import (
	"context"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/repository"
)

type passengerRepo struct {
	s *Store
}

func (r passengerRepo) FindByCitizenID(ctx context.Context, citizenID string) (*domain.Passenger, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byCitizen[citizenID]
	if !ok {
		return nil, domain.ErrPassengerNotFound
	}
	cp := *r.s.passengers[id]
	return &cp, nil
}

func (r passengerRepo) Create(ctx context.Context, info domain.PassengerInfo) (*domain.Passenger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.byCitizen[info.CitizenID]; exists {
		return nil, domain.ErrPassengerExists
	}
	now := r.s.now()
	r.s.nextPassengerID++
	p := &domain.Passenger{
		ID:        r.s.nextPassengerID,
		CitizenID: info.CitizenID,
		FullName:  info.FullName,
		Email:     info.Email,
		Phone:     info.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.passengers[p.ID] = p
	r.s.byCitizen[p.CitizenID] = p.ID

	onRollback(ctx, func() {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		delete(r.s.passengers, p.ID)
		delete(r.s.byCitizen, p.CitizenID)
	})

	cp := *p
	return &cp, nil
}

func (r passengerRepo) UpdateContact(ctx context.Context, id int64, email, phone *string) (*domain.Passenger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.passengers[id]
	if !ok {
		return nil, domain.ErrPassengerNotFound
	}
	prev := *p
	if email != nil {
		p.Email = email
	}
	if phone != nil {
		p.Phone = phone
	}
	p.UpdatedAt = r.s.now()

	onRollback(ctx, func() {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		restored := prev
		r.s.passengers[id] = &restored
	})

	cp := *p
	return &cp, nil
}

type paymentOrderRepo struct {
	s *Store
}

func (r paymentOrderRepo) Create(ctx context.Context, order *domain.PaymentOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	order.Status = domain.PaymentOrderPending
	order.CreatedAt, order.UpdatedAt = now, now
	stored := *order
	r.s.orders[order.GatewayOrderID] = &stored
	return nil
}

func (r paymentOrderRepo) GetByGatewayOrderID(ctx context.Context, orderID string) (*domain.PaymentOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, domain.ErrPaymentOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r paymentOrderRepo) FindPending(ctx context.Context, code string) (*domain.PaymentOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *domain.PaymentOrder
	for _, o := range r.s.orders {
		if o.ConfirmationCode != code || o.Status != domain.PaymentOrderPending {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, domain.ErrPaymentOrderNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r paymentOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.PaymentOrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return domain.ErrPaymentOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = r.s.now()
	return nil
}

func (r paymentOrderRepo) ConfirmOrder(ctx context.Context, orderID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return false, domain.ErrPaymentOrderNotFound
	}
	if o.Status == domain.PaymentOrderConfirmed {
		return false, nil
	}
	o.Status = domain.PaymentOrderConfirmed
	o.UpdatedAt = r.s.now()
	return true, nil
}

var (
	_ repository.PassengerRepository    = passengerRepo{}
	_ repository.PaymentOrderRepository = paymentOrderRepo{}
)
