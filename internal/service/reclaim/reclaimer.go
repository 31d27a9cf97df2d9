package reclaim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/Domenick1991/seatbooking/internal/kafka"
	"github.com/Domenick1991/seatbooking/internal/metrics"
	"github.com/Domenick1991/seatbooking/internal/repository"
	"github.com/Domenick1991/seatbooking/internal/service/inventory"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// MaxHoldDuration selects holds on flights departing within this window.
	MaxHoldDuration time.Duration
	// HoldTTL, when positive, also selects holds older than this regardless of departure.
	HoldTTL time.Duration
	// MinHoldAge protects holds younger than this from any sweep.
	MinHoldAge time.Duration
	Interval   time.Duration
	BatchSize  int
}

// Report summarizes one sweep.
type Report struct {
	Scanned   int `json:"scanned"`
	Reclaimed int `json:"reclaimed"`
	Stale     int `json:"stale"`
	Failed    int `json:"failed"`
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Reclaimer cancels unpaid holds that ran out of time and returns their seats. Every
// cancellation is conditional on the ticket still being HELD, so replicas may sweep
// concurrently and a payment racing a sweep wins or loses cleanly.
type Reclaimer struct {
	tickets     repository.TicketRepository
	pools       inventory.SeatPool
	tx          repository.Transactor
	cfg         Config
	log         logrus.FieldLogger
	producer    Producer
	eventsTopic string
	now         func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Reclaimer)

func WithEvents(producer Producer, topic string) Option {
	return func(r *Reclaimer) {
		r.producer = producer
		r.eventsTopic = topic
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reclaimer) { r.now = now }
}

func NewReclaimer(tickets repository.TicketRepository, pools inventory.SeatPool, tx repository.Transactor, cfg Config, log logrus.FieldLogger, opts ...Option) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	r := &Reclaimer{
		tickets: tickets,
		pools:   pools,
		tx:      tx,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reclaimer) filter() repository.ExpiredHoldsFilter {
	now := r.now()
	filter := repository.ExpiredHoldsFilter{
		DepartureBefore: now.Add(r.cfg.MaxHoldDuration),
		CreatedBefore:   now.Add(-r.cfg.MinHoldAge),
		Limit:           r.cfg.BatchSize,
	}
	if r.cfg.HoldTTL > 0 {
		heldBefore := now.Add(-r.cfg.HoldTTL)
		filter.HeldBefore = &heldBefore
	}
	return filter
}

// Sweep reclaims every expired hold it can find. A ticket that fails is logged and
// counted and the sweep moves on; it is retried on the next sweep, not within this one.
func (r *Reclaimer) Sweep(ctx context.Context) (Report, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	var report Report
	failed := make(map[int64]struct{})
	for {
		batch, err := r.tickets.ListExpiredHolds(ctx, r.filter())
		if err != nil {
			return report, err
		}
		candidates := lo.Reject(batch, func(t domain.Ticket, _ int) bool {
			_, ok := failed[t.ID]
			return ok
		})
		report.Scanned += len(candidates)

		reclaimed := 0
		for _, t := range candidates {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			switch err := r.reclaim(ctx, t); {
			case err == nil:
				reclaimed++
				r.publish(ctx, t)
			case errors.Is(err, domain.ErrStaleTransition), errors.Is(err, domain.ErrAlreadyCanceled):
				report.Stale++
				metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusCanceled), "stale").Inc()
			default:
				report.Failed++
				failed[t.ID] = struct{}{}
				metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusCanceled), "failed").Inc()
				r.log.WithError(err).WithField("ticket_id", t.ID).Error("failed to reclaim expired hold")
			}
		}
		report.Reclaimed += reclaimed

		// a full batch with progress may have more behind it
		if len(batch) < r.cfg.BatchSize || reclaimed == 0 {
			break
		}
	}

	if report.Scanned > 0 {
		r.log.WithFields(logrus.Fields{
			"scanned":   report.Scanned,
			"reclaimed": report.Reclaimed,
			"stale":     report.Stale,
			"failed":    report.Failed,
		}).Info("expiry sweep finished")
	}
	return report, nil
}

func (r *Reclaimer) reclaim(ctx context.Context, t domain.Ticket) error {
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.tickets.Transition(ctx, t.ID, domain.TicketStatusHeld, domain.TicketStatusCanceled, r.now()); err != nil {
			return err
		}
		return r.pools.Release(ctx, t.Pool(), 1, inventory.ReasonExpiry)
	})
	if err == nil {
		metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusCanceled), "applied").Inc()
	}
	return err
}

func (r *Reclaimer) publish(ctx context.Context, t domain.Ticket) {
	if r.producer == nil || r.eventsTopic == "" {
		return
	}
	t.Status = domain.TicketStatusCanceled
	event := kafka.NewBookingEvent(kafka.EventTicketExpired, []domain.Ticket{t}, r.now())
	if err := r.producer.Publish(ctx, r.eventsTopic, t.ConfirmationCode, event); err != nil {
		r.log.WithError(err).WithField("ticket_id", t.ID).Warn("failed to publish expiry event")
	}
}

// Run sweeps immediately and then on every interval until ctx is canceled.
func (r *Reclaimer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.log.WithError(err).Error("expiry sweep failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Start runs the sweep loop in its own goroutine. Calling Start on a running reclaimer does nothing.
func (r *Reclaimer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = r.Run(ctx)
	}(r.done)
}

// Stop ends the loop started by Start and waits for the running sweep to finish.
func (r *Reclaimer) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
