package booking

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/match-slot-booking/internal/clock"
)

const (
	defaultLockTTL  = 5 * time.Minute
	defaultTxBudget = 30 * time.Second
)

// Service is the booking core.  One instance serves all matches;
// per-match serialization comes from the store's row lock, so requests
// for different matches proceed in parallel with no contention.
type Service struct {
	store    Store
	clock    clock.Clock
	events   EventPublisher
	log      logrus.FieldLogger
	lockTTL  time.Duration
	txBudget time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLockTTL overrides the default soft lock TTL.
func WithLockTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.lockTTL = d
		}
	}
}

// WithTxBudget overrides the per-transaction deadline.
func WithTxBudget(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.txBudget = d
		}
	}
}

// WithEvents sets the event publisher.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService constructs the booking core over the given store and clock.
func NewService(store Store, clk clock.Clock, opts ...Option) *Service {
	if store == nil || clk == nil {
		panic("nil store or clock passed to NewService")
	}
	s := &Service{
		store:    store,
		clock:    clk,
		events:   NopPublisher{},
		log:      logrus.StandardLogger(),
		lockTTL:  defaultLockTTL,
		txBudget: defaultTxBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockTTL returns the configured soft lock TTL.
func (s *Service) LockTTL() time.Duration { return s.lockTTL }

// withTx runs fn inside a bounded transaction.  The deadline stands in
// for the server-side statement timeout: when it fires the database
// rolls the transaction back atomically, so the attempt had zero
// partial effect and is reported as ErrTxTimeout rather than re-thrown
// as a half-applied state.
func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txBudget)
	defer cancel()
	err := s.store.WithTx(txCtx, fn)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || txCtx.Err() != nil && ctx.Err() == nil) {
		return ErrTxTimeout
	}
	return err
}
