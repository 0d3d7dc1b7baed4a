package booking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

// Sweeper periodically releases soft locks that outlived their TTL,
// guaranteeing that abandoned checkouts (crash, network loss, client
// walk-away) return their capacity within one sweep interval.  It runs
// the same row-locked release path as normal traffic, so it is safe to
// run concurrently with live checkouts.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      logrus.FieldLogger
}

// NewSweeper builds a sweeper over the booking service.
func NewSweeper(svc *Service, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{svc: svc, interval: interval, log: log}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("lock sweeper started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("lock sweeper stopped")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce scans every match carrying locks and releases the expired
// ones.  Per-match failures are logged and skipped; the next tick
// retries.  Exported so tests and operators can force a sweep.
func (w *Sweeper) SweepOnce(ctx context.Context) {
	ids, err := w.svc.store.MatchIDsWithLocks(ctx)
	if err != nil {
		w.log.WithError(err).Error("sweep: listing locked matches failed")
		return
	}
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
		}
		freed, err := w.svc.sweepMatch(ctx, id)
		if err != nil {
			w.log.WithError(err).WithField("match_id", id).Error("sweep: match failed")
			continue
		}
		if freed > 0 {
			w.log.WithFields(logrus.Fields{"match_id": id, "freed": freed}).Info("sweep: released expired locks")
			w.svc.promoteAfterFree(ctx, id, freed)
		}
	}
}

// sweepMatch removes lapsed locks from one match under its row lock
// and returns how many slots were freed.
func (s *Service) sweepMatch(ctx context.Context, matchID uint64) (int, error) {
	freed := 0
	err := s.withTx(ctx, func(ctx context.Context) error {
		m, err := s.store.GetMatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		removed := m.PruneExpired(s.clock.Now())
		if len(removed) == 0 {
			return nil
		}
		for _, lock := range removed {
			freed += len(lock.SlotNumbers)
			if err := s.failBookingTx(ctx, lock.BookingID, model.BookingFailed); err != nil {
				return err
			}
		}
		count, err := s.store.CountActiveSlots(ctx, matchID)
		if err != nil {
			return err
		}
		m.BookedSlots = count
		return s.store.SaveMatch(ctx, m)
	})
	if err != nil {
		return 0, err
	}
	return freed, nil
}
