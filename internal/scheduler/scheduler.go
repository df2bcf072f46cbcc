package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Harborview-Hotels/service-booking/internal/application"
	"github.com/Harborview-Hotels/service-booking/internal/platform/clock"
)

// sweeper is the slice of BookingService the scheduler drives.
type sweeper interface {
	RunBookingSweep(ctx context.Context, now time.Time) application.SweepReport
	RunRoomSweep(ctx context.Context, now time.Time) application.SweepReport
}

// Scheduler periodically reconciles stale bookings and room caches. It is an
// explicitly constructed object owning its run loop: the process starts it
// with a cancellable context and stops it by cancelling, so no timers live in
// package-global state.
type Scheduler struct {
	service      sweeper
	bookingEvery time.Duration
	roomEvery    time.Duration
	clock        clock.Clock
	logger       *zap.Logger
}

// New creates a Scheduler with the given sweep cadences.
func New(service sweeper, bookingEvery, roomEvery time.Duration, clk clock.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service:      service,
		bookingEvery: bookingEvery,
		roomEvery:    roomEvery,
		clock:        clk,
		logger:       logger,
	}
}

// Start runs the sweep loop until the context is cancelled. An in-flight
// sweep finishes before Start returns; no new sweeps begin after
// cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	bookingTicker := time.NewTicker(s.bookingEvery)
	defer bookingTicker.Stop()
	roomTicker := time.NewTicker(s.roomEvery)
	defer roomTicker.Stop()

	s.logger.Info("reconciliation scheduler started",
		zap.Duration("booking_sweep_interval", s.bookingEvery),
		zap.Duration("room_sweep_interval", s.roomEvery),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconciliation scheduler stopped")
			return
		case <-bookingTicker.C:
			s.report("booking sweep", s.service.RunBookingSweep(ctx, s.clock.Now()))
		case <-roomTicker.C:
			s.report("room sweep", s.service.RunRoomSweep(ctx, s.clock.Now()))
		}
	}
}

func (s *Scheduler) report(name string, r application.SweepReport) {
	if r.CheckedOut == 0 && r.NoShows == 0 && r.RoomsSynced == 0 && len(r.Errors) == 0 {
		return
	}
	s.logger.Info(name+" completed",
		zap.Int("checked_out", r.CheckedOut),
		zap.Int("no_shows", r.NoShows),
		zap.Int("rooms_synced", r.RoomsSynced),
		zap.Strings("errors", r.Errors),
	)
}
