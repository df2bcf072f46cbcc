package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	bookingDomain "github.com/Harborview-Hotels/service-booking/internal/domain/booking"
	"github.com/Harborview-Hotels/service-booking/internal/events"
)

// SweepReport summarizes one reconciliation pass. Per-item failures are
// recorded and skipped, never propagated; a run with no work to do reports
// all zeros, which is how idempotence shows up in practice.
type SweepReport struct {
	CheckedOut  int      `json:"checked_out"`
	NoShows     int      `json:"no_shows"`
	RoomsSynced int      `json:"rooms_synced"`
	Errors      []string `json:"errors,omitempty"`
}

// merge folds another report into this one.
func (r *SweepReport) merge(other SweepReport) {
	r.CheckedOut += other.CheckedOut
	r.NoShows += other.NoShows
	r.RoomsSynced += other.RoomsSynced
	r.Errors = append(r.Errors, other.Errors...)
}

func (r *SweepReport) fail(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// RunReconciliationSweep performs a full reconciliation pass: expired stays
// are checked out, lapsed unpaid bookings become no-shows, and rooms with a
// stale futureBooking cache are rolled forward.
func (s *BookingService) RunReconciliationSweep(ctx context.Context, now time.Time) SweepReport {
	report := s.RunBookingSweep(ctx, now)
	report.merge(s.RunRoomSweep(ctx, now))
	return report
}

// RunBookingSweep advances stale bookings: confirmed/checked_in stays past
// their check-out become checked_out; pending bookings past their check-in
// with payment never confirmed become no_show. Each item is independent; a
// failure is logged and skipped.
func (s *BookingService) RunBookingSweep(ctx context.Context, now time.Time) SweepReport {
	var report SweepReport

	due, err := s.bookings.FindDueForCheckout(ctx, now)
	if err != nil {
		s.logger.Error("sweep: failed to load bookings due for checkout", zap.Error(err))
		report.fail("load due for checkout: %v", err)
	}
	for _, bk := range due {
		if err := s.sweepTransition(ctx, bk, now, events.BookingCheckedOut, (*bookingDomain.Booking).CheckOut); err != nil {
			s.logger.Error("sweep: failed to check out booking",
				zap.String("booking_number", bk.BookingNumber()),
				zap.Error(err),
			)
			report.fail("check out %s: %v", bk.BookingNumber(), err)
			continue
		}
		report.CheckedOut++
	}

	noShows, err := s.bookings.FindDueForNoShow(ctx, now)
	if err != nil {
		s.logger.Error("sweep: failed to load bookings due for no-show", zap.Error(err))
		report.fail("load due for no-show: %v", err)
	}
	for _, bk := range noShows {
		if err := s.sweepTransition(ctx, bk, now, events.BookingNoShow, (*bookingDomain.Booking).MarkNoShow); err != nil {
			s.logger.Error("sweep: failed to mark booking no-show",
				zap.String("booking_number", bk.BookingNumber()),
				zap.Error(err),
			)
			report.fail("no-show %s: %v", bk.BookingNumber(), err)
			continue
		}
		report.NoShows++
	}

	return report
}

// RunRoomSweep re-synchronizes rooms whose cached futureBooking window has
// ended. SyncRoom both frees a room with no remaining active bookings and
// rolls the cache forward to the next queued booking.
func (s *BookingService) RunRoomSweep(ctx context.Context, now time.Time) SweepReport {
	var report SweepReport

	stale, err := s.rooms.FindWithStaleFutureBooking(ctx, now)
	if err != nil {
		s.logger.Error("sweep: failed to load rooms with stale cache", zap.Error(err))
		report.fail("load stale rooms: %v", err)
		return report
	}

	for _, rm := range stale {
		if err := s.SyncRoom(ctx, rm.ID); err != nil {
			s.logger.Error("sweep: failed to sync room",
				zap.String("room_id", rm.ID.String()),
				zap.Error(err),
			)
			report.fail("sync room %s: %v", rm.ID, err)
			continue
		}
		report.RoomsSynced++
	}

	return report
}

func (s *BookingService) sweepTransition(
	ctx context.Context,
	bk *bookingDomain.Booking,
	now time.Time,
	eventType string,
	apply func(*bookingDomain.Booking, time.Time) error,
) error {
	unlock := s.locks.acquire(bk.RoomID())
	defer unlock()

	if err := apply(bk, now); err != nil {
		return err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return err
	}

	if err := s.syncRoomLocked(ctx, bk.RoomID()); err != nil {
		return err
	}

	s.publish(ctx, eventType, bk)
	return nil
}
