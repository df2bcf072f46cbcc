package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/Harborview-Hotels/service-booking/internal/domain/booking"
	roomDomain "github.com/Harborview-Hotels/service-booking/internal/domain/room"
	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

// CheckConflicts reports whether the proposed stay overlaps any active
// booking for the room, returning every conflicting window. It always reads
// booking records directly; the room's cached futureBooking is never
// consulted for conflict decisions.
func (s *BookingService) CheckConflicts(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time, excludeBookingID string) (bool, []domain.BookingWindow, error) {
	actives, err := s.bookings.FindActiveByRoom(ctx, roomID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load active bookings: %w", err)
	}

	conflicts := bookingDomain.ConflictsWith(
		actives,
		bookingDomain.ToDay(checkIn),
		bookingDomain.ToDay(checkOut),
		excludeBookingID,
	)
	if len(conflicts) == 0 {
		return false, nil, nil
	}
	return true, toWindows(conflicts), nil
}

// FindNextAvailableDate returns the earliest check-in on or after
// earliestFrom that fits a stay of desiredNights nights in the room.
func (s *BookingService) FindNextAvailableDate(ctx context.Context, roomID uuid.UUID, desiredNights int, earliestFrom time.Time) (time.Time, error) {
	if desiredNights < 1 {
		return time.Time{}, domain.NewValidationError("desired nights must be at least 1")
	}

	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		return time.Time{}, err
	}

	actives, err := s.bookings.FindActiveByRoom(ctx, roomID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load active bookings: %w", err)
	}

	return bookingDomain.NextAvailableDate(actives, desiredNights, earliestFrom, s.clock.Now()), nil
}

// SyncRoom recomputes the room's denormalized availability fields from the
// authoritative booking set, serialized against other writers of the same
// room.
func (s *BookingService) SyncRoom(ctx context.Context, roomID uuid.UUID) error {
	unlock := s.locks.acquire(roomID)
	defer unlock()
	return s.syncRoomLocked(ctx, roomID)
}

// syncRoomLocked is the single place the futureBooking projection is
// written. Callers must hold the room's lock. If no active booking exists
// the room is freed; otherwise the earliest-starting active booking wins,
// which also rolls the projection forward past cancelled or expired stays.
func (s *BookingService) syncRoomLocked(ctx context.Context, roomID uuid.UUID) error {
	rm, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if rm.Status == roomDomain.StatusInactive {
		// Inactive is an operator decision; the sweep must not resurrect
		// the room.
		return nil
	}

	actives, err := s.bookings.FindActiveByRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to load active bookings: %w", err)
	}

	if len(actives) == 0 {
		return s.rooms.UpdateAvailability(ctx, roomID, roomDomain.StatusAvailable, roomDomain.FutureBooking{})
	}

	earliest := actives[0]
	from := earliest.CheckInDate()
	to := earliest.CheckOutDate()
	fb := roomDomain.FutureBooking{
		IsBooked:   true,
		BookedFrom: &from,
		BookedTo:   &to,
		Note:       earliest.BookingNumber(),
	}

	if err := s.rooms.UpdateAvailability(ctx, roomID, roomDomain.StatusReserved, fb); err != nil {
		return err
	}

	s.logger.Debug("room availability synchronized",
		zap.String("room_id", roomID.String()),
		zap.String("next_booking", earliest.BookingNumber()),
	)
	return nil
}
