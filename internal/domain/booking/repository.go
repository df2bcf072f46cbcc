package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for booking aggregates.
// Bookings are never deleted; cancellation and no-show are terminal statuses.
type Repository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByNumber retrieves a booking by its human-readable booking number.
	FindByNumber(ctx context.Context, number string) (*Booking, error)

	// FindActiveByRoom retrieves all active bookings (pending, confirmed,
	// checked_in) for a room, ordered ascending by check-in date.
	FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]*Booking, error)

	// FindDueForCheckout retrieves confirmed or checked_in bookings whose
	// check-out date has passed.
	FindDueForCheckout(ctx context.Context, now time.Time) ([]*Booking, error)

	// FindDueForNoShow retrieves pending (payment never confirmed) bookings
	// whose check-in date has passed.
	FindDueForNoShow(ctx context.Context, now time.Time) ([]*Booking, error)

	// FindByCustomerID retrieves bookings for a customer with pagination.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking. A duplicate booking number surfaces as
	// domain.ErrRaceRetryable so the caller can retry with a fresh number.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}

// NumberAllocator hands out booking numbers in the format YYMMDD#### with a
// sequence that resets daily. Implementations must be safe under concurrent
// callers: the counter increment has to be atomic at the storage layer.
type NumberAllocator interface {
	NextNumber(ctx context.Context, day time.Time) (string, error)
}
