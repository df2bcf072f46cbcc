package room

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for the room availability
// projection.
type Repository interface {
	// FindByID retrieves a room by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Room, error)

	// UpdateAvailability writes the denormalized status and futureBooking
	// fields for a room.
	UpdateAvailability(ctx context.Context, roomID uuid.UUID, status RoomStatus, fb FutureBooking) error

	// FindWithStaleFutureBooking retrieves rooms whose cached futureBooking
	// window has already ended and needs rolling forward.
	FindWithStaleFutureBooking(ctx context.Context, now time.Time) ([]*Room, error)

	// Save persists a room projection (seeding and tests).
	Save(ctx context.Context, room *Room) error
}
