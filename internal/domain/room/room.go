package room

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the room's coarse availability state.
type RoomStatus string

const (
	StatusAvailable RoomStatus = "Available"
	StatusReserved  RoomStatus = "Reserved"
	StatusInactive  RoomStatus = "Inactive"
)

// IsValid returns true if the status is recognized.
func (s RoomStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusInactive:
		return true
	}
	return false
}

// FutureBooking caches the nearest active booking for listing screens. It is
// a projection derived from booking records: conflict checks must never read
// it, they query bookings directly.
type FutureBooking struct {
	IsBooked   bool       `json:"is_booked"`
	BookedFrom *time.Time `json:"booked_from,omitempty"`
	BookedTo   *time.Time `json:"booked_to,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// Room is the availability projection of a hotel room. The booking engine
// reads the rate and writes status/futureBooking; everything else about rooms
// belongs to the admin CRUD outside this service.
type Room struct {
	ID               uuid.UUID
	HotelID          uuid.UUID
	Name             string
	NightlyRateCents int64
	Status           RoomStatus
	FutureBooking    FutureBooking
	UpdatedAt        time.Time
}

// Bookable reports whether new bookings may target this room at all.
// Reserved rooms stay bookable: the conflict check governs date overlap.
func (r *Room) Bookable() bool {
	return r.Status != StatusInactive
}
