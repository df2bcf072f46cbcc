package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicBookingEvents is the Kafka topic carrying booking lifecycle events.
const TopicBookingEvents = "booking.events"

// Booking lifecycle event types.
const (
	BookingCreated    = "booking.created"
	BookingConfirmed  = "booking.confirmed"
	BookingCheckedIn  = "booking.checked_in"
	BookingCheckedOut = "booking.checked_out"
	BookingCancelled  = "booking.cancelled"
	BookingNoShow     = "booking.no_show"
	BookingUpdated    = "booking.updated"
)

// BookingEvent is the payload published for every lifecycle transition.
type BookingEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	RoomID        uuid.UUID `json:"room_id"`
	HotelID       uuid.UUID `json:"hotel_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	Status        string    `json:"status"`
	CheckInDate   time.Time `json:"check_in_date"`
	CheckOutDate  time.Time `json:"check_out_date"`
	TotalCents    int64     `json:"total_cents"`
	RefundCents   int64     `json:"refund_cents,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
