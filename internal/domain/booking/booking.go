package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

// Booking is the aggregate root for the reservation domain. It is the
// authoritative record of a stay; the room's availability fields are only a
// projection of bookings.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	roomID        uuid.UUID
	customerID    uuid.UUID
	hotelID       uuid.UUID

	checkInDate  time.Time
	checkOutDate time.Time
	nights       int

	status BookingStatus

	quote     Quote
	paidCents int64

	refundCents  int64
	cancelReason string
	cancelledAt  *time.Time

	notes string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a pending Booking for the given stay. Dates are
// normalized to UTC midnight and nights is always derived from them, never
// taken from input.
func NewBooking(
	bookingNumber string,
	customerID, roomID, hotelID uuid.UUID,
	checkIn, checkOut time.Time,
	quote Quote,
	notes string,
	now time.Time,
) (*Booking, error) {
	if bookingNumber == "" {
		return nil, domain.NewValidationError("booking number is required")
	}
	if customerID == uuid.Nil {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if roomID == uuid.Nil {
		return nil, domain.NewValidationError("room ID is required")
	}
	if hotelID == uuid.Nil {
		return nil, domain.NewValidationError("hotel ID is required")
	}

	checkIn = ToDay(checkIn)
	checkOut = ToDay(checkOut)
	if !checkOut.After(checkIn) {
		return nil, domain.NewValidationError("check-out date must be after check-in date")
	}
	if checkIn.Before(ToDay(now)) {
		return nil, domain.NewValidationError("check-in date cannot be in the past")
	}

	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		roomID:        roomID,
		customerID:    customerID,
		hotelID:       hotelID,
		checkInDate:   checkIn,
		checkOutDate:  checkOut,
		nights:        NightsBetween(checkIn, checkOut),
		status:        StatusPending,
		quote:         quote,
		notes:         notes,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	customerID, roomID, hotelID uuid.UUID,
	checkIn, checkOut time.Time,
	nights int,
	status BookingStatus,
	quote Quote,
	paidCents, refundCents int64,
	cancelReason string,
	cancelledAt *time.Time,
	notes string,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		bookingNumber: bookingNumber,
		roomID:        roomID,
		customerID:    customerID,
		hotelID:       hotelID,
		checkInDate:   checkIn,
		checkOutDate:  checkOut,
		nights:        nights,
		status:        status,
		quote:         quote,
		paidCents:     paidCents,
		refundCents:   refundCents,
		cancelReason:  cancelReason,
		cancelledAt:   cancelledAt,
		notes:         notes,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable, date-scoped booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// RoomID returns the booked room's ID.
func (b *Booking) RoomID() uuid.UUID { return b.roomID }

// CustomerID returns the booking customer's ID.
func (b *Booking) CustomerID() uuid.UUID { return b.customerID }

// HotelID returns the hotel ID, denormalized from the room.
func (b *Booking) HotelID() uuid.UUID { return b.hotelID }

// CheckInDate returns the stay's first occupied day (UTC midnight).
func (b *Booking) CheckInDate() time.Time { return b.checkInDate }

// CheckOutDate returns the stay's exclusive end day (UTC midnight).
func (b *Booking) CheckOutDate() time.Time { return b.checkOutDate }

// Nights returns the number of nights, derived from the dates.
func (b *Booking) Nights() int { return b.nights }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Pricing returns the price breakdown snapshot.
func (b *Booking) Pricing() Quote { return b.quote }

// PaidCents returns the amount paid so far, in cents.
func (b *Booking) PaidCents() int64 { return b.paidCents }

// RemainingCents returns the unpaid balance, in cents.
func (b *Booking) RemainingCents() int64 { return b.quote.TotalCents - b.paidCents }

// RefundCents returns the refunded amount for cancelled bookings, in cents.
func (b *Booking) RefundCents() int64 { return b.refundCents }

// CancelReason returns the cancellation reason, if any.
func (b *Booking) CancelReason() string { return b.cancelReason }

// CancelledAt returns the time the booking was cancelled, or nil.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// Notes returns free-form notes attached to the booking.
func (b *Booking) Notes() string { return b.notes }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

func (b *Booking) transition(target BookingStatus, now time.Time) error {
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidTransitionError(string(b.status), string(target))
	}
	b.status = target
	b.updatedAt = now
	return nil
}

// Confirm moves the booking from pending to confirmed.
func (b *Booking) Confirm(now time.Time) error {
	return b.transition(StatusConfirmed, now)
}

// CheckIn moves the booking from confirmed to checked_in.
func (b *Booking) CheckIn(now time.Time) error {
	return b.transition(StatusCheckedIn, now)
}

// CheckOut moves the booking from checked_in to checked_out.
func (b *Booking) CheckOut(now time.Time) error {
	return b.transition(StatusCheckedOut, now)
}

// Cancel moves the booking to cancelled and records the refund and reason.
// Eligibility (window and status) is the caller's responsibility via
// CanCancel; the state machine alone still refuses terminal states.
func (b *Booking) Cancel(reason string, refundCents int64, now time.Time) error {
	if err := b.transition(StatusCancelled, now); err != nil {
		return err
	}
	b.cancelReason = reason
	b.refundCents = refundCents
	b.cancelledAt = &now
	return nil
}

// MarkNoShow moves a pending booking to no_show. Only the reconciliation
// sweep calls this.
func (b *Booking) MarkNoShow(now time.Time) error {
	return b.transition(StatusNoShow, now)
}

// RecordPayment adds a received amount to the paid total.
func (b *Booking) RecordPayment(amountCents int64, now time.Time) error {
	if amountCents <= 0 {
		return domain.NewValidationError("payment amount must be positive")
	}
	if b.status.IsTerminal() {
		return domain.NewValidationError("cannot record payment on a closed booking")
	}
	b.paidCents += amountCents
	b.updatedAt = now
	return nil
}

// IsPaid reports whether the booking is fully paid.
func (b *Booking) IsPaid() bool { return b.paidCents >= b.quote.TotalCents }

// Reschedule changes the stay dates and re-prices the booking. Only pending
// and confirmed bookings can be edited; nights is recomputed from the new
// dates.
func (b *Booking) Reschedule(checkIn, checkOut time.Time, quote Quote, now time.Time) error {
	if b.status != StatusPending && b.status != StatusConfirmed {
		return domain.NewInvalidTransitionError(string(b.status), string(b.status))
	}

	checkIn = ToDay(checkIn)
	checkOut = ToDay(checkOut)
	if !checkOut.After(checkIn) {
		return domain.NewValidationError("check-out date must be after check-in date")
	}

	b.checkInDate = checkIn
	b.checkOutDate = checkOut
	b.nights = NightsBetween(checkIn, checkOut)
	b.quote = quote
	b.updatedAt = now
	return nil
}

// Reprice replaces the price breakdown without touching dates. Only pending
// and confirmed bookings can be edited.
func (b *Booking) Reprice(quote Quote, now time.Time) error {
	if b.status != StatusPending && b.status != StatusConfirmed {
		return domain.NewInvalidTransitionError(string(b.status), string(b.status))
	}
	b.quote = quote
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}
