package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/Harborview-Hotels/service-booking/internal/domain/booking"
	roomDomain "github.com/Harborview-Hotels/service-booking/internal/domain/room"
	"github.com/Harborview-Hotels/service-booking/internal/events"
	"github.com/Harborview-Hotels/service-booking/internal/platform/clock"
	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

// maxNumberRetries bounds retries after a booking-number collision.
const maxNumberRetries = 3

// ReferenceChecker verifies that externally-owned references exist. Customer
// and payment-method records belong to other services; the engine only needs
// existence checks.
type ReferenceChecker interface {
	CustomerExists(ctx context.Context, id uuid.UUID) (bool, error)
	PaymentMethodExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// AllowAllReferences accepts every reference. Used when reference ownership
// is enforced upstream at the API gateway.
type AllowAllReferences struct{}

// CustomerExists always reports true.
func (AllowAllReferences) CustomerExists(context.Context, uuid.UUID) (bool, error) {
	return true, nil
}

// PaymentMethodExists always reports true.
func (AllowAllReferences) PaymentMethodExists(context.Context, uuid.UUID) (bool, error) {
	return true, nil
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	RoomID          uuid.UUID `json:"room_id" binding:"required"`
	CheckInDate     time.Time `json:"check_in_date" binding:"required"`
	CheckOutDate    time.Time `json:"check_out_date" binding:"required"`
	PaymentMethodID uuid.UUID `json:"payment_method_id" binding:"required"`
	DiscountCents   int64     `json:"discount_cents"`
	Notes           string    `json:"notes"`
}

// UpdateBookingRequest is a patch applied to a pending or confirmed booking.
// Nil fields are left unchanged.
type UpdateBookingRequest struct {
	CheckInDate        *time.Time `json:"check_in_date"`
	CheckOutDate       *time.Time `json:"check_out_date"`
	DiscountCents      *int64     `json:"discount_cents"`
	TotalOverrideCents *int64     `json:"total_override_cents"`
	Notes              *string    `json:"notes"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID             uuid.UUID          `json:"id"`
	BookingNumber  string             `json:"booking_number"`
	RoomID         uuid.UUID          `json:"room_id"`
	HotelID        uuid.UUID          `json:"hotel_id"`
	CustomerID     uuid.UUID          `json:"customer_id"`
	Status         string             `json:"status"`
	CheckInDate    time.Time          `json:"check_in_date"`
	CheckOutDate   time.Time          `json:"check_out_date"`
	Nights         int                `json:"nights"`
	Pricing        bookingDomain.Quote `json:"pricing"`
	PaidCents      int64              `json:"paid_cents"`
	RemainingCents int64              `json:"remaining_cents"`
	RefundCents    int64              `json:"refund_cents,omitempty"`
	CancelReason   string             `json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	Version        int64              `json:"version"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// CancellationResult is returned from CancelBooking.
type CancellationResult struct {
	Booking     BookingDTO `json:"booking"`
	RefundCents int64      `json:"refund_cents"`
}

// BookingService is the application service orchestrating the booking
// lifecycle. All business rules live here and in the domain package; the
// HTTP handlers stay thin shells around it.
type BookingService struct {
	bookings  bookingDomain.Repository
	rooms     roomDomain.Repository
	numbers   bookingDomain.NumberAllocator
	refs      ReferenceChecker
	publisher events.Publisher
	clock     clock.Clock
	logger    *zap.Logger
	locks     *roomLocks
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings bookingDomain.Repository,
	rooms roomDomain.Repository,
	numbers bookingDomain.NumberAllocator,
	refs ReferenceChecker,
	publisher events.Publisher,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:  bookings,
		rooms:     rooms,
		numbers:   numbers,
		refs:      refs,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		locks:     newRoomLocks(),
	}
}

// CreateBooking validates the requested stay, checks for conflicts, prices
// it, and persists a pending booking. The conflict check and insert run
// under the room's lock so two overlapping requests cannot both pass the
// check before either commits.
func (s *BookingService) CreateBooking(ctx context.Context, customerID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	now := s.clock.Now()

	checkIn := bookingDomain.ToDay(req.CheckInDate)
	checkOut := bookingDomain.ToDay(req.CheckOutDate)
	if !checkOut.After(checkIn) {
		return nil, domain.NewValidationError("check-out date must be after check-in date")
	}
	if checkIn.Before(bookingDomain.ToDay(now)) {
		return nil, domain.NewValidationError("check-in date cannot be in the past")
	}

	if err := s.checkReferences(ctx, customerID, req.PaymentMethodID); err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(req.RoomID)
	defer unlock()

	rm, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !rm.Bookable() {
		return nil, domain.NewValidationError("room is not available for booking")
	}

	actives, err := s.bookings.FindActiveByRoom(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active bookings: %w", err)
	}
	if conflicts := bookingDomain.ConflictsWith(actives, checkIn, checkOut, ""); len(conflicts) > 0 {
		return nil, domain.NewConflictError("room is already booked for the requested dates", toWindows(conflicts))
	}

	quote, err := bookingDomain.Price(
		rm.NightlyRateCents,
		bookingDomain.NightsBetween(checkIn, checkOut),
		req.DiscountCents,
		nil,
	)
	if err != nil {
		return nil, err
	}

	bk, err := s.createWithFreshNumber(ctx, customerID, rm, checkIn, checkOut, quote, req.Notes, now)
	if err != nil {
		return nil, err
	}

	if err := s.syncRoomLocked(ctx, rm.ID); err != nil {
		s.logger.Error("failed to sync room after create",
			zap.String("room_id", rm.ID.String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, events.BookingCreated, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// createWithFreshNumber persists a new booking, retrying with a freshly
// allocated number when the unique index reports a collision.
func (s *BookingService) createWithFreshNumber(
	ctx context.Context,
	customerID uuid.UUID,
	rm *roomDomain.Room,
	checkIn, checkOut time.Time,
	quote bookingDomain.Quote,
	notes string,
	now time.Time,
) (*bookingDomain.Booking, error) {
	var lastErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		number, err := s.numbers.NextNumber(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate booking number: %w", err)
		}

		bk, err := bookingDomain.NewBooking(number, customerID, rm.ID, rm.HotelID, checkIn, checkOut, quote, notes, now)
		if err != nil {
			return nil, err
		}

		if err := s.bookings.Save(ctx, bk); err != nil {
			if errors.Is(err, domain.ErrRaceRetryable) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return bk, nil
	}
	return nil, fmt.Errorf("exhausted booking number retries: %w", lastErr)
}

// UpdateBooking applies a date or price patch to a pending or confirmed
// booking, re-running the conflict check against the new interval.
func (s *BookingService) UpdateBooking(ctx context.Context, id uuid.UUID, req UpdateBookingRequest) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(bk.RoomID())
	defer unlock()

	// Reload under the lock so the conflict check sees the committed state.
	bk, err = s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	checkIn := bk.CheckInDate()
	checkOut := bk.CheckOutDate()
	datesChanged := false
	if req.CheckInDate != nil {
		checkIn = bookingDomain.ToDay(*req.CheckInDate)
		datesChanged = true
	}
	if req.CheckOutDate != nil {
		checkOut = bookingDomain.ToDay(*req.CheckOutDate)
		datesChanged = true
	}
	if !checkOut.After(checkIn) {
		return nil, domain.NewValidationError("check-out date must be after check-in date")
	}

	if datesChanged {
		actives, err := s.bookings.FindActiveByRoom(ctx, bk.RoomID())
		if err != nil {
			return nil, fmt.Errorf("failed to load active bookings: %w", err)
		}
		if conflicts := bookingDomain.ConflictsWith(actives, checkIn, checkOut, bk.ID().String()); len(conflicts) > 0 {
			return nil, domain.NewConflictError("room is already booked for the requested dates", toWindows(conflicts))
		}
	}

	discount := bk.Pricing().DiscountCents
	if req.DiscountCents != nil {
		discount = *req.DiscountCents
	}

	quote, err := bookingDomain.Price(
		bk.Pricing().NightlyRateCents,
		bookingDomain.NightsBetween(checkIn, checkOut),
		discount,
		req.TotalOverrideCents,
	)
	if err != nil {
		return nil, err
	}

	if datesChanged {
		if err := bk.Reschedule(checkIn, checkOut, quote, now); err != nil {
			return nil, err
		}
	} else if err := bk.Reprice(quote, now); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	if err := s.syncRoomLocked(ctx, bk.RoomID()); err != nil {
		s.logger.Error("failed to sync room after update",
			zap.String("room_id", bk.RoomID().String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, events.BookingUpdated, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels an eligible booking and computes the tiered refund.
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*CancellationResult, error) {
	bk, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !bookingDomain.CanCancel(bk.Status(), bk.CheckInDate(), now) {
		if bk.Status() != bookingDomain.StatusPending && bk.Status() != bookingDomain.StatusConfirmed {
			return nil, domain.NewNotCancellableError(
				fmt.Sprintf("booking in status %s cannot be cancelled", bk.Status()))
		}
		return nil, domain.NewNotCancellableError("cancellation window has closed (less than 24 hours before check-in)")
	}

	refund := bookingDomain.RefundAmount(bk.Pricing().TotalCents, bk.CheckInDate(), now)

	unlock := s.locks.acquire(bk.RoomID())
	defer unlock()

	if err := bk.Cancel(reason, refund, now); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	if err := s.syncRoomLocked(ctx, bk.RoomID()); err != nil {
		s.logger.Error("failed to sync room after cancel",
			zap.String("room_id", bk.RoomID().String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, events.BookingCancelled, bk)

	return &CancellationResult{Booking: toBookingDTO(bk), RefundCents: refund}, nil
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *BookingService) ConfirmBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	return s.applyTransition(ctx, id, events.BookingConfirmed, func(bk *bookingDomain.Booking, now time.Time) error {
		return bk.Confirm(now)
	})
}

// CheckInBooking marks the guest as arrived.
func (s *BookingService) CheckInBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	return s.applyTransition(ctx, id, events.BookingCheckedIn, func(bk *bookingDomain.Booking, now time.Time) error {
		return bk.CheckIn(now)
	})
}

// CheckOutBooking marks the stay as finished.
func (s *BookingService) CheckOutBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	return s.applyTransition(ctx, id, events.BookingCheckedOut, func(bk *bookingDomain.Booking, now time.Time) error {
		return bk.CheckOut(now)
	})
}

// RecordPayment records a received payment and confirms the booking once it
// is fully paid.
func (s *BookingService) RecordPayment(ctx context.Context, id uuid.UUID, amountCents int64) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := bk.RecordPayment(amountCents, now); err != nil {
		return nil, err
	}

	confirmed := false
	if bk.Status() == bookingDomain.StatusPending && bk.IsPaid() {
		if err := bk.Confirm(now); err != nil {
			return nil, err
		}
		confirmed = true
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	if confirmed {
		s.publish(ctx, events.BookingConfirmed, bk)
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetCustomerBookings retrieves paginated bookings for a customer.
func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.bookings.FindByCustomerID(ctx, customerID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.bookings.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toBookingDTOs(bookings), total, nil
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

// applyTransition runs a state-machine transition under the room lock and
// resynchronizes the room projection afterwards.
func (s *BookingService) applyTransition(
	ctx context.Context,
	id uuid.UUID,
	eventType string,
	apply func(*bookingDomain.Booking, time.Time) error,
) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(bk.RoomID())
	defer unlock()

	if err := apply(bk, s.clock.Now()); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	if err := s.syncRoomLocked(ctx, bk.RoomID()); err != nil {
		s.logger.Error("failed to sync room after transition",
			zap.String("room_id", bk.RoomID().String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, eventType, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

func (s *BookingService) checkReferences(ctx context.Context, customerID, paymentMethodID uuid.UUID) error {
	if customerID == uuid.Nil {
		return domain.NewValidationError("customer ID is required")
	}
	if paymentMethodID == uuid.Nil {
		return domain.NewValidationError("payment method ID is required")
	}

	ok, err := s.refs.CustomerExists(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to check customer: %w", err)
	}
	if !ok {
		return domain.NewValidationError("unknown customer")
	}

	ok, err = s.refs.PaymentMethodExists(ctx, paymentMethodID)
	if err != nil {
		return fmt.Errorf("failed to check payment method: %w", err)
	}
	if !ok {
		return domain.NewValidationError("unknown payment method")
	}
	return nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, bk *bookingDomain.Booking) {
	s.publisher.PublishBookingEvent(ctx, eventType, events.BookingEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		RoomID:        bk.RoomID(),
		HotelID:       bk.HotelID(),
		CustomerID:    bk.CustomerID(),
		Status:        string(bk.Status()),
		CheckInDate:   bk.CheckInDate(),
		CheckOutDate:  bk.CheckOutDate(),
		TotalCents:    bk.Pricing().TotalCents,
		RefundCents:   bk.RefundCents(),
		OccurredAt:    s.clock.Now(),
	})
}

// --- Helpers ---

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:             bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		RoomID:         bk.RoomID(),
		HotelID:        bk.HotelID(),
		CustomerID:     bk.CustomerID(),
		Status:         string(bk.Status()),
		CheckInDate:    bk.CheckInDate(),
		CheckOutDate:   bk.CheckOutDate(),
		Nights:         bk.Nights(),
		Pricing:        bk.Pricing(),
		PaidCents:      bk.PaidCents(),
		RemainingCents: bk.RemainingCents(),
		RefundCents:    bk.RefundCents(),
		CancelReason:   bk.CancelReason(),
		CancelledAt:    bk.CancelledAt(),
		Notes:          bk.Notes(),
		Version:        bk.Version(),
		CreatedAt:      bk.CreatedAt(),
		UpdatedAt:      bk.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func toWindows(conflicts []*bookingDomain.Booking) []domain.BookingWindow {
	windows := make([]domain.BookingWindow, len(conflicts))
	for i, c := range conflicts {
		windows[i] = domain.BookingWindow{
			Ref:  c.BookingNumber(),
			From: c.CheckInDate(),
			To:   c.CheckOutDate(),
		}
	}
	return windows
}
