package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	bookingDomain "github.com/Harborview-Hotels/service-booking/internal/domain/booking"
	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

const pgUniqueViolation = "23505"

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingNumber string    `gorm:"uniqueIndex;not null;size:20"`
	RoomID        uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_room_stay"`
	CustomerID    uuid.UUID `gorm:"type:uuid;index;not null"`
	HotelID       uuid.UUID `gorm:"type:uuid;index;not null"`

	// idx_room_stay is a partial unique index over active statuses only:
	// a cancelled or closed stay must not block re-booking the same dates.
	CheckInDate  time.Time `gorm:"not null;uniqueIndex:idx_room_stay,where:status IN ('pending','confirmed','checked_in')"`
	CheckOutDate time.Time `gorm:"not null;uniqueIndex:idx_room_stay"`
	Nights       int       `gorm:"not null"`

	Status string `gorm:"not null;size:30;index"`

	NightlyRateCents int64 `gorm:"not null"`
	RoomTotalCents   int64 `gorm:"not null"`
	DiscountCents    int64 `gorm:"not null;default:0"`
	TotalCents       int64 `gorm:"not null"`
	PaidCents        int64 `gorm:"not null;default:0"`

	RefundCents  int64      `gorm:"not null;default:0"`
	CancelReason string     `gorm:"size:500"`
	CancelledAt  *time.Time

	Notes string `gorm:"size:1000"`

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

var activeStatusStrings = func() []string {
	statuses := bookingDomain.ActiveStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}()

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", number)
		}
		return nil, fmt.Errorf("failed to find booking by number: %w", err)
	}
	return toDomainBooking(&model)
}

// FindActiveByRoom retrieves active bookings for a room ordered ascending by
// check-in date.
func (r *GormBookingRepository) FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("room_id = ? AND status IN ?", roomID, activeStatusStrings).
		Order("check_in_date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find active bookings for room: %w", err)
	}
	return toDomainBookings(models)
}

// FindDueForCheckout retrieves confirmed or checked_in bookings whose
// check-out date has passed.
func (r *GormBookingRepository) FindDueForCheckout(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND check_out_date < ?",
			[]string{string(bookingDomain.StatusConfirmed), string(bookingDomain.StatusCheckedIn)}, now).
		Order("check_out_date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings due for checkout: %w", err)
	}
	return toDomainBookings(models)
}

// FindDueForNoShow retrieves pending bookings whose check-in date has passed.
// A pending booking is by definition one whose payment was never confirmed.
func (r *GormBookingRepository) FindDueForNoShow(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND check_in_date < ?", string(bookingDomain.StatusPending), now).
		Order("check_in_date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings due for no-show: %w", err)
	}
	return toDomainBookings(models)
}

// FindByCustomerID retrieves bookings for a customer with pagination.
func (r *GormBookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("customer_id = ?", customerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customer bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find customer bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking. Unique-constraint violations (duplicate
// booking number, exact-duplicate stay on the same room) surface as
// domain.ErrRaceRetryable so the creation path can retry.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("unique constraint %s: %w", pgErr.ConstraintName, domain.ErrRaceRetryable)
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// Only update if the version matches (current version - 1, since
	// IncrementVersion was called before persisting).
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"check_in_date":      model.CheckInDate,
			"check_out_date":     model.CheckOutDate,
			"nights":             model.Nights,
			"status":             model.Status,
			"nightly_rate_cents": model.NightlyRateCents,
			"room_total_cents":   model.RoomTotalCents,
			"discount_cents":     model.DiscountCents,
			"total_cents":        model.TotalCents,
			"paid_cents":         model.PaidCents,
			"refund_cents":       model.RefundCents,
			"cancel_reason":      model.CancelReason,
			"cancelled_at":       model.CancelledAt,
			"notes":              model.Notes,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("booking modified by another transaction: %w", domain.ErrRaceRetryable)
	}
	return nil
}

// --- Conversion helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:               bk.ID(),
		BookingNumber:    bk.BookingNumber(),
		RoomID:           bk.RoomID(),
		CustomerID:       bk.CustomerID(),
		HotelID:          bk.HotelID(),
		CheckInDate:      bk.CheckInDate(),
		CheckOutDate:     bk.CheckOutDate(),
		Nights:           bk.Nights(),
		Status:           string(bk.Status()),
		NightlyRateCents: bk.Pricing().NightlyRateCents,
		RoomTotalCents:   bk.Pricing().RoomTotalCents,
		DiscountCents:    bk.Pricing().DiscountCents,
		TotalCents:       bk.Pricing().TotalCents,
		PaidCents:        bk.PaidCents(),
		RefundCents:      bk.RefundCents(),
		CancelReason:     bk.CancelReason(),
		CancelledAt:      bk.CancelledAt(),
		Notes:            bk.Notes(),
		Version:          bk.Version(),
		CreatedAt:        bk.CreatedAt(),
		UpdatedAt:        bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	quote := bookingDomain.Quote{
		NightlyRateCents: m.NightlyRateCents,
		RoomTotalCents:   m.RoomTotalCents,
		DiscountCents:    m.DiscountCents,
		TotalCents:       m.TotalCents,
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.CustomerID,
		m.RoomID,
		m.HotelID,
		m.CheckInDate.UTC(),
		m.CheckOutDate.UTC(),
		m.Nights,
		status,
		quote,
		m.PaidCents,
		m.RefundCents,
		m.CancelReason,
		m.CancelledAt,
		m.Notes,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
