package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// BookingNumberSeqModel is the GORM model backing the day-scoped booking
// number counter.
type BookingNumberSeqModel struct {
	Day     string `gorm:"primaryKey;size:6"`
	Counter int64  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingNumberSeqModel) TableName() string {
	return "booking_number_seq"
}

// GormNumberAllocator allocates booking numbers through an atomic
// increment-and-get on a per-day counter row. Two concurrent callers can
// never observe the same counter value: the upsert increments and returns in
// a single statement, which closes the read-max-then-add-one race.
type GormNumberAllocator struct {
	db *gorm.DB
}

// NewGormNumberAllocator creates a new GormNumberAllocator.
func NewGormNumberAllocator(db *gorm.DB) *GormNumberAllocator {
	return &GormNumberAllocator{db: db}
}

// NextNumber returns the next booking number for the given day, format
// YYMMDD followed by a 4-digit zero-padded sequence.
func (a *GormNumberAllocator) NextNumber(ctx context.Context, day time.Time) (string, error) {
	dayKey := day.UTC().Format("060102")

	var counter int64
	err := a.db.WithContext(ctx).Raw(
		`INSERT INTO booking_number_seq (day, counter) VALUES (?, 1)
		 ON CONFLICT (day) DO UPDATE SET counter = booking_number_seq.counter + 1
		 RETURNING counter`,
		dayKey,
	).Scan(&counter).Error
	if err != nil {
		return "", fmt.Errorf("failed to allocate booking number: %w", err)
	}

	return fmt.Sprintf("%s%04d", dayKey, counter), nil
}
