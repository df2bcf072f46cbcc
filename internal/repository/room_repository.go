package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	roomDomain "github.com/Harborview-Hotels/service-booking/internal/domain/room"
	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

// RoomModel is the GORM model for the rooms availability projection.
type RoomModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	HotelID          uuid.UUID `gorm:"type:uuid;index;not null"`
	Name             string    `gorm:"size:200"`
	NightlyRateCents int64     `gorm:"not null"`
	Status           string    `gorm:"not null;size:20;index"`

	FbIsBooked   bool       `gorm:"not null;default:false"`
	FbBookedFrom *time.Time
	FbBookedTo   *time.Time `gorm:"index"`
	FbNote       string     `gorm:"size:100"`

	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RoomModel) TableName() string {
	return "rooms"
}

// GormRoomRepository is the GORM-based implementation of room.Repository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// FindByID retrieves a room by its unique identifier.
func (r *GormRoomRepository) FindByID(ctx context.Context, id uuid.UUID) (*roomDomain.Room, error) {
	var model RoomModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Room", id.String())
		}
		return nil, fmt.Errorf("failed to find room by ID: %w", err)
	}
	return toDomainRoom(&model), nil
}

// UpdateAvailability writes the room's denormalized availability fields.
func (r *GormRoomRepository) UpdateAvailability(ctx context.Context, roomID uuid.UUID, status roomDomain.RoomStatus, fb roomDomain.FutureBooking) error {
	result := r.db.WithContext(ctx).
		Model(&RoomModel{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"status":         string(status),
			"fb_is_booked":   fb.IsBooked,
			"fb_booked_from": fb.BookedFrom,
			"fb_booked_to":   fb.BookedTo,
			"fb_note":        fb.Note,
			"updated_at":     time.Now().UTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update room availability: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Room", roomID.String())
	}
	return nil
}

// FindWithStaleFutureBooking retrieves rooms whose cached futureBooking
// window ended before now.
func (r *GormRoomRepository) FindWithStaleFutureBooking(ctx context.Context, now time.Time) ([]*roomDomain.Room, error) {
	var models []RoomModel
	if err := r.db.WithContext(ctx).
		Where("fb_is_booked = ? AND fb_booked_to < ?", true, now).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find rooms with stale future booking: %w", err)
	}

	rooms := make([]*roomDomain.Room, len(models))
	for i := range models {
		rooms[i] = toDomainRoom(&models[i])
	}
	return rooms, nil
}

// Save persists a room projection.
func (r *GormRoomRepository) Save(ctx context.Context, rm *roomDomain.Room) error {
	model := &RoomModel{
		ID:               rm.ID,
		HotelID:          rm.HotelID,
		Name:             rm.Name,
		NightlyRateCents: rm.NightlyRateCents,
		Status:           string(rm.Status),
		FbIsBooked:       rm.FutureBooking.IsBooked,
		FbBookedFrom:     rm.FutureBooking.BookedFrom,
		FbBookedTo:       rm.FutureBooking.BookedTo,
		FbNote:           rm.FutureBooking.Note,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	return nil
}

func toDomainRoom(m *RoomModel) *roomDomain.Room {
	return &roomDomain.Room{
		ID:               m.ID,
		HotelID:          m.HotelID,
		Name:             m.Name,
		NightlyRateCents: m.NightlyRateCents,
		Status:           roomDomain.RoomStatus(m.Status),
		FutureBooking: roomDomain.FutureBooking{
			IsBooked:   m.FbIsBooked,
			BookedFrom: m.FbBookedFrom,
			BookedTo:   m.FbBookedTo,
			Note:       m.FbNote,
		},
		UpdatedAt: m.UpdatedAt,
	}
}
