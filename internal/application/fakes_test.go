package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/Harborview-Hotels/service-booking/internal/domain/booking"
	roomDomain "github.com/Harborview-Hotels/service-booking/internal/domain/room"
	"github.com/Harborview-Hotels/service-booking/internal/events"
	"github.com/Harborview-Hotels/service-booking/internal/platform/clock"
	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

// memBookingRepo is an in-memory booking.Repository. It enforces the same
// uniqueness rule as the real unique index on booking_number, surfacing
// collisions as domain.ErrRaceRetryable.
type memBookingRepo struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]*bookingDomain.Booking
	updateErr map[uuid.UUID]error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{
		bookings:  make(map[uuid.UUID]*bookingDomain.Booking),
		updateErr: make(map[uuid.UUID]error),
	}
}

func (r *memBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id.String())
	}
	return bk, nil
}

func (r *memBookingRepo) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.bookings {
		if bk.BookingNumber() == number {
			return bk, nil
		}
	}
	return nil, domain.NewNotFoundError("booking", number)
}

func (r *memBookingRepo) FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.RoomID() == roomID && bk.Status().IsActive() {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckInDate().Before(out[j].CheckInDate())
	})
	return out, nil
}

func (r *memBookingRepo) FindDueForCheckout(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		status := bk.Status()
		if (status == bookingDomain.StatusConfirmed || status == bookingDomain.StatusCheckedIn) &&
			bk.CheckOutDate().Before(now) {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckOutDate().Before(out[j].CheckOutDate())
	})
	return out, nil
}

func (r *memBookingRepo) FindDueForNoShow(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.Status() == bookingDomain.StatusPending && bk.CheckInDate().Before(now) {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckInDate().Before(out[j].CheckInDate())
	})
	return out, nil
}

func (r *memBookingRepo) FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.CustomerID() == customerID {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r *memBookingRepo) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*bookingDomain.Booking, 0, len(r.bookings))
	for _, bk := range r.bookings {
		out = append(out, bk)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BookingNumber() < out[j].BookingNumber()
	})
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r *memBookingRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *memBookingRepo) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.BookingNumber() == bk.BookingNumber() {
			return fmt.Errorf("unique constraint idx_bookings_booking_number: %w", domain.ErrRaceRetryable)
		}
	}
	r.bookings[bk.ID()] = bk
	return nil
}

func (r *memBookingRepo) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[bk.ID()]; err != nil {
		return err
	}
	if _, ok := r.bookings[bk.ID()]; !ok {
		return domain.NewNotFoundError("booking", bk.ID().String())
	}
	r.bookings[bk.ID()] = bk
	return nil
}

func (r *memBookingRepo) failUpdates(id uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr[id] = err
}

func paginate(all []*bookingDomain.Booking, page, limit int) []*bookingDomain.Booking {
	start := (page - 1) * limit
	if start >= len(all) {
		return nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// memRoomRepo is an in-memory room.Repository.
type memRoomRepo struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*roomDomain.Room
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{rooms: make(map[uuid.UUID]*roomDomain.Room)}
}

func (r *memRoomRepo) FindByID(ctx context.Context, id uuid.UUID) (*roomDomain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[id]
	if !ok {
		return nil, domain.NewNotFoundError("room", id.String())
	}
	cp := *rm
	return &cp, nil
}

func (r *memRoomRepo) UpdateAvailability(ctx context.Context, roomID uuid.UUID, status roomDomain.RoomStatus, fb roomDomain.FutureBooking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return domain.NewNotFoundError("room", roomID.String())
	}
	rm.Status = status
	rm.FutureBooking = fb
	return nil
}

func (r *memRoomRepo) FindWithStaleFutureBooking(ctx context.Context, now time.Time) ([]*roomDomain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*roomDomain.Room
	for _, rm := range r.rooms {
		if rm.FutureBooking.IsBooked && rm.FutureBooking.BookedTo != nil && rm.FutureBooking.BookedTo.Before(now) {
			cp := *rm
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRoomRepo) Save(ctx context.Context, rm *roomDomain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rm
	r.rooms[rm.ID] = &cp
	return nil
}

// memAllocator hands out sequential day-scoped numbers like the real
// allocator, serialized by a mutex instead of the database.
type memAllocator struct {
	mu       sync.Mutex
	counters map[string]int
}

func newMemAllocator() *memAllocator {
	return &memAllocator{counters: make(map[string]int)}
}

func (a *memAllocator) NextNumber(ctx context.Context, day time.Time) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := day.UTC().Format("060102")
	a.counters[key]++
	return fmt.Sprintf("%s%04d", key, a.counters[key]), nil
}

// recordingPublisher captures published event types in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, eventType string, _ events.BookingEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	copy(out, p.events)
	return out
}

// testEnv bundles a BookingService with its in-memory collaborators.
type testEnv struct {
	service   *BookingService
	bookings  *memBookingRepo
	rooms     *memRoomRepo
	allocator *memAllocator
	publisher *recordingPublisher
	clock     *clock.Fixed
}

func newTestEnv(now time.Time) *testEnv {
	env := &testEnv{
		bookings:  newMemBookingRepo(),
		rooms:     newMemRoomRepo(),
		allocator: newMemAllocator(),
		publisher: &recordingPublisher{},
		clock:     clock.NewFixed(now),
	}
	env.service = NewBookingService(
		env.bookings,
		env.rooms,
		env.allocator,
		AllowAllReferences{},
		env.publisher,
		env.clock,
		zap.NewNop(),
	)
	return env
}

func (e *testEnv) seedRoom(rateCents int64) *roomDomain.Room {
	rm := &roomDomain.Room{
		ID:               uuid.New(),
		HotelID:          uuid.New(),
		Name:             "Seaview 101",
		NightlyRateCents: rateCents,
		Status:           roomDomain.StatusAvailable,
	}
	if err := e.rooms.Save(context.Background(), rm); err != nil {
		panic(err)
	}
	return rm
}
