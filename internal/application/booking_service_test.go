package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingDomain "github.com/Harborview-Hotels/service-booking/internal/domain/booking"
	roomDomain "github.com/Harborview-Hotels/service-booking/internal/domain/room"
	"github.com/Harborview-Hotels/service-booking/internal/events"
	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var testNow = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func createReq(roomID uuid.UUID, checkIn, checkOut time.Time) CreateBookingRequest {
	return CreateBookingRequest{
		RoomID:          roomID,
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		PaymentMethodID: uuid.New(),
	}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a priced pending booking", func(t *testing.T) {
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)

		req := createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 13))
		req.DiscountCents = 5000
		dto, err := env.service.CreateBooking(ctx, uuid.New(), req)
		require.NoError(t, err)

		assert.Equal(t, "2401050001", dto.BookingNumber)
		assert.Equal(t, string(bookingDomain.StatusPending), dto.Status)
		assert.Equal(t, 3, dto.Nights)
		assert.Equal(t, int64(60000), dto.Pricing.RoomTotalCents)
		assert.Equal(t, int64(55000), dto.Pricing.TotalCents)
		assert.Equal(t, []string{events.BookingCreated}, env.publisher.published())

		// The room projection now caches the stay.
		got, err := env.rooms.FindByID(ctx, rm.ID)
		require.NoError(t, err)
		assert.Equal(t, roomDomain.StatusReserved, got.Status)
		require.NotNil(t, got.FutureBooking.BookedFrom)
		assert.Equal(t, day(2024, 1, 10), *got.FutureBooking.BookedFrom)
		assert.Equal(t, dto.BookingNumber, got.FutureBooking.Note)
	})

	t.Run("rejects overlapping stay with conflict windows", func(t *testing.T) {
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)

		first, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
		require.NoError(t, err)

		_, err = env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 11), day(2024, 1, 13)))
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		require.Len(t, conflictErr.Windows, 1)
		assert.Equal(t, first.BookingNumber, conflictErr.Windows[0].Ref)
		assert.Equal(t, day(2024, 1, 10), conflictErr.Windows[0].From)
		assert.Equal(t, day(2024, 1, 12), conflictErr.Windows[0].To)
	})

	t.Run("allows back-to-back stays", func(t *testing.T) {
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)

		_, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
		require.NoError(t, err)

		_, err = env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 12), day(2024, 1, 14)))
		assert.NoError(t, err)
	})

	t.Run("rejects inactive room", func(t *testing.T) {
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)
		rm.Status = roomDomain.StatusInactive
		require.NoError(t, env.rooms.Save(ctx, rm))

		_, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("rejects unknown room", func(t *testing.T) {
		env := newTestEnv(testNow)
		_, err := env.service.CreateBooking(ctx, uuid.New(), createReq(uuid.New(), day(2024, 1, 10), day(2024, 1, 12)))
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("rejects invalid dates before touching storage", func(t *testing.T) {
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)

		_, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 12), day(2024, 1, 10)))
		assert.True(t, domain.IsValidation(err))

		_, err = env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 2), day(2024, 1, 6)))
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("retries with a fresh number on collision", func(t *testing.T) {
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)
		other := env.seedRoom(20000)

		// Occupy the number the allocator will hand out first.
		taken, err := bookingDomain.NewBooking("2401050001", uuid.New(), other.ID, other.HotelID,
			day(2024, 2, 1), day(2024, 2, 3),
			bookingDomain.Quote{NightlyRateCents: 20000, RoomTotalCents: 40000, TotalCents: 40000},
			"", testNow)
		require.NoError(t, err)
		require.NoError(t, env.bookings.Save(ctx, taken))

		dto, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
		require.NoError(t, err)
		assert.Equal(t, "2401050002", dto.BookingNumber)
	})
}

func TestCreateBookingConcurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("same dates admit exactly one booking", func(t *testing.T) {
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)

		const workers = 8
		results := make(chan error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok, conflicts int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case domain.IsConflict(err):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, workers-1, conflicts)
	})

	t.Run("booking numbers stay unique across rooms", func(t *testing.T) {
		env := newTestEnv(testNow)

		const workers = 16
		numbers := make(chan string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			rm := env.seedRoom(20000)
			wg.Add(1)
			go func(roomID uuid.UUID) {
				defer wg.Done()
				dto, err := env.service.CreateBooking(ctx, uuid.New(), createReq(roomID, day(2024, 1, 10), day(2024, 1, 12)))
				if err != nil {
					t.Error(err)
					return
				}
				numbers <- dto.BookingNumber
			}(rm.ID)
		}
		wg.Wait()
		close(numbers)

		seen := make(map[string]bool)
		for n := range numbers {
			assert.False(t, seen[n], "duplicate booking number %s", n)
			seen[n] = true
			assert.Regexp(t, `^240105\d{4}$`, n)
		}
		assert.Len(t, seen, workers)
	})
}

func TestUpdateBooking(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, *roomDomain.Room, *BookingDTO) {
		t.Helper()
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)
		dto, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
		require.NoError(t, err)
		return env, rm, dto
	}

	t.Run("reschedules and reprices", func(t *testing.T) {
		env, _, dto := setup(t)

		newIn, newOut := day(2024, 1, 15), day(2024, 1, 19)
		updated, err := env.service.UpdateBooking(ctx, dto.ID, UpdateBookingRequest{
			CheckInDate:  &newIn,
			CheckOutDate: &newOut,
		})
		require.NoError(t, err)

		assert.Equal(t, 4, updated.Nights)
		assert.Equal(t, int64(80000), updated.Pricing.TotalCents)
		assert.Equal(t, dto.Version+1, updated.Version)
	})

	t.Run("conflict check excludes the booking itself", func(t *testing.T) {
		env, _, dto := setup(t)

		// Shifting one day within its own window must not self-conflict.
		newOut := day(2024, 1, 13)
		_, err := env.service.UpdateBooking(ctx, dto.ID, UpdateBookingRequest{CheckOutDate: &newOut})
		assert.NoError(t, err)
	})

	t.Run("rejects moving onto another booking", func(t *testing.T) {
		env, rm, dto := setup(t)

		_, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 20), day(2024, 1, 22)))
		require.NoError(t, err)

		newIn, newOut := day(2024, 1, 19), day(2024, 1, 21)
		_, err = env.service.UpdateBooking(ctx, dto.ID, UpdateBookingRequest{
			CheckInDate:  &newIn,
			CheckOutDate: &newOut,
		})
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("discount patch without date change reprices only", func(t *testing.T) {
		env, _, dto := setup(t)

		discount := int64(10000)
		updated, err := env.service.UpdateBooking(ctx, dto.ID, UpdateBookingRequest{DiscountCents: &discount})
		require.NoError(t, err)
		assert.Equal(t, int64(30000), updated.Pricing.TotalCents)
		assert.Equal(t, dto.CheckInDate, updated.CheckInDate)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, checkIn, checkOut time.Time) (*testEnv, *roomDomain.Room, *BookingDTO) {
		t.Helper()
		env := newTestEnv(testNow)
		rm := env.seedRoom(20000)
		dto, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, checkIn, checkOut))
		require.NoError(t, err)
		return env, rm, dto
	}

	t.Run("full refund well before check-in", func(t *testing.T) {
		env, rm, dto := setup(t, day(2024, 1, 10), day(2024, 1, 12))

		result, err := env.service.CancelBooking(ctx, dto.ID, "change of plans")
		require.NoError(t, err)
		assert.Equal(t, int64(40000), result.RefundCents)
		assert.Equal(t, string(bookingDomain.StatusCancelled), result.Booking.Status)
		assert.Equal(t, "change of plans", result.Booking.CancelReason)

		// Cancelling the only booking frees the room.
		got, err := env.rooms.FindByID(ctx, rm.ID)
		require.NoError(t, err)
		assert.Equal(t, roomDomain.StatusAvailable, got.Status)
		assert.False(t, got.FutureBooking.IsBooked)
	})

	t.Run("half refund between 24 and 48 hours out", func(t *testing.T) {
		env, _, dto := setup(t, day(2024, 1, 10), day(2024, 1, 12))

		// 34 hours before check-in.
		env.clock.Set(day(2024, 1, 10).Add(-34 * time.Hour))
		result, err := env.service.CancelBooking(ctx, dto.ID, "late change")
		require.NoError(t, err)
		assert.Equal(t, int64(20000), result.RefundCents)
	})

	t.Run("window closed inside 24 hours", func(t *testing.T) {
		env, _, dto := setup(t, day(2024, 1, 10), day(2024, 1, 12))

		env.clock.Set(day(2024, 1, 10).Add(-23 * time.Hour))
		_, err := env.service.CancelBooking(ctx, dto.ID, "too late")
		var notCancellable *domain.NotCancellableError
		require.ErrorAs(t, err, &notCancellable)
		assert.Contains(t, notCancellable.Reason, "window")
	})

	t.Run("checked-in booking is not cancellable", func(t *testing.T) {
		env, _, dto := setup(t, day(2024, 1, 10), day(2024, 1, 12))

		_, err := env.service.ConfirmBooking(ctx, dto.ID)
		require.NoError(t, err)
		_, err = env.service.CheckInBooking(ctx, dto.ID)
		require.NoError(t, err)

		_, err = env.service.CancelBooking(ctx, dto.ID, "changed my mind")
		var notCancellable *domain.NotCancellableError
		require.ErrorAs(t, err, &notCancellable)
		assert.Contains(t, notCancellable.Reason, "status")
	})

	t.Run("cancelling rolls the room cache to the next booking", func(t *testing.T) {
		env, rm, first := setup(t, day(2024, 1, 10), day(2024, 1, 12))

		second, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 20), day(2024, 1, 22)))
		require.NoError(t, err)

		_, err = env.service.CancelBooking(ctx, first.ID, "freeing up")
		require.NoError(t, err)

		got, err := env.rooms.FindByID(ctx, rm.ID)
		require.NoError(t, err)
		assert.Equal(t, roomDomain.StatusReserved, got.Status)
		assert.Equal(t, second.BookingNumber, got.FutureBooking.Note)
		require.NotNil(t, got.FutureBooking.BookedFrom)
		assert.Equal(t, day(2024, 1, 20), *got.FutureBooking.BookedFrom)
	})
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testNow)
	rm := env.seedRoom(20000)

	dto, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
	require.NoError(t, err)

	// Staff cannot check in a pending booking.
	_, err = env.service.CheckInBooking(ctx, dto.ID)
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	confirmed, err := env.service.ConfirmBooking(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, string(bookingDomain.StatusConfirmed), confirmed.Status)

	checkedIn, err := env.service.CheckInBooking(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, string(bookingDomain.StatusCheckedIn), checkedIn.Status)

	checkedOut, err := env.service.CheckOutBooking(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, string(bookingDomain.StatusCheckedOut), checkedOut.Status)

	assert.Equal(t, []string{
		events.BookingCreated,
		events.BookingConfirmed,
		events.BookingCheckedIn,
		events.BookingCheckedOut,
	}, env.publisher.published())

	// Checking out the only booking frees the room.
	got, err := env.rooms.FindByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, roomDomain.StatusAvailable, got.Status)
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testNow)
	rm := env.seedRoom(20000)

	dto, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
	require.NoError(t, err)
	require.Equal(t, int64(40000), dto.Pricing.TotalCents)

	partial, err := env.service.RecordPayment(ctx, dto.ID, 15000)
	require.NoError(t, err)
	assert.Equal(t, string(bookingDomain.StatusPending), partial.Status)
	assert.Equal(t, int64(25000), partial.RemainingCents)

	// Full payment auto-confirms.
	paid, err := env.service.RecordPayment(ctx, dto.ID, 25000)
	require.NoError(t, err)
	assert.Equal(t, string(bookingDomain.StatusConfirmed), paid.Status)
	assert.Equal(t, int64(0), paid.RemainingCents)
	assert.Contains(t, env.publisher.published(), events.BookingConfirmed)

	_, err = env.service.RecordPayment(ctx, dto.ID, -100)
	assert.True(t, domain.IsValidation(err))
}

func TestGetCustomerBookings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testNow)
	customerID := uuid.New()

	for i := 0; i < 3; i++ {
		rm := env.seedRoom(20000)
		_, err := env.service.CreateBooking(ctx, customerID, createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
		require.NoError(t, err)
	}
	otherRoom := env.seedRoom(20000)
	_, err := env.service.CreateBooking(ctx, uuid.New(), createReq(otherRoom.ID, day(2024, 1, 10), day(2024, 1, 12)))
	require.NoError(t, err)

	page, err := env.service.GetCustomerBookings(ctx, customerID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
}

func TestGetBookingStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testNow)

	rmA := env.seedRoom(20000)
	rmB := env.seedRoom(20000)
	first, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rmA.ID, day(2024, 1, 10), day(2024, 1, 12)))
	require.NoError(t, err)
	_, err = env.service.CreateBooking(ctx, uuid.New(), createReq(rmB.ID, day(2024, 1, 10), day(2024, 1, 12)))
	require.NoError(t, err)
	_, err = env.service.ConfirmBooking(ctx, first.ID)
	require.NoError(t, err)

	stats, err := env.service.GetBookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.ByStatus[string(bookingDomain.StatusPending)])
	assert.Equal(t, int64(1), stats.ByStatus[string(bookingDomain.StatusConfirmed)])
}

func TestUpdateFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testNow)
	rm := env.seedRoom(20000)

	dto, err := env.service.CreateBooking(ctx, uuid.New(), createReq(rm.ID, day(2024, 1, 10), day(2024, 1, 12)))
	require.NoError(t, err)

	env.bookings.failUpdates(dto.ID, fmt.Errorf("connection reset"))
	_, err = env.service.ConfirmBooking(ctx, dto.ID)
	assert.EqualError(t, err, "connection reset")
}
