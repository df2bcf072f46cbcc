package booking

import (
	"time"

	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

// Quote is the computed price breakdown for a stay. All amounts are in cents.
type Quote struct {
	NightlyRateCents int64 `json:"nightly_rate_cents"`
	RoomTotalCents   int64 `json:"room_total_cents"`
	DiscountCents    int64 `json:"discount_cents"`
	TotalCents       int64 `json:"total_cents"`
}

// Price computes the quote for a stay. The total is nightlyRate*nights minus
// the discount, clamped at zero, unless overrideTotal is set.
func Price(nightlyRateCents int64, nights int, discountCents int64, overrideTotalCents *int64) (Quote, error) {
	if nightlyRateCents < 0 {
		return Quote{}, domain.NewValidationError("nightly rate cannot be negative")
	}
	if nights < 1 {
		return Quote{}, domain.NewValidationError("stay must cover at least one night")
	}
	if discountCents < 0 {
		return Quote{}, domain.NewValidationError("discount cannot be negative")
	}

	roomTotal := nightlyRateCents * int64(nights)

	total := roomTotal - discountCents
	if total < 0 {
		total = 0
	}
	if overrideTotalCents != nil {
		if *overrideTotalCents < 0 {
			return Quote{}, domain.NewValidationError("total override cannot be negative")
		}
		total = *overrideTotalCents
	}

	return Quote{
		NightlyRateCents: nightlyRateCents,
		RoomTotalCents:   roomTotal,
		DiscountCents:    discountCents,
		TotalCents:       total,
	}, nil
}

// Tiered refund policy: full above 48h before check-in, half between 24h and
// 48h inclusive of the 48h mark, nothing at or under 24h.
const (
	fullRefundHours = 48
	halfRefundHours = 24
)

// RefundAmount returns the refundable portion of totalCents for a
// cancellation happening at now.
func RefundAmount(totalCents int64, checkIn, now time.Time) int64 {
	hours := checkIn.Sub(now).Hours()
	switch {
	case hours > fullRefundHours:
		return totalCents
	case hours > halfRefundHours:
		return totalCents / 2
	default:
		return 0
	}
}

// CanCancel reports whether a booking in the given status may still be
// cancelled at now. Eligibility is stricter than the refund schedule: at
// exactly 24 hours before check-in a half refund would still compute, but
// cancellation itself is already closed.
func CanCancel(status BookingStatus, checkIn, now time.Time) bool {
	if status != StatusPending && status != StatusConfirmed {
		return false
	}
	return checkIn.Sub(now).Hours() > halfRefundHours
}
