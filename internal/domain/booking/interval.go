package booking

import "time"

// Stays are half-open intervals [checkIn, checkOut): the check-in day is
// occupied, the check-out day is free for same-day turnover.

// ToDay normalizes a timestamp to UTC midnight of its calendar day.
func ToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NightsBetween returns the number of nights covered by [checkIn, checkOut),
// rounding partial days up.
func NightsBetween(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		nights++
	}
	return nights
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ConflictsWith filters the given bookings down to those whose stay overlaps
// [checkIn, checkOut), skipping excludeID. The bookings passed in must
// already be limited to active statuses.
func ConflictsWith(existing []*Booking, checkIn, checkOut time.Time, excludeID string) []*Booking {
	var conflicts []*Booking
	for _, b := range existing {
		if excludeID != "" && b.ID().String() == excludeID {
			continue
		}
		if Overlaps(b.CheckInDate(), b.CheckOutDate(), checkIn, checkOut) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}

// NextAvailableDate finds the earliest check-in date on or after earliestFrom
// that leaves room for desiredNights nights, given the room's active bookings
// sorted ascending by check-in. A single forward scan suffices: gaps are
// visited in chronological order, so the first fitting gap is the earliest.
func NextAvailableDate(sorted []*Booking, desiredNights int, earliestFrom, now time.Time) time.Time {
	cursor := ToDay(earliestFrom)
	if today := ToDay(now); cursor.Before(today) {
		cursor = today
	}

	for _, b := range sorted {
		if !cursor.Before(b.CheckOutDate()) {
			continue
		}
		gap := int(b.CheckInDate().Sub(cursor) / (24 * time.Hour))
		if gap >= desiredNights {
			return cursor
		}
		cursor = b.CheckOutDate()
	}
	return cursor
}
