package recurrence

import "time"

// Advance moves an event cursor to the next occurrence start. anchor is
// the definition's original start; monthly and yearly rules derive their
// pattern and time of day from it. Unknown kinds return cursor unchanged.
func Advance(cursor time.Time, kind Kind, interval int, anchor time.Time) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch kind {
	case KindDaily:
		return cursor.AddDate(0, 0, interval)
	case KindWeekly:
		return cursor.AddDate(0, 0, 7*interval)
	case KindMonthly:
		return advanceMonthly(cursor, interval, anchor)
	case KindYearly:
		return advanceYearly(cursor, interval, anchor)
	default:
		return cursor
	}
}

// advanceMonthly keeps the anchor's "nth weekday of the month" (for
// example the 2nd Tuesday) rather than its day number.
func advanceMonthly(cursor time.Time, interval int, anchor time.Time) time.Time {
	week := (anchor.Day() + 6) / 7
	weekday := anchor.Weekday()

	// time.Date normalises month overflow into the following years.
	target := time.Date(cursor.Year(), cursor.Month()+time.Month(interval), 1, 0, 0, 0, 0, cursor.Location())
	candidate := nthWeekday(target.Year(), target.Month(), weekday, week, anchor, cursor.Location())
	if candidate.Month() == target.Month() {
		return candidate
	}

	// A 5th weekday does not exist in every month. Retry once on the next
	// interval's month and accept whatever that yields.
	next := time.Date(target.Year(), target.Month()+time.Month(interval), 1, 0, 0, 0, 0, cursor.Location())
	return nthWeekday(next.Year(), next.Month(), weekday, week, anchor, cursor.Location())
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, week int, clock time.Time, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), loc)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(week-1))
}

// advanceYearly lands on the anchor's month and day, interval years after
// the cursor. Feb 29 falls back to Feb 28 in non-leap years.
func advanceYearly(cursor time.Time, interval int, anchor time.Time) time.Time {
	year := cursor.Year() + interval
	month, day := anchor.Month(), anchor.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), cursor.Location())
}

// AdvanceDate moves a calendar date (no time of day) forward by one
// interval. Month and year steps clamp to the last valid day of the
// target month, so Jan 31 + 1 month is Feb 28 (or 29).
func AdvanceDate(date time.Time, kind Kind, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	date = DateOf(date)
	switch kind {
	case KindDaily:
		return date.AddDate(0, 0, interval)
	case KindWeekly:
		return date.AddDate(0, 0, 7*interval)
	case KindMonthly:
		return addMonthsClamped(date, interval)
	case KindYearly:
		return addMonthsClamped(date, 12*interval)
	default:
		return date
	}
}

func addMonthsClamped(date time.Time, months int) time.Time {
	first := time.Date(date.Year(), date.Month()+time.Month(months), 1, 0, 0, 0, 0, date.Location())
	day := date.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, date.Location())
}
