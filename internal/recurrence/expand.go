package recurrence

import (
	"sort"
	"time"
)

// MaxIterations caps the cursor steps taken for a single definition.
const MaxIterations = 1000

// Definition is the part of a stored event the expander needs.
type Definition struct {
	ID    string
	Start time.Time
	End   time.Time
	Rule  Rule
}

// Occurrence is one concrete instance of a definition inside a window.
// It is never stored.
type Occurrence struct {
	SourceID string
	Start    time.Time
	End      time.Time
}

// Result holds the expanded occurrences. Truncated lists the definitions
// whose expansion stopped early (iteration cap or a rule that does not
// advance); their occurrences are kept up to that point.
type Result struct {
	Occurrences []Occurrence
	Truncated   []string
}

// Expand materialises every occurrence of defs overlapping
// [windowStart, windowEnd]. Output is ordered by start; equal starts keep
// input order.
func Expand(defs []Definition, windowStart, windowEnd time.Time) Result {
	var res Result
	for _, def := range defs {
		occ, truncated := expandOne(def, windowStart, windowEnd)
		res.Occurrences = append(res.Occurrences, occ...)
		if truncated {
			res.Truncated = append(res.Truncated, def.ID)
		}
	}
	sort.SliceStable(res.Occurrences, func(i, j int) bool {
		return res.Occurrences[i].Start.Before(res.Occurrences[j].Start)
	})
	return res
}

func expandOne(def Definition, windowStart, windowEnd time.Time) ([]Occurrence, bool) {
	duration := def.End.Sub(def.Start)

	if !def.Rule.IsRecurring() {
		if overlaps(def.Start, def.End, windowStart, windowEnd) {
			return []Occurrence{{SourceID: def.ID, Start: def.Start, End: def.End}}, false
		}
		return nil, false
	}

	effectiveEnd := windowEnd
	if def.Rule.End != nil {
		if end := EndOfDay(*def.Rule.End); end.Before(effectiveEnd) {
			effectiveEnd = end
		}
	}

	interval := def.Rule.interval()
	// daily and weekly starts come from def.Start, never from the previous cursor
	stepDays := dayStep(def.Rule.Kind, interval)
	cursor := def.Start
	k := 0
	if stepDays > 0 {
		if k = skipSteps(def.Start, stepDays, windowStart.Add(-duration)); k > 0 {
			cursor = def.Start.AddDate(0, 0, k*stepDays)
		}
	}

	var out []Occurrence
	for i := 0; i < MaxIterations; i++ {
		if cursor.After(effectiveEnd) {
			return out, false
		}
		end := cursor.Add(duration)
		if overlaps(cursor, end, windowStart, windowEnd) {
			out = append(out, Occurrence{SourceID: def.ID, Start: cursor, End: end})
		}
		var next time.Time
		if stepDays > 0 {
			k++
			next = def.Start.AddDate(0, 0, k*stepDays)
		} else {
			next = Advance(cursor, def.Rule.Kind, interval, def.Start)
		}
		if !next.After(cursor) {
			return out, true
		}
		cursor = next
	}
	return out, !cursor.After(effectiveEnd)
}

// dayStep is the step in calendar days for daily and weekly rules, 0 for
// the others.
func dayStep(kind Kind, interval int) int {
	switch kind {
	case KindDaily:
		return interval
	case KindWeekly:
		return 7 * interval
	default:
		return 0
	}
}

// skipSteps counts the whole steps that can be skipped before until. It
// stops one step short so DST shifts cannot skip an overlapping
// occurrence.
func skipSteps(start time.Time, stepDays int, until time.Time) int {
	gap := until.Sub(start)
	if gap <= 0 {
		return 0
	}
	steps := int(gap/(24*time.Hour))/stepDays - 1
	if steps <= 0 {
		return 0
	}
	return steps
}

// overlaps is the closed-interval test used throughout: an occurrence
// touching either window edge counts.
func overlaps(start, end, windowStart, windowEnd time.Time) bool {
	return !end.Before(windowStart) && !start.After(windowEnd)
}
