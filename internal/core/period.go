package core

import "time"

// Range is an inclusive span of calendar days.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether d falls inside the range, bounds included.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// Months lists the first day of every calendar month the range touches.
func (r Range) Months() []Date {
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start.Time) {
		return nil
	}
	var out []Date
	for m := MonthStart(r.Start); !m.After(r.End.Time); m = (Date{Time: m.AddDate(0, 1, 0)}) {
		out = append(out, m)
	}
	return out
}

// MonthStart returns the first day of d's month.
func MonthStart(d Date) Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// MonthEnd returns the last day of d's month.
func MonthEnd(d Date) Date {
	return Date{Time: MonthStart(d).AddDate(0, 1, -1)}
}

// MonthRange spans the whole month containing t.
func MonthRange(t time.Time) Range {
	d := DateOf(t)
	return Range{Start: MonthStart(d), End: MonthEnd(d)}
}

// YearRange spans January 1st to December 31st of year.
func YearRange(year int) Range {
	return Range{Start: NewDate(year, 1, 1), End: NewDate(year, 12, 31)}
}
