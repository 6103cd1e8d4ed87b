package report

import (
	"fmt"
	"strings"
	"time"

	"bizdash/internal/core"
)

// Period names a report window relative to now.
type Period string

const (
	ThisMonth Period = "this_month"
	LastMonth Period = "last_month"
	ThisYear  Period = "this_year"
	LastYear  Period = "last_year"
	Custom    Period = "custom"
)

func (p Period) Valid() bool {
	switch p {
	case ThisMonth, LastMonth, ThisYear, LastYear, Custom:
		return true
	}
	return false
}

// ResolvePeriod turns a period into a calendar range around now. Custom
// bounds that are missing fall back to the current month's bounds; unknown
// periods resolve like ThisMonth.
func ResolvePeriod(p Period, now time.Time, customStart, customEnd *core.Date) core.Range {
	month := core.MonthRange(now)
	switch p {
	case LastMonth:
		prev := core.MonthStart(core.DateOf(now)).AddDays(-1)
		return core.MonthRange(prev.Time)
	case ThisYear:
		return core.YearRange(now.Year())
	case LastYear:
		return core.YearRange(now.Year() - 1)
	case Custom:
		r := month
		if customStart != nil && !customStart.IsZero() {
			r.Start = *customStart
		}
		if customEnd != nil && !customEnd.IsZero() {
			r.End = *customEnd
		}
		return r
	default:
		return month
	}
}

// CheckRange resolves the request around now and rejects a window that ends
// before it starts. A custom start with no end can fall after the current
// month's end.
func (r Request) CheckRange(now time.Time) error {
	rng := ResolvePeriod(r.Period, now, r.Start, r.End)
	if rng.End.Before(rng.Start.Time) {
		return core.ErrInvalidDateRange
	}
	return nil
}

// ParseRequest builds a Request from raw query values. An empty period means
// ThisMonth; dates must be YYYY-MM-DD.
func ParseRequest(period, start, end string) (Request, error) {
	req := Request{Period: Period(strings.TrimSpace(period))}
	if req.Period == "" {
		req.Period = ThisMonth
	}
	if !req.Period.Valid() {
		return Request{}, fmt.Errorf("unknown period %q", period)
	}
	for _, b := range []struct {
		raw string
		dst **core.Date
	}{{start, &req.Start}, {end, &req.End}} {
		if strings.TrimSpace(b.raw) == "" {
			continue
		}
		d, err := core.ParseDate(b.raw)
		if err != nil {
			return Request{}, fmt.Errorf("invalid date %q: %w", b.raw, err)
		}
		*b.dst = &d
	}
	if req.Start != nil && req.End != nil && req.End.Before(req.Start.Time) {
		return Request{}, core.ErrInvalidDateRange
	}
	return req, nil
}
