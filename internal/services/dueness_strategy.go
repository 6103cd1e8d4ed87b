package services

import (
	"fmt"
	"time"

	"bizdash/internal/core"
)

// DuenessChecker decides whether a recurring series needs a new occurrence
// today, given the date of its latest occurrence and of its first one.
type DuenessChecker interface {
	IsDue(last, today, start core.Date) bool
}

// DailyChecker is due on any day after the last occurrence.
type DailyChecker struct{}

func (DailyChecker) IsDue(last, today, _ core.Date) bool {
	if last.IsZero() {
		return true
	}
	return today.After(last.Time)
}

// WeeklyChecker is due seven days after the last occurrence.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(last, today, _ core.Date) bool {
	if last.IsZero() {
		return true
	}
	return !today.Before(last.AddDays(7).Time)
}

// MonthlyChecker is due once per calendar month, on or after the start
// date's day of month, clamped to the month's last day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(last, today, start core.Date) bool {
	if last.IsZero() {
		return true
	}
	if !monthAfter(last, today) {
		return false
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), start.Day())
}

// YearlyChecker is due once per calendar year, on or after the start date's
// month and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(last, today, start core.Date) bool {
	if last.IsZero() {
		return true
	}
	if today.Year() <= last.Year() {
		return false
	}
	switch {
	case today.Month() < start.Month():
		return false
	case today.Month() > start.Month():
		return true
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), start.Day())
}

func monthAfter(last, today core.Date) bool {
	return today.Year() > last.Year() || (today.Year() == last.Year() && today.Month() > last.Month())
}

// clampDay returns day, or the last day of the month when it has fewer days.
func clampDay(year int, month time.Month, day int) int {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		return lastDay
	}
	return day
}

var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.FrequencyDaily:   DailyChecker{},
	core.FrequencyWeekly:  WeeklyChecker{},
	core.FrequencyMonthly: MonthlyChecker{},
	core.FrequencyYearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for frequency.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown recurring frequency: %s", frequency)
	}
	return checker, nil
}
