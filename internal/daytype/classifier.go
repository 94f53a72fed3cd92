// Package daytype classifies calendar dates as weekday, weekend or US
// federal holiday. The classification is used only to tag delivery plans.
package daytype

import "time"

// Type is the day classification.
type Type string

const (
	// Weekday is a regular working day.
	Weekday Type = "weekday"
	// Weekend is a Saturday or Sunday that is not a holiday.
	Weekend Type = "weekend"
	// Holiday is a US federal holiday.
	Holiday Type = "holiday"
)

// DayInfo is the result of classifying a date.
type DayInfo struct {
	Type        Type   `json:"type"`
	HolidayName string `json:"holidayName,omitempty"`
}

// Classify maps a calendar date to its day type. Only the date portion of t
// is considered, in t's location. Holidays take precedence over weekends.
func Classify(t time.Time) DayInfo {
	if name, ok := holidayName(t); ok {
		return DayInfo{Type: Holiday, HolidayName: name}
	}
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return DayInfo{Type: Weekend}
	default:
		return DayInfo{Type: Weekday}
	}
}

// holidayName reports whether t falls on a US federal holiday.
func holidayName(t time.Time) (string, bool) {
	year, month, day := t.Date()

	// Fixed-date holidays.
	switch {
	case month == time.January && day == 1:
		return "New Year's Day", true
	case month == time.June && day == 19:
		return "Juneteenth National Independence Day", true
	case month == time.July && day == 4:
		return "Independence Day", true
	case month == time.November && day == 11:
		return "Veterans Day", true
	case month == time.December && day == 25:
		return "Christmas Day", true
	}

	// Floating nth-weekday holidays.
	switch {
	case month == time.January && isNthWeekday(t, time.Monday, 3):
		return "Birthday of Martin Luther King, Jr.", true
	case month == time.February && isNthWeekday(t, time.Monday, 3):
		return "Washington's Birthday", true
	case month == time.May && isLastWeekday(t, time.Monday):
		return "Memorial Day", true
	case month == time.September && isNthWeekday(t, time.Monday, 1):
		return "Labor Day", true
	case month == time.October && isNthWeekday(t, time.Monday, 2):
		return "Columbus Day", true
	case month == time.November && isNthWeekday(t, time.Thursday, 4):
		return "Thanksgiving Day", true
	}

	_ = year
	return "", false
}

// isNthWeekday reports whether t is the nth occurrence of weekday in its month.
func isNthWeekday(t time.Time, weekday time.Weekday, n int) bool {
	if t.Weekday() != weekday {
		return false
	}
	return (t.Day()-1)/7+1 == n
}

// isLastWeekday reports whether t is the last occurrence of weekday in its month.
func isLastWeekday(t time.Time, weekday time.Weekday) bool {
	if t.Weekday() != weekday {
		return false
	}
	return t.AddDate(0, 0, 7).Month() != t.Month()
}
