package models

import "time"

// DayAvailability агрегат одного календарного дня
type DayAvailability struct {
	Date        time.Time `json:"date"`
	Booked      int64     `json:"booked"`
	Unavailable bool      `json:"unavailable"`
	Severity    string    `json:"severity"`
}

// Severity maps a day's booking count and blackout flag to a calendar band.
// The bands are policy, not platform limits: 0 open, 1 low, 2-4 medium,
// capacity and above (or blackout) full.
func Severity(booked int64, unavailable bool, capacity int64) string {
	if capacity <= 0 {
		capacity = DefaultDailyCapacity
	}
	switch {
	case unavailable || booked >= capacity:
		return SeverityFull
	case booked > SeverityLowMax:
		return SeverityMedium
	case booked == SeverityLowMax:
		return SeverityLow
	default:
		return SeverityOpen
	}
}
