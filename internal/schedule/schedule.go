// Package schedule derives the bookable time slots shown for a movie on
// each upcoming day. The result is a pure function of movie id and date
// so every client sees the same grid.
package schedule

import (
	"strconv"
	"time"
)

// Slots are the fixed daily start times, in display order.
var Slots = []string{"10:00", "12:30", "16:00", "17:30", "20:00", "22:30"}

const (
	DefaultDays = 3
	MaxDays     = 14

	keepAbove = 0.35
)

// Day lists the enabled slots for one date (YYYY-MM-DD).
type Day struct {
	Date  string
	Times []string
}

// Mulberry32 returns a generator of floats in [0, 1).
func Mulberry32(seed uint32) func() float64 {
	return func() float64 {
		seed += 0x6D2B79F5
		t := seed
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return float64(t^(t>>14)) / 4294967296
	}
}

// Seed mixes a movie id and a date into the generator seed.
func Seed(movieID uint64, date time.Time) uint32 {
	ymd, _ := strconv.ParseUint(date.Format("20060102"), 10, 64)
	return uint32(movieID*97 + ymd*31 + 12345)
}

// AvailableTimes returns the slots enabled for movieID on date.
func AvailableTimes(movieID uint64, date time.Time) []string {
	rnd := Mulberry32(Seed(movieID, date))
	out := make([]string, 0, len(Slots))
	for _, s := range Slots {
		if rnd() > keepAbove {
			out = append(out, s)
		}
	}
	return out
}

// Build returns days consecutive dates starting at from's UTC calendar
// day, the date browsers derive from toISOString. days is clamped to
// [1, MaxDays]; zero means DefaultDays.
func Build(movieID uint64, from time.Time, days int) []Day {
	switch {
	case days == 0:
		days = DefaultDays
	case days < 1:
		days = 1
	case days > MaxDays:
		days = MaxDays
	}
	y, m, d := from.UTC().Date()
	out := make([]Day, 0, days)
	for i := 0; i < days; i++ {
		day := time.Date(y, m, d+i, 0, 0, 0, 0, time.UTC)
		out = append(out, Day{Date: day.Format("2006-01-02"), Times: AvailableTimes(movieID, day)})
	}
	return out
}
