// Package availability derives free/busy slot grids from calendar events and
// locates common open windows across users. It has no persistence dependencies;
// callers supply the events that intersect the requested range.
package availability

import "time"

// SlotWidth is the fixed granularity of the availability grid.
const SlotWidth = 15 * time.Minute

// SlotsPerDay is the number of fixed-width slots covering one calendar day.
const SlotsPerDay = 96

// SlotStatus classifies a slot of a user's day.
type SlotStatus string

const (
	// SlotAvailable marks a slot with no overlapping event.
	SlotAvailable SlotStatus = "available"
	// SlotBusy marks a slot overlapped by a busy event.
	SlotBusy SlotStatus = "busy"
	// SlotTentative marks a slot overlapped by a tentatively accepted event.
	SlotTentative SlotStatus = "tentative"
	// SlotOutOfOffice marks a slot overlapped by an out-of-office event.
	SlotOutOfOffice SlotStatus = "out_of_office"
)

// BusyInterval is an event window projected onto the availability grid.
type BusyInterval struct {
	EventID string
	Title   string
	Start   time.Time
	End     time.Time
	Status  SlotStatus
}

// Slot is one fixed 15-minute interval of a day.
type Slot struct {
	Start      time.Time
	End        time.Time
	Status     SlotStatus
	EventID    string
	EventTitle string
}

// ClockTime is a time-of-day independent of date and zone.
type ClockTime struct {
	Hour   int
	Minute int
}

// Minutes returns the offset from midnight in minutes.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// WorkingHours bounds the portion of a day considered schedulable.
type WorkingHours struct {
	Start ClockTime
	End   ClockTime
}

// BreakWindow is a recurring daily pause inside working hours.
type BreakWindow struct {
	Start ClockTime
	End   ClockTime
}

// DefaultWorkingHours is the 09:00-17:00 window attached to generated grids.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{Start: ClockTime{Hour: 9}, End: ClockTime{Hour: 17}}
}

// DefaultBreaks is the 12:00-13:00 lunch break attached to generated grids.
func DefaultBreaks() []BreakWindow {
	return []BreakWindow{{Start: ClockTime{Hour: 12}, End: ClockTime{Hour: 13}}}
}

// DayAvailability is the full-day grid of slots plus scheduling metadata for
// one user. Working hours and breaks are advisory; they never mark slots busy.
type DayAvailability struct {
	UserID       string
	Date         time.Time
	Location     *time.Location
	Slots        []Slot
	WorkingHours WorkingHours
	Breaks       []BreakWindow
	Exceptions   []string
}

// Overlaps reports whether two half-open intervals intersect. Touching
// boundaries ([10:00,11:00) against [11:00,11:15)) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// BuildDayGrid constructs the 96-slot grid for the given date in loc. Each slot
// inherits the classification of the first interval that overlaps it; slots no
// interval touches stay available.
func BuildDayGrid(userID string, date time.Time, loc *time.Location, intervals []BusyInterval) DayAvailability {
	if loc == nil {
		loc = time.UTC
	}
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)

	slots := make([]Slot, 0, SlotsPerDay)
	for i := 0; i < SlotsPerDay; i++ {
		start := dayStart.Add(time.Duration(i) * SlotWidth)
		slot := Slot{
			Start:  start,
			End:    start.Add(SlotWidth),
			Status: SlotAvailable,
		}
		for _, interval := range intervals {
			if Overlaps(slot.Start, slot.End, interval.Start, interval.End) {
				slot.Status = interval.Status
				slot.EventID = interval.EventID
				slot.EventTitle = interval.Title
				break
			}
		}
		slots = append(slots, slot)
	}

	return DayAvailability{
		UserID:       userID,
		Date:         dayStart,
		Location:     loc,
		Slots:        slots,
		WorkingHours: DefaultWorkingHours(),
		Breaks:       DefaultBreaks(),
	}
}
