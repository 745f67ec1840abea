package availability

import (
	"sort"
	"time"
)

// OpenWindow is a candidate meeting window together with the users free for
// its entire span.
type OpenWindow struct {
	Start   time.Time
	End     time.Time
	UserIDs []string
}

// FindOpenWindows slides a window of the given duration across the supplied
// grids in 15-minute steps and reports every window at least one user is fully
// free for. Grids are keyed by user id; each user's slice must cover the days
// being probed, in day order. When workingHoursOnly is set, a window whose
// start or end clock-time falls outside a user's working hours does not count
// for that user, even when the covered slots are free.
func FindOpenWindows(grids map[string][]DayAvailability, duration time.Duration, workingHoursOnly bool) []OpenWindow {
	if duration <= 0 || duration%SlotWidth != 0 {
		return nil
	}
	slotsNeeded := int(duration / SlotWidth)

	users := make([]string, 0, len(grids))
	for userID := range grids {
		users = append(users, userID)
	}
	sort.Strings(users)

	windows := make(map[time.Time]*OpenWindow)
	for _, userID := range users {
		for _, day := range grids[userID] {
			collectUserWindows(day, slotsNeeded, workingHoursOnly, windows)
		}
	}

	out := make([]OpenWindow, 0, len(windows))
	for _, window := range windows {
		out = append(out, *window)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func collectUserWindows(day DayAvailability, slotsNeeded int, workingHoursOnly bool, windows map[time.Time]*OpenWindow) {
	// Windows never span midnight: the grid is per-day and a span crossing the
	// day boundary would need the next day's slots.
	for i := 0; i+slotsNeeded <= len(day.Slots); i++ {
		free := true
		for j := i; j < i+slotsNeeded; j++ {
			if day.Slots[j].Status != SlotAvailable {
				free = false
				break
			}
		}
		if !free {
			continue
		}

		start := day.Slots[i].Start
		end := day.Slots[i+slotsNeeded-1].End
		if workingHoursOnly && !withinWorkingHours(day, start, end) {
			continue
		}

		window, ok := windows[start]
		if !ok {
			window = &OpenWindow{Start: start, End: end}
			windows[start] = window
		}
		window.UserIDs = appendUnique(window.UserIDs, day.UserID)
	}
}

// withinWorkingHours checks both window bounds against the user's working
// hours. The end bound is inclusive: a window ending exactly at the close of
// hours is acceptable, one ending past it straddles the boundary.
func withinWorkingHours(day DayAvailability, start, end time.Time) bool {
	startMinutes := start.Hour()*60 + start.Minute()
	endMinutes := end.Hour()*60 + end.Minute()
	if endMinutes == 0 && end.Day() != start.Day() {
		endMinutes = 24 * 60
	}
	return startMinutes >= day.WorkingHours.Start.Minutes() && endMinutes <= day.WorkingHours.End.Minutes()
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
