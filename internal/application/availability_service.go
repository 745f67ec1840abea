package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/calendar-bridge/internal/availability"
	"github.com/example/calendar-bridge/internal/persistence"
)

// AvailabilityService derives free/busy slot grids from the event store and
// finds common open windows across users. It is read-only.
type AvailabilityService struct {
	connections persistence.ConnectionRepository
	eventStore  persistence.EventRepository
	logger      *slog.Logger
}

// NewAvailabilityService wires dependencies for availability queries.
func NewAvailabilityService(connections persistence.ConnectionRepository, eventStore persistence.EventRepository, logger *slog.Logger) *AvailabilityService {
	return &AvailabilityService{
		connections: connections,
		eventStore:  eventStore,
		logger:      defaultLogger(logger),
	}
}

// GetAvailability builds the per-day slot grid for each calendar day in
// [startDate, endDate] (inclusive), gathering events from every connected
// connection the user owns.
func (s *AvailabilityService) GetAvailability(ctx context.Context, userID string, startDate, endDate time.Time, timeZone string) ([]availability.DayAvailability, error) {
	loc := time.UTC
	if timeZone != "" {
		parsed, err := time.LoadLocation(timeZone)
		if err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", timeZone, err)
		}
		loc = parsed
	}

	conns, err := s.connections.ListConnections(ctx, persistence.ConnectionFilter{
		UserID: userID,
		Status: persistence.ConnectionStatusConnected,
	})
	if err != nil {
		return nil, err
	}

	first := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)
	last := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, loc)

	var days []availability.DayAvailability
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		dayEnd := day.AddDate(0, 0, 1)
		intervals, err := s.busyIntervals(ctx, conns, day, dayEnd)
		if err != nil {
			return nil, err
		}
		days = append(days, availability.BuildDayGrid(userID, day, loc, intervals))
	}
	return days, nil
}

// busyIntervals gathers every confirmed event intersecting [dayStart, dayEnd)
// across the given connections. Events classified available do not block.
func (s *AvailabilityService) busyIntervals(ctx context.Context, conns []persistence.Connection, dayStart, dayEnd time.Time) ([]availability.BusyInterval, error) {
	var intervals []availability.BusyInterval
	for _, conn := range conns {
		evs, err := s.eventStore.ListEvents(ctx, persistence.EventFilter{
			ConnectionID: conn.ID,
			Start:        &dayStart,
			End:          &dayEnd,
			Statuses:     []persistence.EventStatus{persistence.EventStatusConfirmed},
		})
		if err != nil {
			return nil, err
		}
		for _, ev := range evs {
			status, blocking := slotStatus(ev.Availability)
			if !blocking {
				continue
			}
			intervals = append(intervals, availability.BusyInterval{
				EventID: ev.ID,
				Title:   ev.Title,
				Start:   ev.Start,
				End:     ev.End,
				Status:  status,
			})
		}
	}
	return intervals, nil
}

func slotStatus(a persistence.EventAvailability) (availability.SlotStatus, bool) {
	switch a {
	case persistence.AvailabilityBusy:
		return availability.SlotBusy, true
	case persistence.AvailabilityTentative:
		return availability.SlotTentative, true
	case persistence.AvailabilityOutOfOffice:
		return availability.SlotOutOfOffice, true
	default:
		return availability.SlotAvailable, false
	}
}

// FindAvailableSlots locates windows of the requested duration where at least
// one of the given users is entirely free. Each user's availability is
// computed once for the whole range.
func (s *AvailabilityService) FindAvailableSlots(ctx context.Context, userIDs []string, durationMinutes int, startDate, endDate time.Time, workingHoursOnly bool) ([]availability.OpenWindow, error) {
	if durationMinutes <= 0 || durationMinutes%15 != 0 {
		return nil, fmt.Errorf("duration must be a positive multiple of 15 minutes, got %d", durationMinutes)
	}

	grids := make(map[string][]availability.DayAvailability, len(userIDs))
	for _, userID := range userIDs {
		days, err := s.GetAvailability(ctx, userID, startDate, endDate, "")
		if err != nil {
			return nil, err
		}
		grids[userID] = days
	}

	duration := time.Duration(durationMinutes) * time.Minute
	return availability.FindOpenWindows(grids, duration, workingHoursOnly), nil
}
