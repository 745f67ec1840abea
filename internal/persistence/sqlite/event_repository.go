package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/example/calendar-bridge/internal/persistence"
)

const eventColumns = `id, connection_id, tenant_id, title, start_at, end_at,
	categories, attendees, availability, status, external_id, synced_at,
	created_at, updated_at`

// CreateEvent inserts a new event row.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	categories, attendees, err := encodeEventLists(event)
	if err != nil {
		return err
	}

	query := `INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		event.ConnectionID,
		event.TenantID,
		event.Title,
		formatTime(event.Start),
		formatTime(event.End),
		categories,
		attendees,
		string(event.Availability),
		string(event.Status),
		event.ExternalID,
		formatTimePtr(event.SyncedAt),
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	return mapError(err)
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, err
}

// GetEventByExternalID retrieves the event a connection tracks under the
// given provider-assigned identifier.
func (s *Store) GetEventByExternalID(ctx context.Context, connectionID, externalID string) (persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE connection_id = ? AND external_id = ? AND external_id <> ''`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, connectionID, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, err
}

// UpdateEvent replaces an existing event row.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	categories, attendees, err := encodeEventLists(event)
	if err != nil {
		return err
	}

	query := `UPDATE events SET
		connection_id = ?, tenant_id = ?, title = ?, start_at = ?, end_at = ?,
		categories = ?, attendees = ?, availability = ?, status = ?,
		external_id = ?, synced_at = ?, created_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		event.ConnectionID,
		event.TenantID,
		event.Title,
		formatTime(event.Start),
		formatTime(event.End),
		categories,
		attendees,
		string(event.Availability),
		string(event.Status),
		event.ExternalID,
		formatTimePtr(event.SyncedAt),
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// DeleteEvent removes an event row.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// DeleteEventsForConnection removes every event owned by the connection and
// returns the removed count.
func (s *Store) DeleteEventsForConnection(ctx context.Context, connectionID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE connection_id = ?`, connectionID)
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return int(affected), nil
}

// ListEvents returns events matching the filter ordered by start time, then
// ID. The Start/End bounds use half-open intersection.
func (s *Store) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var clauses []string
	var args []any

	if filter.ConnectionID != "" {
		clauses = append(clauses, "connection_id = ?")
		args = append(args, filter.ConnectionID)
	}
	if filter.TenantID != "" {
		clauses = append(clauses, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.End != nil {
		clauses = append(clauses, "start_at < ?")
		args = append(args, formatTime(*filter.End))
	}
	if filter.Start != nil {
		clauses = append(clauses, "end_at > ?")
		args = append(args, formatTime(*filter.Start))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query += whereClause(clauses) + " ORDER BY start_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		// Category and attendee matching work on decoded JSON, so they are
		// applied after the scan rather than in SQL.
		if !matchEventLists(event, filter) {
			continue
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func matchEventLists(event persistence.Event, filter persistence.EventFilter) bool {
	if len(filter.Categories) > 0 {
		found := false
	outer:
		for _, want := range filter.Categories {
			for _, have := range event.Categories {
				if have == want {
					found = true
					break outer
				}
			}
		}
		if !found {
			return false
		}
	}
	if filter.AttendeeEmail != "" {
		found := false
		for _, attendee := range event.Attendees {
			if strings.EqualFold(attendee.Email, filter.AttendeeEmail) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func encodeEventLists(event persistence.Event) (categories, attendees string, err error) {
	rawCategories, err := json.Marshal(event.Categories)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encode categories: %w", err)
	}
	rawAttendees, err := json.Marshal(event.Attendees)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encode attendees: %w", err)
	}
	return string(rawCategories), string(rawAttendees), nil
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event        persistence.Event
		startAt      string
		endAt        string
		categories   string
		attendees    string
		availability string
		status       string
		syncedAt     sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := row.Scan(
		&event.ID,
		&event.ConnectionID,
		&event.TenantID,
		&event.Title,
		&startAt,
		&endAt,
		&categories,
		&attendees,
		&availability,
		&status,
		&event.ExternalID,
		&syncedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Event{}, err
	}

	if event.Start, err = parseTime(startAt); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTime(endAt); err != nil {
		return persistence.Event{}, err
	}
	if err = json.Unmarshal([]byte(categories), &event.Categories); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: decode categories: %w", err)
	}
	if err = json.Unmarshal([]byte(attendees), &event.Attendees); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: decode attendees: %w", err)
	}
	event.Availability = persistence.EventAvailability(availability)
	event.Status = persistence.EventStatus(status)
	if event.SyncedAt, err = parseTimePtr(syncedAt); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}
