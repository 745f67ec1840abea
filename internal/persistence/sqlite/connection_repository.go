package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
)

const connectionColumns = `id, tenant_id, user_id, provider_id, account_email,
	perm_read, perm_write, perm_delete, perm_manage,
	sync_enabled, sync_interval, last_sync, next_sync,
	status, created_at, updated_at`

// CreateConnection inserts a new connection row.
func (s *Store) CreateConnection(ctx context.Context, conn persistence.Connection) error {
	query := `INSERT INTO connections (` + connectionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		conn.ID,
		conn.TenantID,
		conn.UserID,
		conn.ProviderID,
		conn.AccountEmail,
		conn.Permissions.Read,
		conn.Permissions.Write,
		conn.Permissions.Delete,
		conn.Permissions.Manage,
		conn.SyncSettings.Enabled,
		int64(conn.SyncSettings.Interval),
		formatTimePtr(conn.SyncSettings.LastSync),
		formatTimePtr(conn.SyncSettings.NextSync),
		string(conn.Status),
		formatTime(conn.CreatedAt),
		formatTime(conn.UpdatedAt),
	)
	return mapError(err)
}

// GetConnection retrieves a connection by ID.
func (s *Store) GetConnection(ctx context.Context, id string) (persistence.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Connection{}, persistence.ErrNotFound
	}
	return conn, err
}

// UpdateConnection replaces an existing connection row.
func (s *Store) UpdateConnection(ctx context.Context, conn persistence.Connection) error {
	query := `UPDATE connections SET
		tenant_id = ?, user_id = ?, provider_id = ?, account_email = ?,
		perm_read = ?, perm_write = ?, perm_delete = ?, perm_manage = ?,
		sync_enabled = ?, sync_interval = ?, last_sync = ?, next_sync = ?,
		status = ?, created_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		conn.TenantID,
		conn.UserID,
		conn.ProviderID,
		conn.AccountEmail,
		conn.Permissions.Read,
		conn.Permissions.Write,
		conn.Permissions.Delete,
		conn.Permissions.Manage,
		conn.SyncSettings.Enabled,
		int64(conn.SyncSettings.Interval),
		formatTimePtr(conn.SyncSettings.LastSync),
		formatTimePtr(conn.SyncSettings.NextSync),
		string(conn.Status),
		formatTime(conn.CreatedAt),
		formatTime(conn.UpdatedAt),
		conn.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// DeleteConnection removes a connection row.
func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// ListConnections returns connections matching the filter ordered by creation
// time, then ID.
func (s *Store) ListConnections(ctx context.Context, filter persistence.ConnectionFilter) ([]persistence.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections`
	var clauses []string
	var args []any

	if filter.TenantID != "" {
		clauses = append(clauses, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.ProviderID != "" {
		clauses = append(clauses, "provider_id = ?")
		args = append(args, filter.ProviderID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.SyncDueBefore != nil {
		clauses = append(clauses, "sync_enabled = 1")
		clauses = append(clauses, "(next_sync IS NULL OR next_sync <= ?)")
		args = append(args, formatTime(*filter.SyncDueBefore))
	}

	query += whereClause(clauses) + " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var conns []persistence.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (persistence.Connection, error) {
	var (
		conn               persistence.Connection
		interval           int64
		lastSync, nextSync sql.NullString
		status             string
		createdAt          string
		updatedAt          string
	)

	err := row.Scan(
		&conn.ID,
		&conn.TenantID,
		&conn.UserID,
		&conn.ProviderID,
		&conn.AccountEmail,
		&conn.Permissions.Read,
		&conn.Permissions.Write,
		&conn.Permissions.Delete,
		&conn.Permissions.Manage,
		&conn.SyncSettings.Enabled,
		&interval,
		&lastSync,
		&nextSync,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Connection{}, err
	}

	conn.SyncSettings.Interval = time.Duration(interval)
	if conn.SyncSettings.LastSync, err = parseTimePtr(lastSync); err != nil {
		return persistence.Connection{}, err
	}
	if conn.SyncSettings.NextSync, err = parseTimePtr(nextSync); err != nil {
		return persistence.Connection{}, err
	}
	conn.Status = persistence.ConnectionStatus(status)
	if conn.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Connection{}, err
	}
	if conn.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Connection{}, err
	}
	return conn, nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	out := " WHERE " + clauses[0]
	for _, clause := range clauses[1:] {
		out += " AND " + clause
	}
	return out
}
