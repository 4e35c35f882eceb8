package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Audit actions.
const (
	ActionSummary    = "summary"
	ActionToneSwitch = "tone.switch"
	ActionMetrics    = "metrics"
)

// Audit results.
const (
	ResultSuccess = "success"
	ResultEmpty   = "empty"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID           int64
	Timestamp    time.Time
	TraceID      string
	RoomID       string
	Actor        string
	Action       string
	Result       string
	PayloadJSON  sql.NullString
	ErrorMessage sql.NullString
}

// AuditPayload carries structured details of an entry. It must never hold
// message text.
type AuditPayload map[string]any

// WriteAudit appends an entry to the audit log.
func (s *Store) WriteAudit(ctx context.Context, traceID, roomID, actor, action, result string, payload AuditPayload, errorMsg string) error {
	var payloadJSON sql.NullString
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal audit payload: %w", err)
		}
		payloadJSON = sql.NullString{String: string(b), Valid: true}
	}

	var errorNull sql.NullString
	if errorMsg != "" {
		errorNull = sql.NullString{String: errorMsg, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (ts, trace_id, room_id, actor, action, result, payload_json, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, time.Now().UTC(), traceID, roomID, actor, action, result, payloadJSON, errorNull)
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// RecentAudit returns the newest entries first. A non-positive limit means
// 100.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryAudit(ctx, `
		SELECT id, ts, trace_id, room_id, actor, action, result, payload_json, error_message
		FROM audit_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
}

// AuditByTrace returns every entry of one trace in insertion order.
func (s *Store) AuditByTrace(ctx context.Context, traceID string) ([]*AuditEntry, error) {
	return s.queryAudit(ctx, `
		SELECT id, ts, trace_id, room_id, actor, action, result, payload_json, error_message
		FROM audit_log
		WHERE trace_id = ?
		ORDER BY id ASC
	`, traceID)
}

// CountAudit returns the number of entries with the given action and
// result since the given time.
func (s *Store) CountAudit(ctx context.Context, action, result string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_log WHERE action = ? AND result = ? AND ts >= ?
	`, action, result, since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

func (s *Store) queryAudit(ctx context.Context, query string, args ...any) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.TraceID, &e.RoomID, &e.Actor,
			&e.Action, &e.Result, &e.PayloadJSON, &e.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}
	return entries, nil
}
