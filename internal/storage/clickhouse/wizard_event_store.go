package clickhouse

import (
	"context"
	"fmt"
	"time"

	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/observability"
	"token-deploy-wizard/internal/storage"
)

// WizardEventStore implements storage.WizardEventStore using ClickHouse.
type WizardEventStore struct {
	conn *Conn
}

// NewWizardEventStore creates a new WizardEventStore.
func NewWizardEventStore(conn *Conn) *WizardEventStore {
	return &WizardEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.WizardEventStore = (*WizardEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *WizardEventStore) Insert(ctx context.Context, e *domain.WizardEvent) error {
	return s.InsertBulk(ctx, []*domain.WizardEvent{e})
}

// InsertBulk adds multiple events. Fails entire batch on duplicate event_id.
func (s *WizardEventStore) InsertBulk(ctx context.Context, events []*domain.WizardEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, check existing rows explicitly
	for _, e := range events {
		exists, err := s.exists(ctx, e.EventID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO wizard_events (
			event_id, session_id, event_type, step, detail, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.EventID, e.SessionID, string(e.Type),
			e.Step.String(), e.Detail, uint64(e.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_wizard_events", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySession retrieves all events of a session, ordered by (timestamp, event_id) ASC.
func (s *WizardEventStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.WizardEvent, error) {
	query := `
		SELECT event_id, session_id, event_type, step, detail, timestamp_ms
		FROM wizard_events
		WHERE session_id = ?
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query by session: %w", err)
	}
	defer rows.Close()

	return scanWizardEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by timestamp ASC.
func (s *WizardEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.WizardEvent, error) {
	query := `
		SELECT event_id, session_id, event_type, step, detail, timestamp_ms
		FROM wizard_events
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanWizardEvents(rows)
}

// exists checks if an event with the given ID exists.
func (s *WizardEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT count(*) FROM wizard_events WHERE event_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanWizardEvents scans multiple rows.
func scanWizardEvents(rows chRows) ([]*domain.WizardEvent, error) {
	var events []*domain.WizardEvent

	for rows.Next() {
		var e domain.WizardEvent
		var eventType, step string
		var timestampMs uint64

		if err := rows.Scan(&e.EventID, &e.SessionID, &eventType, &step, &e.Detail, &timestampMs); err != nil {
			return nil, fmt.Errorf("scan wizard event row: %w", err)
		}

		parsed, err := domain.ParseStep(step)
		if err != nil {
			return nil, fmt.Errorf("scan wizard event row: %w", err)
		}
		e.Type = domain.EventType(eventType)
		e.Step = parsed
		e.Timestamp = int64(timestampMs)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wizard event rows: %w", err)
	}

	return events, nil
}
