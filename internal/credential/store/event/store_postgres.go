package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gatepass/internal/credential/models"
	id "gatepass/pkg/domain"
)

// PostgresStore persists access events in PostgreSQL. The table carries no
// UPDATE or DELETE path in this codebase; retention is an operational
// concern handled outside the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed event store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append records one verification attempt.
func (s *PostgresStore) Append(ctx context.Context, ev *models.AccessEvent) error {
	if ev == nil {
		return fmt.Errorf("event is required")
	}
	query := `
		INSERT INTO access_events
			(id, subject_id, roster_id, token_id, granted, denial_reason, scanner_location, scanner_device, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(ev.ID),
		nullableID(ev.SubjectID),
		nullableID(ev.RosterID),
		nullableID(ev.TokenID),
		ev.Granted,
		nullableReason(ev.DenialReason),
		ev.ScannerLocation,
		ev.ScannerDevice,
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append access event: %w", err)
	}
	return nil
}

// FindByID retrieves an access event by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID) (*models.AccessEvent, error) {
	query := selectEvent + ` WHERE id = $1`
	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(eventID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find access event by id: %w", err)
	}
	return ev, nil
}

// ListRecent returns the newest events first.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*models.AccessEvent, error) {
	query := selectEvent + `
		ORDER BY occurred_at DESC
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent access events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListBySubject returns the subject's newest events first.
func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.SubjectID, limit int) ([]*models.AccessEvent, error) {
	query := selectEvent + `
		WHERE subject_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(subjectID), limit)
	if err != nil {
		return nil, fmt.Errorf("list subject access events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

const selectEvent = `
		SELECT id, subject_id, roster_id, token_id, granted, denial_reason, scanner_location, scanner_device, occurred_at
		FROM access_events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.AccessEvent, error) {
	var (
		ev     models.AccessEvent
		eid    uuid.UUID
		sid    uuid.NullUUID
		rid    uuid.NullUUID
		tid    uuid.NullUUID
		reason sql.NullString
	)
	err := row.Scan(
		&eid,
		&sid,
		&rid,
		&tid,
		&ev.Granted,
		&reason,
		&ev.ScannerLocation,
		&ev.ScannerDevice,
		&ev.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	ev.ID = id.EventID(eid)
	if sid.Valid {
		v := id.SubjectID(sid.UUID)
		ev.SubjectID = &v
	}
	if rid.Valid {
		v := id.RosterID(rid.UUID)
		ev.RosterID = &v
	}
	if tid.Valid {
		v := id.TokenID(tid.UUID)
		ev.TokenID = &v
	}
	ev.DenialReason = models.DenialReason(reason.String)
	return &ev, nil
}

func collectEvents(rows *sql.Rows) ([]*models.AccessEvent, error) {
	var out []*models.AccessEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access events: %w", err)
	}
	return out, nil
}

func nullableID[T ~[16]byte](v *T) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullableReason(r models.DenialReason) sql.NullString {
	return sql.NullString{String: string(r), Valid: r != models.DenialNone}
}
