package subject

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gatepass/internal/directory/models"
	id "gatepass/pkg/domain"
)

// PostgresStore persists subjects in PostgreSQL. The subjects table carries a
// secondary index on external_id (see migrations) so cross-roster lookups are
// one indexed query regardless of roster count.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed subject store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func attrsToJSON(attrs models.Attributes) ([]byte, error) {
	plain := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch v.Kind {
		case models.AttrString:
			plain[k] = v.Str
		case models.AttrNumber:
			plain[k] = v.Num
		case models.AttrBool:
			plain[k] = v.Bool
		}
	}
	return json.Marshal(plain)
}

func attrsFromJSON(raw []byte) (models.Attributes, error) {
	if len(raw) == 0 {
		return models.Attributes{}, nil
	}
	var plain map[string]any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, fmt.Errorf("decode subject attributes: %w", err)
	}
	return models.AttributesFromJSON(plain)
}

// Create inserts a subject.
func (s *PostgresStore) Create(ctx context.Context, sub *models.Subject) error {
	if sub == nil {
		return fmt.Errorf("subject is required")
	}
	attrs, err := attrsToJSON(sub.Attributes)
	if err != nil {
		return fmt.Errorf("encode subject attributes: %w", err)
	}
	query := `
		INSERT INTO subjects (id, roster_id, external_id, attributes, photo_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		uuid.UUID(sub.RosterID),
		sub.ExternalID,
		attrs,
		nullableString(sub.PhotoRef),
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// FindByID retrieves a subject by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, subjectID id.SubjectID) (*models.Subject, error) {
	query := selectSubject + ` WHERE id = $1`
	sub, err := scanSubject(s.db.QueryRowContext(ctx, query, uuid.UUID(subjectID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return sub, nil
}

// FindByExternalID resolves a subject by externalID in one indexed query.
// With a nil roster scope the external_id index spans all rosters; ordering
// by created_at keeps the result deterministic if importers ever reuse an
// identifier across rosters.
func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID string, rosterID id.RosterID) (*models.Subject, error) {
	var row *sql.Row
	if rosterID.IsNil() {
		query := selectSubject + `
		WHERE external_id = $1
		ORDER BY created_at ASC
		LIMIT 1`
		row = s.db.QueryRowContext(ctx, query, externalID)
	} else {
		query := selectSubject + `
		WHERE external_id = $1 AND roster_id = $2
		ORDER BY created_at ASC
		LIMIT 1`
		row = s.db.QueryRowContext(ctx, query, externalID, uuid.UUID(rosterID))
	}
	sub, err := scanSubject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find subject by external id: %w", err)
	}
	return sub, nil
}

// FindAnyInRoster returns one arbitrary subject for schema inference.
func (s *PostgresStore) FindAnyInRoster(ctx context.Context, rosterID id.RosterID) (*models.Subject, error) {
	query := selectSubject + `
		WHERE roster_id = $1
		ORDER BY created_at ASC
		LIMIT 1`
	sub, err := scanSubject(s.db.QueryRowContext(ctx, query, uuid.UUID(rosterID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find any subject in roster: %w", err)
	}
	return sub, nil
}

const selectSubject = `
		SELECT id, roster_id, external_id, attributes, photo_ref, created_at
		FROM subjects`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*models.Subject, error) {
	var (
		sub      models.Subject
		sid      uuid.UUID
		rid      uuid.UUID
		attrs    []byte
		photoRef sql.NullString
	)
	if err := row.Scan(&sid, &rid, &sub.ExternalID, &attrs, &photoRef, &sub.CreatedAt); err != nil {
		return nil, err
	}
	decoded, err := attrsFromJSON(attrs)
	if err != nil {
		return nil, err
	}
	sub.ID = id.SubjectID(sid)
	sub.RosterID = id.RosterID(rid)
	sub.Attributes = decoded
	sub.PhotoRef = photoRef.String
	return &sub, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
