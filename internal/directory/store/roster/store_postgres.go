package roster

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

// PostgresStore persists rosters in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed roster store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// fieldJSON is the JSONB representation of a schema field.
type fieldJSON struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

func fieldsToJSON(fields []models.Field) ([]byte, error) {
	out := make([]fieldJSON, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldJSON{
			Name:        f.Name,
			Type:        f.Type,
			DisplayName: f.DisplayName,
			Role:        string(f.Role),
		})
	}
	return json.Marshal(out)
}

func fieldsFromJSON(raw []byte) ([]models.Field, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var decoded []fieldJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode roster fields: %w", err)
	}
	fields := make([]models.Field, 0, len(decoded))
	for _, f := range decoded {
		fields = append(fields, models.Field{
			Name:        f.Name,
			Type:        f.Type,
			DisplayName: f.DisplayName,
			Role:        models.Role(f.Role),
		})
	}
	return fields, nil
}

// Create inserts a new roster.
func (s *PostgresStore) Create(ctx context.Context, r *models.Roster) error {
	if r == nil {
		return fmt.Errorf("roster is required")
	}
	fields, err := fieldsToJSON(r.Fields)
	if err != nil {
		return fmt.Errorf("encode roster fields: %w", err)
	}
	query := `
		INSERT INTO rosters (id, name, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID),
		r.Name,
		fields,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create roster: %w", err)
	}
	return nil
}

// FindByID retrieves a roster by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, rosterID id.RosterID) (*models.Roster, error) {
	query := `
		SELECT id, name, fields, created_at, updated_at
		FROM rosters
		WHERE id = $1
	`
	r, err := scanRoster(s.db.QueryRowContext(ctx, query, uuid.UUID(rosterID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find roster by id: %w", err)
	}
	return r, nil
}

// FindByName retrieves a roster by name (case-insensitive).
func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Roster, error) {
	query := `
		SELECT id, name, fields, created_at, updated_at
		FROM rosters
		WHERE lower(name) = lower($1)
	`
	r, err := scanRoster(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find roster by name: %w", err)
	}
	return r, nil
}

// List returns all rosters in creation order.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Roster, error) {
	query := `
		SELECT id, name, fields, created_at, updated_at
		FROM rosters
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []*models.Roster
	for rows.Next() {
		r, err := scanRoster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateFields replaces the stored field schema for the roster.
func (s *PostgresStore) UpdateFields(ctx context.Context, rosterID id.RosterID, fields []models.Field) error {
	encoded, err := fieldsToJSON(fields)
	if err != nil {
		return fmt.Errorf("encode roster fields: %w", err)
	}
	query := `
		UPDATE rosters
		SET fields = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(rosterID), encoded)
	if err != nil {
		return fmt.Errorf("update roster fields: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update roster fields rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoster(row rowScanner) (*models.Roster, error) {
	var (
		r      models.Roster
		rid    uuid.UUID
		fields []byte
	)
	if err := row.Scan(&rid, &r.Name, &fields, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	decoded, err := fieldsFromJSON(fields)
	if err != nil {
		return nil, err
	}
	r.ID = id.RosterID(rid)
	r.Fields = decoded
	return &r, nil
}
