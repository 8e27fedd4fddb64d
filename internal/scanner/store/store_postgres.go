package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gatepass/internal/scanner/models"
	id "gatepass/pkg/domain"
)

// PostgresStore persists scanners in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed scanner store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create registers a scanner.
func (s *PostgresStore) Create(ctx context.Context, sc *models.Scanner) error {
	if sc == nil {
		return fmt.Errorf("scanner is required")
	}
	query := `
		INSERT INTO scanners (id, name, location, key_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(sc.ID),
		sc.Name,
		sc.Location,
		sc.KeyHash,
		sc.Active,
		sc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create scanner: %w", err)
	}
	return nil
}

// FindByID retrieves a scanner by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, scannerID id.ScannerID) (*models.Scanner, error) {
	query := `
		SELECT id, name, location, key_hash, active, created_at
		FROM scanners
		WHERE id = $1
	`
	var (
		sc  models.Scanner
		sid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(scannerID)).
		Scan(&sid, &sc.Name, &sc.Location, &sc.KeyHash, &sc.Active, &sc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find scanner by id: %w", err)
	}
	sc.ID = id.ScannerID(sid)
	return &sc, nil
}

// List returns scanners in registration order.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Scanner, error) {
	query := `
		SELECT id, name, location, key_hash, active, created_at
		FROM scanners
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scanners: %w", err)
	}
	defer rows.Close()

	var out []*models.Scanner
	for rows.Next() {
		var (
			sc  models.Scanner
			sid uuid.UUID
		)
		if err := rows.Scan(&sid, &sc.Name, &sc.Location, &sc.KeyHash, &sc.Active, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scanner: %w", err)
		}
		sc.ID = id.ScannerID(sid)
		out = append(out, &sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scanners: %w", err)
	}
	return out, nil
}

// Deactivate clears the active flag.
func (s *PostgresStore) Deactivate(ctx context.Context, scannerID id.ScannerID) error {
	query := `
		UPDATE scanners
		SET active = FALSE
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(scannerID))
	if err != nil {
		return fmt.Errorf("deactivate scanner: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
