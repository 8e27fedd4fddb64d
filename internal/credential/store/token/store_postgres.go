package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/credential/models"
	id "gatepass/pkg/domain"
)

// PostgresStore persists issued tokens in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed token store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts an issued token record.
func (s *PostgresStore) Create(ctx context.Context, tok *models.IssuedToken) error {
	if tok == nil {
		return fmt.Errorf("token is required")
	}
	query := `
		INSERT INTO issued_tokens
			(id, subject_id, roster_id, subject_external_id, issued_at, nonce, signature, active, use_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(tok.ID),
		uuid.UUID(tok.SubjectID),
		uuid.UUID(tok.RosterID),
		tok.SubjectExternalID,
		tok.IssuedAt,
		tok.Nonce,
		tok.Signature,
		tok.Active,
		tok.UseCount,
		tok.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create issued token: %w", err)
	}
	return nil
}

// FindByID retrieves an issued token by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, tokenID id.TokenID) (*models.IssuedToken, error) {
	query := selectToken + ` WHERE id = $1`
	tok, err := scanToken(s.db.QueryRowContext(ctx, query, uuid.UUID(tokenID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find token by id: %w", err)
	}
	return tok, nil
}

// FindMostRecentActive returns the newest active token for the subject.
func (s *PostgresStore) FindMostRecentActive(ctx context.Context, subjectID id.SubjectID) (*models.IssuedToken, error) {
	query := selectToken + `
		WHERE subject_id = $1 AND active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`
	tok, err := scanToken(s.db.QueryRowContext(ctx, query, uuid.UUID(subjectID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find most recent active token: %w", err)
	}
	return tok, nil
}

// RecordUse increments use_count in SQL rather than read-modify-write, so
// concurrent scans of the same token serialize on the row.
func (s *PostgresStore) RecordUse(ctx context.Context, tokenID id.TokenID, usedAt time.Time) error {
	query := `
		UPDATE issued_tokens
		SET use_count = use_count + 1, last_used_at = $2
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(tokenID), usedAt)
	if err != nil {
		return fmt.Errorf("record token use: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate clears the active flag. Already-inactive tokens are a no-op.
func (s *PostgresStore) Deactivate(ctx context.Context, tokenID id.TokenID) error {
	query := `
		UPDATE issued_tokens
		SET active = FALSE
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(tokenID))
	if err != nil {
		return fmt.Errorf("deactivate token: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

const selectToken = `
		SELECT id, subject_id, roster_id, subject_external_id, issued_at, nonce, signature, active, use_count, last_used_at, created_at
		FROM issued_tokens`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*models.IssuedToken, error) {
	var (
		tok        models.IssuedToken
		tid        uuid.UUID
		sid        uuid.UUID
		rid        uuid.UUID
		lastUsedAt sql.NullTime
	)
	err := row.Scan(
		&tid,
		&sid,
		&rid,
		&tok.SubjectExternalID,
		&tok.IssuedAt,
		&tok.Nonce,
		&tok.Signature,
		&tok.Active,
		&tok.UseCount,
		&lastUsedAt,
		&tok.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tok.ID = id.TokenID(tid)
	tok.SubjectID = id.SubjectID(sid)
	tok.RosterID = id.RosterID(rid)
	if lastUsedAt.Valid {
		tok.LastUsedAt = &lastUsedAt.Time
	}
	return &tok, nil
}
