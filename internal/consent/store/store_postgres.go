package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"consents/internal/consent/models"
	"consents/internal/sentinel"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists consents in PostgreSQL through database/sql and the
// pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds a store to tx. FindByID then locks the row until tx ends.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	perms, err := json.Marshal(consent.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	query := `
		INSERT INTO consents (user_id, permissions, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = s.execer().QueryRowContext(ctx, query,
		consent.UserID,
		string(perms),
		string(consent.Status),
		consent.CreatedAt.UTC(),
		consent.UpdatedAt.UTC(),
	).Scan(&consent.ID)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("create consent: %w", sentinel.ErrInvalidInput)
		}
		return fmt.Errorf("create consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Consent, error) {
	query := `
		SELECT id, user_id, permissions, status, created_at, updated_at
		FROM consents
		WHERE id = $1
	`
	if s.tx != nil {
		query += " FOR UPDATE"
	}
	consent, err := scanConsent(s.execer().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return consent, nil
}

func (s *PostgresStore) Update(ctx context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	perms, err := json.Marshal(consent.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	query := `
		UPDATE consents
		SET permissions = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.execer().ExecContext(ctx, query,
		consent.ID,
		string(perms),
		string(consent.Status),
		consent.UpdatedAt.UTC(),
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("update consent: %w", sentinel.ErrInvalidInput)
		}
		return fmt.Errorf("update consent: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM consents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete consent: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.execer().QueryRowContext(ctx, `SELECT COUNT(*) FROM consents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count consents: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsent(row rowScanner) (*models.Consent, error) {
	var (
		c      models.Consent
		perms  []byte
		status string
	)
	if err := row.Scan(&c.ID, &c.UserID, &perms, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(perms, &c.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	c.Status = models.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return false
}
