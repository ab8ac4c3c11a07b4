package postgres_storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"bulk_mail_client/internal/pkg/session/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_session (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// Open connects with lib/pq and makes sure the session table exists.
func Open(ctx context.Context, dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	p := NewPostgresStorage(db)
	if err := p.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create client_session: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	return p.db.Close()
}

// SaveSession upserts both keys in one transaction.
func (p *PostgresStorage) SaveSession(ctx context.Context, session domain.Session) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range map[string]string{
		domain.KeyUserEmail:   session.Email,
		domain.KeyAccessToken: session.AccessToken,
	} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO client_session (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE
			SET value = $2, updated_at = NOW()
		`, key, value)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (p *PostgresStorage) GetSession(ctx context.Context) (*domain.Session, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT key, value
		FROM client_session
		WHERE key IN ($1, $2)
	`, domain.KeyUserEmail, domain.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := &domain.Session{}
	found := false
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		found = true
		switch key {
		case domain.KeyUserEmail:
			s.Email = value
		case domain.KeyAccessToken:
			s.AccessToken = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return s, nil
}

func (p *PostgresStorage) DeleteSession(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM client_session WHERE key IN ($1, $2)`,
		domain.KeyUserEmail, domain.KeyAccessToken)
	return err
}
