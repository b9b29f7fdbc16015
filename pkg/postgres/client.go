// Package postgres records the indexing status of ingested documents.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
)

// Document statuses.
const (
	StatusPending = "PENDING"
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	segment    TEXT,
	indexed_at TIMESTAMPTZ
)`

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// EnsureSchema creates the documents table when it does not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, createDocumentsTable); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// SetStatus upserts the status of one document.
func (c *Client) SetStatus(ctx context.Context, docID, status string) error {
	_, err := c.DB.ExecContext(ctx,
		`INSERT INTO documents (id, status, indexed_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, indexed_at = EXCLUDED.indexed_at`,
		docID, status,
	)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", docID, err)
	}
	return nil
}

// MarkSegment records in one transaction that docIDs were written to
// segment.
func (c *Client) MarkSegment(ctx context.Context, segment string, docIDs []string) error {
	return c.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE documents SET segment = $1 WHERE id = $2`)
		if err != nil {
			return fmt.Errorf("preparing segment update: %w", err)
		}
		defer stmt.Close()
		for _, id := range docIDs {
			if _, err := stmt.ExecContext(ctx, segment, id); err != nil {
				return fmt.Errorf("marking %s in segment %s: %w", id, segment, err)
			}
		}
		return nil
	})
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
