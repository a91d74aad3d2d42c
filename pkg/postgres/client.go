// Package postgres opens lib/pq connection pools configured from
// config.PostgresConfig.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
)

type Client struct {
	DB *sql.DB
}

// New opens a pool sized from cfg and verifies it with a ping.
func New(cfg config.PostgresConfig) (*Client, error) {
	c, err := Open(cfg.DSN())
	if err != nil {
		return nil, err
	}
	c.DB.SetMaxOpenConns(cfg.MaxOpenConns)
	c.DB.SetMaxIdleConns(cfg.MaxIdleConns)
	c.DB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return c, nil
}

// Open connects with a raw DSN or connection URL.
func Open(dsn string) (*Client, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
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
