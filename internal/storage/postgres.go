package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"luckysol/internal/ledger"
	"luckysol/internal/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS account_snapshots (
		address    TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		data       BYTEA NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS account_snapshots_kind_idx ON account_snapshots (kind);
`

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// EnsureSchema creates the snapshot table when missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveSnapshots upserts account snapshots in one transaction
func (r *PostgresRepository) SaveSnapshots(ctx context.Context, snapshots []models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO account_snapshots (address, kind, data, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE
		SET kind = EXCLUDED.kind, data = EXCLUDED.data, fetched_at = EXCLUDED.fetched_at
	`

	for _, snap := range snapshots {
		_, err := tx.Exec(ctx, query,
			snap.Address.String(),
			snap.Kind,
			snap.Data,
			snap.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", snap.Address, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("Snapshots saved", "count", len(snapshots))
	return nil
}

// LastSyncedAt returns the newest snapshot time, zero when nothing was saved
func (r *PostgresRepository) LastSyncedAt(ctx context.Context) (time.Time, error) {
	var last *time.Time
	if err := r.pool.QueryRow(ctx, `SELECT MAX(fetched_at) FROM account_snapshots`).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}
	if last == nil {
		return time.Time{}, nil
	}
	return *last, nil
}

// Account returns the stored bytes of addr
func (r *PostgresRepository) Account(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM account_snapshots WHERE address = $1`, addr.String()).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", addr, err)
	}
	return data, nil
}

// ProgramAccounts returns the stored accounts matching filter
func (r *PostgresRepository) ProgramAccounts(ctx context.Context, filter ledger.Filter) ([]ledger.KeyedData, error) {
	query, args := filterQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []ledger.KeyedData
	for rows.Next() {
		var (
			addr string
			data []byte
		)
		if err := rows.Scan(&addr, &data); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		key, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			slog.Warn("Skipping snapshot with invalid address", "address", addr, "error", err)
			continue
		}
		out = append(out, ledger.KeyedData{Address: key, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}

// filterQuery translates filter into SQL over the data column
func filterQuery(filter ledger.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.DataSize != 0 {
		args = append(args, int64(filter.DataSize))
		where = append(where, fmt.Sprintf("length(data) = $%d", len(args)))
	}
	for _, m := range filter.Memcmp {
		args = append(args, int64(m.Offset)+1, int64(len(m.Bytes)), m.Bytes)
		n := len(args)
		where = append(where, fmt.Sprintf("substring(data from $%d for $%d) = $%d", n-2, n-1, n))
	}

	query := `SELECT address, data FROM account_snapshots`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	return query + ` ORDER BY address`, args
}

// Ping checks the database connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
