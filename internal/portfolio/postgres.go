package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/config"
)

// DB is the subset of pgxpool.Pool used by Postgres.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS fx_holdings (
		currency CHAR(3) PRIMARY KEY,
		position INTEGER NOT NULL,
		whole    BIGINT NOT NULL,
		frac     BIGINT NOT NULL,
		CHECK (whole >= 0 AND frac >= 0 AND frac < 100)
	)`,
	`CREATE TABLE IF NOT EXISTS fx_history (
		id         BIGSERIAL PRIMARY KEY,
		kind       TEXT NOT NULL,
		currency   CHAR(3) NOT NULL,
		delta_fx   TEXT NOT NULL,
		delta_base TEXT NOT NULL,
		rate       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Postgres is a Store backed by PostgreSQL.
// Holdings are kept as (whole, frac) integer columns and history deltas in
// their text form.
type Postgres struct {
	db DB
}

// NewPostgres creates a store on db. Call EnsureSchema before first use.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// NewPostgresPool creates a new PostgreSQL connection pool
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec
	poolConfig.MinConns = int32(cfg.MinConns) //nolint:gosec

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Initialized(ctx context.Context) (bool, error) {
	var ok bool
	err := p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fx_holdings)`).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check portfolio: %w", err)
	}
	return ok, nil
}

func (p *Postgres) Reset(ctx context.Context, o Opening) error {
	if err := validateOpening(o); err != nil {
		return err
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `TRUNCATE fx_holdings, fx_history RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to wipe portfolio: %w", err)
	}

	insert := `INSERT INTO fx_holdings (currency, position, whole, frac) VALUES ($1, $2, $3, $4)`
	w, f := o.Start.Int64()
	if _, err := tx.Exec(ctx, insert, o.Base.Code(), int32(0), w, f); err != nil {
		return fmt.Errorf("failed to seed %v: %w", o.Base, err)
	}
	for i, c := range o.FX {
		if _, err := tx.Exec(ctx, insert, c.Code(), int32(i+1), int64(0), int64(0)); err != nil {
			return fmt.Errorf("failed to seed %v: %w", c, err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO fx_history (kind, currency, delta_fx, delta_base) VALUES ($1, $2, $3, $4)`,
		string(KindStart), o.Base.Code(), fx.Amount{}.String(), o.Start.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to record start: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *Postgres) Holdings(ctx context.Context) ([]Holding, error) {
	rows, err := p.db.Query(ctx, `SELECT currency, whole, frac FROM fx_holdings ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]Holding, 0)
	for rows.Next() {
		var code string
		var w, f int64
		if err := rows.Scan(&code, &w, &f); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h, err := newHolding(code, w, f)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	if len(holdings) == 0 {
		return nil, ErrNotInitialized
	}
	return holdings, nil
}

func newHolding(code string, w, f int64) (Holding, error) {
	curr, err := fx.ParseCurr(code)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to scan holding: %w", err)
	}
	a, err := fx.NewAmount(w, f)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to scan %v holding: %w", curr, err)
	}
	return Holding{Currency: curr, Amount: a}, nil
}

func (p *Postgres) Holding(ctx context.Context, curr fx.Currency) (fx.Amount, error) {
	return holdingRow(ctx, p.db, curr, "")
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func holdingRow(ctx context.Context, db queryRower, curr fx.Currency, suffix string) (fx.Amount, error) {
	var w, f int64
	err := db.QueryRow(ctx, `SELECT whole, frac FROM fx_holdings WHERE currency = $1`+suffix, curr.Code()).Scan(&w, &f)
	if errors.Is(err, pgx.ErrNoRows) {
		return fx.Amount{}, fmt.Errorf("%w: %v", ErrNotFound, curr)
	}
	if err != nil {
		return fx.Amount{}, fmt.Errorf("failed to get %v holding: %w", curr, err)
	}
	a, err := fx.NewAmount(w, f)
	if err != nil {
		return fx.Amount{}, fmt.Errorf("failed to scan %v holding: %w", curr, err)
	}
	return a, nil
}

func baseCurrency(ctx context.Context, db queryRower) (fx.Currency, error) {
	var code string
	err := db.QueryRow(ctx, `SELECT currency FROM fx_holdings WHERE position = 0`).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return fx.XXX, ErrNotInitialized
	}
	if err != nil {
		return fx.XXX, fmt.Errorf("failed to get base currency: %w", err)
	}
	return fx.ParseCurr(code)
}

func (p *Postgres) Apply(ctx context.Context, t Trade) (Entry, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	base, err := baseCurrency(ctx, tx)
	if err != nil {
		return Entry{}, err
	}
	if err := validateTrade(t, base); err != nil {
		return Entry{}, err
	}
	fxHeld, err := holdingRow(ctx, tx, t.Currency, " FOR UPDATE")
	if err != nil {
		return Entry{}, err
	}
	baseHeld, err := holdingRow(ctx, tx, base, " FOR UPDATE")
	if err != nil {
		return Entry{}, err
	}
	fxNew, baseNew, err := settle(fxHeld, baseHeld, t)
	if err != nil {
		return Entry{}, err
	}

	update := `UPDATE fx_holdings SET whole = $2, frac = $3 WHERE currency = $1`
	w, f := fxNew.Int64()
	if _, err := tx.Exec(ctx, update, t.Currency.Code(), w, f); err != nil {
		return Entry{}, fmt.Errorf("failed to update %v holding: %w", t.Currency, err)
	}
	w, f = baseNew.Int64()
	if _, err := tx.Exec(ctx, update, base.Code(), w, f); err != nil {
		return Entry{}, fmt.Errorf("failed to update %v holding: %w", base, err)
	}

	rate := t.Rate
	e := Entry{
		Kind:      t.Kind,
		Currency:  t.Currency,
		DeltaFX:   t.DeltaFX,
		DeltaBase: t.DeltaBase,
		Rate:      &rate,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO fx_history (kind, currency, delta_fx, delta_base, rate)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		string(e.Kind), e.Currency.Code(), e.DeltaFX.String(), e.DeltaBase.String(), rate.String(),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record trade: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return e, nil
}

func (p *Postgres) History(ctx context.Context) ([]Entry, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, kind, currency, delta_fx, delta_base, rate, created_at
		FROM fx_history
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var id int64
		var kind, code, deltaFX, deltaBase, rate string
		var createdAt time.Time
		if err := rows.Scan(&id, &kind, &code, &deltaFX, &deltaBase, &rate, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e, err := decodeEntryFields(kind, code, deltaFX, deltaBase, rate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry %d: %w", id, err)
		}
		e.ID = id
		e.CreatedAt = createdAt
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return entries, nil
}
