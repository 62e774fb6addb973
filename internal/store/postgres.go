package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wagerline/chatbet/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the ledger tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			wa_id   TEXT PRIMARY KEY,
			balance NUMERIC NOT NULL
		);
		CREATE TABLE IF NOT EXISTS markets (
			id         BIGSERIAL PRIMARY KEY,
			question   TEXT NOT NULL,
			is_open    BOOLEAN NOT NULL DEFAULT TRUE,
			yes_price  NUMERIC NOT NULL,
			no_price   NUMERIC NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS bets (
			id        BIGSERIAL PRIMARY KEY,
			wa_id     TEXT NOT NULL REFERENCES users (wa_id),
			market_id BIGINT NOT NULL REFERENCES markets (id),
			side      TEXT NOT NULL,
			price     NUMERIC NOT NULL,
			qty       BIGINT NOT NULL,
			ts        BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS bets_wa_id_idx ON bets (wa_id);
	`)
	return err
}

func (s *PostgresStore) GetOrCreateUser(ctx context.Context, waID string) (*model.User, error) {
	var balance string

	// ON CONFLICT keeps repeat calls from resetting the balance.
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (wa_id, balance)
		 VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (wa_id) DO UPDATE SET wa_id = EXCLUDED.wa_id
		 RETURNING balance::TEXT`,
		waID, model.DefaultBalance.String()).
		Scan(&balance)
	if err != nil {
		return nil, fmt.Errorf("get or create user %s: %w", waID, err)
	}

	u := &model.User{WaID: waID}
	u.Balance, _ = decimal.NewFromString(balance)
	return u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, waID string) (*model.User, error) {
	var balance string

	err := s.pool.QueryRow(ctx,
		`SELECT balance::TEXT FROM users WHERE wa_id = $1`, waID).
		Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", waID, err)
	}

	u := &model.User{WaID: waID}
	u.Balance, _ = decimal.NewFromString(balance)
	return u, nil
}

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO markets (question, is_open, yes_price, no_price, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5)
		 RETURNING id`,
		m.Question, m.IsOpen, m.YesPrice.String(), m.NoPrice.String(), m.CreatedAt).
		Scan(&m.ID)
	return err
}

func (s *PostgresStore) GetMarket(ctx context.Context, id int64) (*model.Market, error) {
	m, err := scanMarket(s.pool.QueryRow(ctx,
		`SELECT id, question, is_open, yes_price::TEXT, no_price::TEXT, created_at
		 FROM markets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get market %d: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, question, is_open, yes_price::TEXT, no_price::TEXT, created_at
		 FROM markets ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) CloseMarket(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET is_open = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordFill commits the balance debit, the quote update, and the bet
// insert in one transaction. The user and market rows are re-locked
// with FOR UPDATE so concurrent fills from another process serialize at
// the database.
func (s *PostgresStore) RecordFill(ctx context.Context, u *model.User, m *model.Market, b *model.Bet) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin fill tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	if err := tx.QueryRow(ctx,
		`SELECT wa_id FROM users WHERE wa_id = $1 FOR UPDATE`, u.WaID).
		Scan(&locked); err != nil {
		return fmt.Errorf("lock user %s: %w", u.WaID, err)
	}
	var lockedID int64
	if err := tx.QueryRow(ctx,
		`SELECT id FROM markets WHERE id = $1 FOR UPDATE`, m.ID).
		Scan(&lockedID); err != nil {
		return fmt.Errorf("lock market %d: %w", m.ID, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = $2::NUMERIC WHERE wa_id = $1`,
		u.WaID, u.Balance.String()); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE markets SET yes_price = $2::NUMERIC, no_price = $3::NUMERIC WHERE id = $1`,
		m.ID, m.YesPrice.String(), m.NoPrice.String()); err != nil {
		return fmt.Errorf("update quotes: %w", err)
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO bets (wa_id, market_id, side, price, qty, ts)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6)
		 RETURNING id`,
		b.WaID, b.MarketID, b.Side, b.Price.String(), b.Qty, b.Ts).
		Scan(&b.ID); err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetBetsByUser(ctx context.Context, waID string) ([]model.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, wa_id, market_id, side, price::TEXT, qty, ts
		 FROM bets WHERE wa_id = $1 ORDER BY ts, id`, waID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []model.Bet
	for rows.Next() {
		var b model.Bet
		var price string
		if err := rows.Scan(&b.ID, &b.WaID, &b.MarketID, &b.Side, &price, &b.Qty, &b.Ts); err != nil {
			return nil, err
		}
		b.Price, _ = decimal.NewFromString(price)
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// pgxRow covers pgx.Row and pgx.Rows for shared scanning.
type pgxRow interface {
	Scan(dest ...interface{}) error
}

func scanMarket(row pgxRow) (*model.Market, error) {
	var m model.Market
	var yes, no string

	if err := row.Scan(&m.ID, &m.Question, &m.IsOpen, &yes, &no, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.YesPrice, _ = decimal.NewFromString(yes)
	m.NoPrice, _ = decimal.NewFromString(no)
	return &m, nil
}
