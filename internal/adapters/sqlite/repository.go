package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"paperAccount/internal/account"
	"paperAccount/internal/domain"
	"paperAccount/internal/ports"

	"github.com/mattn/go-sqlite3"
)

// Repository implements account.Store using SQLite. Decimal values are kept
// as TEXT so no precision is lost.
type Repository struct {
	db     *sql.DB
	path   string
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/paper_account.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w: %w", filepath.Dir(dbPath), ports.ErrStorage, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, path: dbPath, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_currency TEXT NOT NULL,
		cash_balance TEXT NOT NULL,
		initial_deposit TEXT NOT NULL,
		cfg_slippage TEXT DEFAULT NULL, -- NULL when the account uses manager defaults
		cfg_spread TEXT DEFAULT NULL,
		cfg_commission_rate TEXT DEFAULT NULL,
		cfg_storage_path TEXT DEFAULT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		quantity TEXT NOT NULL,
		average_price TEXT NOT NULL,
		realized_pnl TEXT NOT NULL,
		PRIMARY KEY (account_id, symbol)
	);

	CREATE TABLE IF NOT EXISTS orders (
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL, -- History position; open orders use creation order
		is_open INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		filled_quantity TEXT NOT NULL,
		limit_price TEXT DEFAULT NULL,
		stop_price TEXT DEFAULT NULL,
		status TEXT NOT NULL,
		reject_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (account_id, id)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		commission TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		FOREIGN KEY (account_id, order_id) REFERENCES orders(account_id, id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_orders_account_seq ON orders (account_id, is_open, seq);
	CREATE INDEX IF NOT EXISTS idx_trades_order_seq ON trades (account_id, order_id, seq);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Location implements account.Store.
func (r *Repository) Location() string {
	return r.path
}

// Save implements account.Store. All existing rows are replaced in a single transaction.
func (r *Repository) Save(ctx context.Context, states []*account.State) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error(ctx, rbErr, "Failed to roll back account save")
			}
		}
	}()

	for _, table := range []string{"trades", "orders", "positions", "accounts"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w: %w", table, ports.ErrUpdateFailed, err)
		}
	}

	for _, st := range states {
		if err = insertState(ctx, tx, st); err != nil {
			return fmt.Errorf("failed to save account %s: %w", st.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit account save: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Accounts written", map[string]interface{}{"path": r.path, "count": len(states)})
	return nil
}

func insertState(ctx context.Context, tx *sql.Tx, st *account.State) error {
	var slippage, spread, commission, storagePath interface{}
	if st.Config != nil {
		slippage = st.Config.DefaultSlippage.String()
		spread = st.Config.DefaultSpread.String()
		commission = st.Config.CommissionRate.String()
		storagePath = st.Config.StoragePath
	}
	const accountQuery = `
		INSERT INTO accounts (id, name, base_currency, cash_balance, initial_deposit,
			cfg_slippage, cfg_spread, cfg_commission_rate, cfg_storage_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, accountQuery,
		string(st.ID), st.Name, st.BaseCurrency, st.CashBalance.String(), st.InitialDeposit.String(),
		slippage, spread, commission, storagePath, st.CreatedAt.UTC(), st.UpdatedAt.UTC(),
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %s: %w", ports.ErrDuplicateEntry, st.ID, err)
		}
		return fmt.Errorf("%w: %w", ports.ErrQueryFailed, err)
	}

	const positionQuery = `
		INSERT INTO positions (account_id, symbol, quantity, average_price, realized_pnl)
		VALUES (?, ?, ?, ?, ?)`
	for _, pos := range st.Positions {
		if _, err := tx.ExecContext(ctx, positionQuery,
			string(st.ID), string(pos.Symbol), pos.Quantity.String(), pos.AveragePrice.String(), pos.RealizedPnL.String(),
		); err != nil {
			return fmt.Errorf("%w: position %s: %w", ports.ErrQueryFailed, pos.Symbol, err)
		}
	}

	seq := 0
	for _, o := range st.OrderHistory {
		if err := insertOrder(ctx, tx, st.ID, o, seq, false); err != nil {
			return err
		}
		seq++
	}
	for _, o := range sortedOpenOrders(st) {
		if err := insertOrder(ctx, tx, st.ID, o, seq, true); err != nil {
			return err
		}
		seq++
	}
	return nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, accountID domain.AccountID, o *domain.Order, seq int, open bool) error {
	const orderQuery = `
		INSERT INTO orders (account_id, id, seq, is_open, symbol, side, type, quantity, filled_quantity,
			limit_price, stop_price, status, reject_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, orderQuery,
		string(accountID), string(o.ID), seq, open, string(o.Symbol), string(o.Side), string(o.Type),
		o.Quantity.String(), o.FilledQuantity.String(), nullablePrice(o.LimitPrice), nullablePrice(o.StopPrice),
		string(o.Status), o.RejectReason, o.CreatedAt.UTC(), o.UpdatedAt.UTC(),
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order %s: %w", ports.ErrDuplicateEntry, o.ID, err)
		}
		return fmt.Errorf("%w: order %s: %w", ports.ErrQueryFailed, o.ID, err)
	}

	const tradeQuery = `
		INSERT INTO trades (id, account_id, order_id, seq, symbol, side, quantity, price, commission, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, t := range o.Trades {
		if _, err := tx.ExecContext(ctx, tradeQuery,
			string(t.ID), string(accountID), string(o.ID), i, string(t.Symbol), string(t.Side),
			t.Quantity.String(), t.Price.String(), t.Commission.String(), t.Timestamp.UTC(),
		); err != nil {
			return fmt.Errorf("%w: trade %s: %w", ports.ErrQueryFailed, t.ID, err)
		}
	}
	return nil
}

// Load implements account.Store.
func (r *Repository) Load(ctx context.Context) ([]*account.State, error) {
	states, byID, err := r.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, nil
	}
	if err := r.loadPositions(ctx, byID); err != nil {
		return nil, err
	}
	orders, err := r.loadOrders(ctx, byID)
	if err != nil {
		return nil, err
	}
	if err := r.loadTrades(ctx, orders); err != nil {
		return nil, err
	}
	r.logger.Debug(ctx, "Accounts read", map[string]interface{}{"path": r.path, "count": len(states)})
	return states, nil
}

func (r *Repository) loadAccounts(ctx context.Context) ([]*account.State, map[domain.AccountID]*account.State, error) {
	const query = `
		SELECT id, name, base_currency, cash_balance, initial_deposit,
			cfg_slippage, cfg_spread, cfg_commission_rate, cfg_storage_path, created_at, updated_at
		FROM accounts ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query accounts: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var states []*account.State
	byID := make(map[domain.AccountID]*account.State)
	for rows.Next() {
		st := &account.State{
			Positions:    make(map[domain.Symbol]*domain.Position),
			OpenOrders:   make(map[domain.OrderID]*domain.Order),
			OrderHistory: make([]*domain.Order, 0),
		}
		var id string
		var slippage, spread, commission decimal.NullDecimal
		var storagePath sql.NullString
		if err := rows.Scan(&id, &st.Name, &st.BaseCurrency, &st.CashBalance, &st.InitialDeposit,
			&slippage, &spread, &commission, &storagePath, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan account row: %w: %w", ports.ErrQueryFailed, err)
		}
		st.ID = domain.AccountID(id)
		st.CreatedAt = st.CreatedAt.UTC()
		st.UpdatedAt = st.UpdatedAt.UTC()
		if slippage.Valid {
			st.Config = &domain.TradingConfig{
				DefaultSlippage: slippage.Decimal,
				DefaultSpread:   spread.Decimal,
				CommissionRate:  commission.Decimal,
				StoragePath:     storagePath.String,
			}
		}
		states = append(states, st)
		byID[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating account rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return states, byID, nil
}

func (r *Repository) loadPositions(ctx context.Context, byID map[domain.AccountID]*account.State) error {
	const query = `SELECT account_id, symbol, quantity, average_price, realized_pnl FROM positions`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query positions: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID, symbol string
		pos := &domain.Position{}
		if err := rows.Scan(&accountID, &symbol, &pos.Quantity.Decimal, &pos.AveragePrice.Decimal, &pos.RealizedPnL); err != nil {
			return fmt.Errorf("failed to scan position row: %w: %w", ports.ErrQueryFailed, err)
		}
		st, ok := byID[domain.AccountID(accountID)]
		if !ok {
			continue
		}
		pos.Symbol = domain.Symbol(symbol)
		st.Positions[pos.Symbol] = pos
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating position rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

type orderKey struct {
	account domain.AccountID
	order   domain.OrderID
}

func (r *Repository) loadOrders(ctx context.Context, byID map[domain.AccountID]*account.State) (map[orderKey]*domain.Order, error) {
	const query = `
		SELECT account_id, id, is_open, symbol, side, type, quantity, filled_quantity,
			limit_price, stop_price, status, reject_reason, created_at, updated_at
		FROM orders ORDER BY account_id, seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	orders := make(map[orderKey]*domain.Order)
	for rows.Next() {
		var accountID, id, symbol, side, orderType, status string
		var open bool
		var limitPrice, stopPrice decimal.NullDecimal
		o := &domain.Order{Trades: make([]domain.Trade, 0)}
		if err := rows.Scan(&accountID, &id, &open, &symbol, &side, &orderType,
			&o.Quantity.Decimal, &o.FilledQuantity.Decimal, &limitPrice, &stopPrice,
			&status, &o.RejectReason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w: %w", ports.ErrQueryFailed, err)
		}
		st, ok := byID[domain.AccountID(accountID)]
		if !ok {
			continue
		}
		o.ID = domain.OrderID(id)
		o.Symbol = domain.Symbol(symbol)
		o.Side = domain.OrderSide(side)
		o.Type = domain.OrderType(orderType)
		o.Status = domain.OrderStatus(status)
		o.LimitPrice = priceFromNull(limitPrice)
		o.StopPrice = priceFromNull(stopPrice)
		o.CreatedAt = o.CreatedAt.UTC()
		o.UpdatedAt = o.UpdatedAt.UTC()

		if open {
			st.OpenOrders[o.ID] = o
		} else {
			st.OrderHistory = append(st.OrderHistory, o)
		}
		orders[orderKey{st.ID, o.ID}] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return orders, nil
}

func (r *Repository) loadTrades(ctx context.Context, orders map[orderKey]*domain.Order) error {
	const query = `
		SELECT id, account_id, order_id, symbol, side, quantity, price, commission, timestamp
		FROM trades ORDER BY account_id, order_id, seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query trades: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, accountID, orderID, symbol, side string
		var t domain.Trade
		if err := rows.Scan(&id, &accountID, &orderID, &symbol, &side,
			&t.Quantity.Decimal, &t.Price.Decimal, &t.Commission, &t.Timestamp); err != nil {
			return fmt.Errorf("failed to scan trade row: %w: %w", ports.ErrQueryFailed, err)
		}
		o, ok := orders[orderKey{domain.AccountID(accountID), domain.OrderID(orderID)}]
		if !ok {
			continue
		}
		t.ID = domain.TradeID(id)
		t.OrderID = o.ID
		t.Symbol = domain.Symbol(symbol)
		t.Side = domain.OrderSide(side)
		t.Timestamp = t.Timestamp.UTC()
		o.Trades = append(o.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating trade rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

func sortedOpenOrders(st *account.State) []*domain.Order {
	out := make([]*domain.Order, 0, len(st.OpenOrders))
	for _, o := range st.OpenOrders {
		out = append(out, o)
	}
	account.SortOrders(out)
	return out
}

func nullablePrice(p *domain.Price) interface{} {
	if p == nil {
		return nil
	}
	return p.String()
}

func priceFromNull(d decimal.NullDecimal) *domain.Price {
	if !d.Valid {
		return nil
	}
	return domain.NewPrice(d.Decimal).Ptr()
}

// isUniqueViolation reports whether err is a SQLite key constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
