package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.JournalStore using SQLite.
type Repository struct {
	db     *sql.DB
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
		dbPath = "./data/journal.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, but the Go driver benefits from
	// limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite journal store ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: This is a basic approach. A proper migration tool is recommended for production.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		initial_balance REAL NOT NULL,
		current_balance REAL NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		risk_amount REAL NOT NULL,
		potential_profit REAL NOT NULL,
		potential_loss REAL NOT NULL,
		status TEXT NOT NULL,
		realized_pnl REAL DEFAULT NULL,
		notes TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_account_status ON trades (account_id, status);
	CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades (created_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
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

// --- TradeRepository Implementation ---

const tradeColumns = `id, account_id, symbol, direction, entry_price, stop_loss, take_profit,
       risk_amount, potential_profit, potential_loss, status, realized_pnl, notes, tags,
       created_at, updated_at`

// CreateTrade saves a new trade record.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.TradeRecord) error {
	const query = `
	INSERT INTO trades (id, account_id, symbol, direction, entry_price, stop_loss, take_profit,
	                    risk_amount, potential_profit, potential_loss, status, realized_pnl,
	                    notes, tags, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.AccountID, trade.Symbol, trade.Direction, trade.EntryPrice,
		trade.StopLoss, trade.TakeProfit, trade.RiskAmount, trade.PotentialProfit,
		trade.PotentialLoss, trade.Status, nullPnL(trade.RealizedPnL),
		trade.Notes, joinTags(trade.Tags), trade.CreatedAt, trade.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s: %w", trade.ID, err)
	}
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": trade.ID, "accountID": trade.AccountID})
	return nil
}

// UpdateTrade modifies an existing trade record based on its ID.
func (r *Repository) UpdateTrade(ctx context.Context, trade *domain.TradeRecord) error {
	result, err := r.db.ExecContext(ctx, updateTradeQuery, tradeUpdateArgs(trade)...)
	if err != nil {
		return fmt.Errorf("failed to update trade %s: %w", trade.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade %s: %w", trade.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for update: %w", trade.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade updated", map[string]interface{}{"tradeID": trade.ID, "status": trade.Status})
	return nil
}

// DeleteTrade removes a trade record by its ID.
func (r *Repository) DeleteTrade(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete trade %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for delete: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade deleted", map[string]interface{}{"tradeID": id})
	return nil
}

// FindTradeByID retrieves a trade by its unique ID.
func (r *Repository) FindTradeByID(ctx context.Context, id string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	trade, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query trade by ID %s: %w", id, err)
	}
	return trade, nil
}

// FindTradesByAccount retrieves all trades for an account, ordered by creation time ascending.
func (r *Repository) FindTradesByAccount(ctx context.Context, accountID string) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE account_id = ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// FindAllTrades retrieves all trades, ordered by creation time ascending.
func (r *Repository) FindAllTrades(ctx context.Context) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all trades: %w", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// --- AccountRepository Implementation ---

// CreateAccount saves a new account.
func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) error {
	const query = `
	INSERT INTO accounts (id, name, initial_balance, current_balance, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Name, account.InitialBalance, account.CurrentBalance,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert account %s: %w", account.ID, err)
	}
	r.logger.Debug(ctx, "Account created", map[string]interface{}{"accountID": account.ID, "name": account.Name})
	return nil
}

// UpdateAccount modifies an existing account based on its ID.
func (r *Repository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	result, err := r.db.ExecContext(ctx, updateAccountQuery, accountUpdateArgs(account)...)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", account.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for account %s: %w", account.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %s not found for update: %w", account.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Account updated", map[string]interface{}{"accountID": account.ID, "balance": account.CurrentBalance})
	return nil
}

// FindAccountByID retrieves an account by its unique ID.
func (r *Repository) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
	SELECT id, name, initial_balance, current_balance, created_at, updated_at
	FROM accounts WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query account by ID %s: %w", id, err)
	}
	return account, nil
}

// FindAllAccounts retrieves all accounts, ordered by creation time ascending.
func (r *Repository) FindAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	const query = `
	SELECT id, name, initial_balance, current_balance, created_at, updated_at
	FROM accounts ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account during FindAllAccounts: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// --- Paired writes ---

// SaveTradeAndAccount persists an updated trade and its account ledger in a
// single transaction, so a status change and the matching balance delta land
// together or not at all.
func (r *Repository) SaveTradeAndAccount(ctx context.Context, trade *domain.TradeRecord, account *domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := execExpectingRow(ctx, tx, updateTradeQuery, tradeUpdateArgs(trade), "trade "+trade.ID); err != nil {
		return err
	}
	if err := execExpectingRow(ctx, tx, updateAccountQuery, accountUpdateArgs(account), "account "+account.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade/account update: %w", err)
	}
	r.logger.Debug(ctx, "Trade and account saved atomically", map[string]interface{}{
		"tradeID": trade.ID, "accountID": account.ID, "balance": account.CurrentBalance,
	})
	return nil
}

// DeleteTradeAndSaveAccount removes a trade and persists the account ledger
// carrying the inverse delta in a single transaction.
func (r *Repository) DeleteTradeAndSaveAccount(ctx context.Context, tradeID string, account *domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := execExpectingRow(ctx, tx, `DELETE FROM trades WHERE id = ?`, []interface{}{tradeID}, "trade "+tradeID); err != nil {
		return err
	}
	if err := execExpectingRow(ctx, tx, updateAccountQuery, accountUpdateArgs(account), "account "+account.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade delete/account update: %w", err)
	}
	r.logger.Debug(ctx, "Trade deleted and account saved atomically", map[string]interface{}{
		"tradeID": tradeID, "accountID": account.ID, "balance": account.CurrentBalance,
	})
	return nil
}

// --- Shared statements and helpers ---

const updateTradeQuery = `
	UPDATE trades
	SET symbol = ?, direction = ?, entry_price = ?, stop_loss = ?, take_profit = ?,
	    risk_amount = ?, potential_profit = ?, potential_loss = ?, status = ?,
	    realized_pnl = ?, notes = ?, tags = ?, updated_at = ?
	WHERE id = ?`

func tradeUpdateArgs(trade *domain.TradeRecord) []interface{} {
	return []interface{}{
		trade.Symbol, trade.Direction, trade.EntryPrice, trade.StopLoss, trade.TakeProfit,
		trade.RiskAmount, trade.PotentialProfit, trade.PotentialLoss, trade.Status,
		nullPnL(trade.RealizedPnL), trade.Notes, joinTags(trade.Tags), trade.UpdatedAt,
		trade.ID,
	}
}

const updateAccountQuery = `
	UPDATE accounts
	SET name = ?, current_balance = ?, updated_at = ?
	WHERE id = ?`

func accountUpdateArgs(account *domain.Account) []interface{} {
	return []interface{}{account.Name, account.CurrentBalance, account.UpdatedAt, account.ID}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// execExpectingRow runs a statement that must affect exactly one row and maps
// a zero-row result to ports.ErrNotFound.
func execExpectingRow(ctx context.Context, e execer, query string, args []interface{}, target string) error {
	result, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute statement for %s: %w", target, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for %s: %w", target, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", target, ports.ErrNotFound)
	}
	return nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.TradeRecord struct.
func scanTrade(s scanner) (*domain.TradeRecord, error) {
	t := &domain.TradeRecord{}
	var realizedPnL sql.NullFloat64
	var direction, status, tags string
	err := s.Scan(
		&t.ID, &t.AccountID, &t.Symbol, &direction, &t.EntryPrice, &t.StopLoss, &t.TakeProfit,
		&t.RiskAmount, &t.PotentialProfit, &t.PotentialLoss, &status, &realizedPnL,
		&t.Notes, &tags, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Direction = domain.Direction(direction)
	// Older exports may carry legacy alias statuses; normalize on read.
	parsed, perr := domain.ParseStatus(status)
	if perr != nil {
		return nil, fmt.Errorf("trade %s: %w", t.ID, perr)
	}
	t.Status = parsed
	if realizedPnL.Valid {
		pnl := realizedPnL.Float64
		t.RealizedPnL = &pnl
	}
	t.Tags = splitTags(tags)
	return t, nil
}

// scanAccount scans a row into a domain.Account struct.
func scanAccount(s scanner) (*domain.Account, error) {
	a := &domain.Account{}
	err := s.Scan(&a.ID, &a.Name, &a.InitialBalance, &a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	return a, nil
}

func collectTrades(rows *sql.Rows) ([]*domain.TradeRecord, error) {
	trades := make([]*domain.TradeRecord, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

func nullPnL(pnl *float64) sql.NullFloat64 {
	if pnl == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *pnl, Valid: true}
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
