package ports

import (
	"context"

	"tradejournal/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving trade records.
type TradeRepository interface {
	// CreateTrade saves a new trade record.
	CreateTrade(ctx context.Context, trade *domain.TradeRecord) error
	// UpdateTrade modifies an existing trade record.
	UpdateTrade(ctx context.Context, trade *domain.TradeRecord) error
	// DeleteTrade removes a trade record by its ID.
	DeleteTrade(ctx context.Context, id string) error
	// FindTradeByID retrieves a trade by its unique ID.
	// Returns nil, nil if not found.
	FindTradeByID(ctx context.Context, id string) (*domain.TradeRecord, error)
	// FindTradesByAccount retrieves all trades belonging to an account,
	// ordered by creation time ascending.
	FindTradesByAccount(ctx context.Context, accountID string) ([]*domain.TradeRecord, error)
	// FindAllTrades retrieves all trades, ordered by creation time ascending.
	FindAllTrades(ctx context.Context) ([]*domain.TradeRecord, error)
}

// AccountRepository defines the interface for storing and retrieving account ledgers.
type AccountRepository interface {
	// CreateAccount saves a new account.
	CreateAccount(ctx context.Context, account *domain.Account) error
	// UpdateAccount modifies an existing account.
	UpdateAccount(ctx context.Context, account *domain.Account) error
	// FindAccountByID retrieves an account by its unique ID.
	// Returns nil, nil if not found.
	FindAccountByID(ctx context.Context, id string) (*domain.Account, error)
	// FindAllAccounts retrieves all accounts, ordered by creation time ascending.
	FindAllAccounts(ctx context.Context) ([]*domain.Account, error)
}

// JournalStore combines both repositories and adds the paired writes the
// application service needs: a trade status change and the matching ledger
// update must be persisted together or not at all.
type JournalStore interface {
	TradeRepository
	AccountRepository

	// SaveTradeAndAccount persists an updated trade and its account ledger
	// in a single transaction.
	SaveTradeAndAccount(ctx context.Context, trade *domain.TradeRecord, account *domain.Account) error
	// DeleteTradeAndSaveAccount removes a trade and persists the account
	// ledger carrying the inverse delta in a single transaction.
	DeleteTradeAndSaveAccount(ctx context.Context, tradeID string, account *domain.Account) error
}
