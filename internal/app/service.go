package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"tradejournal/internal/analytics"
	"tradejournal/internal/domain"
	"tradejournal/internal/ledger"
	"tradejournal/internal/lifecycle"
	"tradejournal/internal/ports"
	"tradejournal/pkg/id"
)

// Event describes a completed journal mutation. It is handed to the injected
// notifier after the transaction has been persisted, so callers can refresh
// views or fan out updates without the core depending on any event system.
type Event struct {
	Type      string // "trade_created", "status_changed", "trade_reopened", "trade_deleted", "notes_updated", "account_created"
	TradeID   string
	AccountID string
	Delta     float64 // Balance delta applied by this mutation, 0 if none
}

// Notifier receives events after successful transactions. May be nil.
type Notifier func(ctx context.Context, event Event)

// JournalService orchestrates the trade lifecycle against the account ledger:
// validate the transition, compute the delta, persist trade and account
// together, then notify.
type JournalService struct {
	logger ports.Logger
	store  ports.JournalStore
	notify Notifier
	now    func() time.Time

	// Transitions on the same account are serialized so two concurrent
	// status changes cannot both read the same balance and lose an update.
	mu           sync.Mutex
	accountLocks map[string]*sync.Mutex
}

// NewJournalService creates a new application service instance.
func NewJournalService(logger ports.Logger, store ports.JournalStore, notify Notifier) (*JournalService, error) {
	if logger == nil || store == nil {
		return nil, fmt.Errorf("missing required dependencies for JournalService")
	}
	return &JournalService{
		logger:       logger,
		store:        store,
		notify:       notify,
		now:          func() time.Time { return time.Now().UTC() },
		accountLocks: make(map[string]*sync.Mutex),
	}, nil
}

// lockAccount returns the mutex serializing mutations for one account.
func (s *JournalService) lockAccount(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.accountLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.accountLocks[accountID] = lock
	}
	return lock
}

func (s *JournalService) emit(ctx context.Context, event Event) {
	if s.notify != nil {
		s.notify(ctx, event)
	}
}

// CreateAccount creates a new account ledger with CurrentBalance starting at
// initialBalance.
func (s *JournalService) CreateAccount(ctx context.Context, name string, initialBalance float64) (*domain.Account, error) {
	if math.IsNaN(initialBalance) || math.IsInf(initialBalance, 0) || initialBalance < 0 {
		return nil, fmt.Errorf("createAccount: initial balance %v: %w", initialBalance, ports.ErrInvalidAmount)
	}
	now := s.now()
	account := &domain.Account{
		ID:             id.New(),
		Name:           name,
		InitialBalance: initialBalance,
		CurrentBalance: initialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		s.logger.Error(ctx, err, "createAccount: failed to persist account", map[string]interface{}{"name": name})
		return nil, fmt.Errorf("failed to persist account: %w", err)
	}
	s.logger.Info(ctx, "Account created", map[string]interface{}{"accountID": account.ID, "initialBalance": initialBalance})
	s.emit(ctx, Event{Type: "account_created", AccountID: account.ID})
	return account, nil
}

// TradeParams holds the caller-supplied fields for a new trade record.
type TradeParams struct {
	AccountID       string
	Symbol          string
	Direction       domain.Direction
	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	RiskAmount      float64
	PotentialProfit float64 // Non-negative magnitude
	PotentialLoss   float64 // Non-negative magnitude
	Status          string  // Canonical or legacy alias; defaults to PLANNED
	Notes           string
	Tags            []string
}

// CreateTrade creates a new trade record in a non-terminal status.
func (s *JournalService) CreateTrade(ctx context.Context, params TradeParams) (*domain.TradeRecord, error) {
	op := "createTrade"
	if params.AccountID == "" {
		return nil, fmt.Errorf("%s: accountID is required: %w", op, ports.ErrInvalidRequest)
	}
	if !params.Direction.IsValid() {
		return nil, fmt.Errorf("%s: direction %q: %w", op, params.Direction, ports.ErrInvalidRequest)
	}
	for name, v := range map[string]float64{
		"potentialProfit": params.PotentialProfit,
		"potentialLoss":   params.PotentialLoss,
		"riskAmount":      params.RiskAmount,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%s: %s %v: %w", op, name, v, ports.ErrInvalidAmount)
		}
	}

	status := domain.StatusPlanned
	if params.Status != "" {
		parsed, err := domain.ParseStatus(params.Status)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", op, err, ports.ErrInvalidRequest)
		}
		if parsed.IsTerminal() {
			return nil, fmt.Errorf("%s: new trades must start non-terminal, got %s: %w", op, parsed, ports.ErrInvalidTransition)
		}
		status = parsed
	}

	account, err := s.fetchAccount(ctx, params.AccountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	trade := &domain.TradeRecord{
		ID:              id.New(),
		AccountID:       account.ID,
		Symbol:          params.Symbol,
		Direction:       params.Direction,
		EntryPrice:      params.EntryPrice,
		StopLoss:        params.StopLoss,
		TakeProfit:      params.TakeProfit,
		RiskAmount:      params.RiskAmount,
		PotentialProfit: params.PotentialProfit,
		PotentialLoss:   params.PotentialLoss,
		Status:          status,
		Notes:           params.Notes,
		Tags:            params.Tags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateTrade(ctx, trade); err != nil {
		s.logger.Error(ctx, err, op+": failed to persist trade", map[string]interface{}{"accountID": account.ID})
		return nil, fmt.Errorf("failed to persist trade: %w", err)
	}
	s.logger.Info(ctx, "Trade created", map[string]interface{}{"tradeID": trade.ID, "accountID": account.ID, "status": status})
	s.emit(ctx, Event{Type: "trade_created", TradeID: trade.ID, AccountID: account.ID})
	return trade, nil
}

// ChangeStatus transitions a trade to the target status (canonical or legacy
// alias) and applies any realized P&L to the owning account. The trade and
// ledger updates are persisted together or not at all.
func (s *JournalService) ChangeStatus(ctx context.Context, tradeID, targetStatus string) (*domain.TradeRecord, error) {
	op := "changeStatus"
	target, err := domain.ParseStatus(targetStatus)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ports.ErrInvalidTransition)
	}

	// Resolve the owning account outside the lock, then re-read state under
	// it so the transition sees the latest trade and balance.
	accountID, err := s.tradeAccountID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	trade, err := s.fetchTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	account, err := s.fetchAccount(ctx, trade.AccountID)
	if err != nil {
		return nil, err
	}

	updated, delta, err := lifecycle.Transition(trade, target, s.now())
	if err != nil {
		return nil, err
	}

	if delta == 0 {
		// No ledger movement; persist only the trade record.
		if err := s.store.UpdateTrade(ctx, updated); err != nil {
			s.logger.Error(ctx, err, op+": failed to persist trade", map[string]interface{}{"tradeID": tradeID})
			return nil, fmt.Errorf("failed to persist trade: %w", err)
		}
		s.logger.Info(ctx, "Trade status changed", map[string]interface{}{"tradeID": tradeID, "status": updated.Status})
		s.emit(ctx, Event{Type: "status_changed", TradeID: tradeID, AccountID: account.ID})
		return updated, nil
	}

	updatedAccount, err := ledger.ApplyDelta(account, delta)
	if err != nil {
		return nil, err
	}
	updatedAccount.UpdatedAt = updated.UpdatedAt

	if err := s.store.SaveTradeAndAccount(ctx, updated, updatedAccount); err != nil {
		s.logger.Error(ctx, err, op+": failed to persist trade and ledger", map[string]interface{}{"tradeID": tradeID, "accountID": account.ID})
		return nil, fmt.Errorf("failed to persist trade and ledger: %w", err)
	}
	s.logger.Info(ctx, "Trade closed and ledger updated", map[string]interface{}{
		"tradeID": tradeID, "status": updated.Status, "delta": delta, "balance": updatedAccount.CurrentBalance,
	})
	s.emit(ctx, Event{Type: "status_changed", TradeID: tradeID, AccountID: account.ID, Delta: delta})
	return updated, nil
}

// ReopenTrade moves a terminal trade back to ACTIVE, clearing its realized
// P&L and applying the inverse of the original delta to the ledger.
func (s *JournalService) ReopenTrade(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	op := "reopenTrade"
	accountID, err := s.tradeAccountID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	trade, err := s.fetchTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	account, err := s.fetchAccount(ctx, trade.AccountID)
	if err != nil {
		return nil, err
	}

	updated, inverse, err := lifecycle.Reopen(trade, s.now())
	if err != nil {
		return nil, err
	}

	if inverse == 0 {
		if err := s.store.UpdateTrade(ctx, updated); err != nil {
			return nil, fmt.Errorf("failed to persist reopened trade: %w", err)
		}
		s.emit(ctx, Event{Type: "trade_reopened", TradeID: tradeID, AccountID: account.ID})
		return updated, nil
	}

	updatedAccount, err := ledger.ApplyDelta(account, inverse)
	if err != nil {
		return nil, err
	}
	updatedAccount.UpdatedAt = updated.UpdatedAt

	if err := s.store.SaveTradeAndAccount(ctx, updated, updatedAccount); err != nil {
		s.logger.Error(ctx, err, op+": failed to persist trade and ledger", map[string]interface{}{"tradeID": tradeID})
		return nil, fmt.Errorf("failed to persist trade and ledger: %w", err)
	}
	s.logger.Info(ctx, "Trade reopened and ledger reversed", map[string]interface{}{
		"tradeID": tradeID, "delta": inverse, "balance": updatedAccount.CurrentBalance,
	})
	s.emit(ctx, Event{Type: "trade_reopened", TradeID: tradeID, AccountID: account.ID, Delta: inverse})
	return updated, nil
}

// DeleteTrade removes a trade. Deleting a terminal trade first applies the
// inverse of its realized P&L so the ledger invariant continues to hold over
// the reduced trade set; deleting a non-terminal trade issues no delta.
func (s *JournalService) DeleteTrade(ctx context.Context, tradeID string) error {
	op := "deleteTrade"
	accountID, err := s.tradeAccountID(ctx, tradeID)
	if err != nil {
		return err
	}
	lock := s.lockAccount(accountID)
	lock.Lock()
	defer lock.Unlock()

	trade, err := s.fetchTrade(ctx, tradeID)
	if err != nil {
		return err
	}

	delta := ledger.DeletionDelta(trade)
	if delta == 0 {
		if err := s.store.DeleteTrade(ctx, tradeID); err != nil {
			s.logger.Error(ctx, err, op+": failed to delete trade", map[string]interface{}{"tradeID": tradeID})
			return fmt.Errorf("failed to delete trade: %w", err)
		}
		s.emit(ctx, Event{Type: "trade_deleted", TradeID: tradeID, AccountID: trade.AccountID})
		return nil
	}

	account, err := s.fetchAccount(ctx, trade.AccountID)
	if err != nil {
		return err
	}
	updatedAccount, err := ledger.ApplyDelta(account, delta)
	if err != nil {
		return err
	}
	updatedAccount.UpdatedAt = s.now()

	if err := s.store.DeleteTradeAndSaveAccount(ctx, tradeID, updatedAccount); err != nil {
		s.logger.Error(ctx, err, op+": failed to delete trade and update ledger", map[string]interface{}{"tradeID": tradeID})
		return fmt.Errorf("failed to delete trade and update ledger: %w", err)
	}
	s.logger.Info(ctx, "Terminal trade deleted, ledger reversed", map[string]interface{}{
		"tradeID": tradeID, "delta": delta, "balance": updatedAccount.CurrentBalance,
	})
	s.emit(ctx, Event{Type: "trade_deleted", TradeID: tradeID, AccountID: trade.AccountID, Delta: delta})
	return nil
}

// UpdateNotes merges non-financial annotations into a trade. This never
// touches RealizedPnL or the ledger, regardless of the trade's status.
func (s *JournalService) UpdateNotes(ctx context.Context, tradeID, notes string, tags []string) (*domain.TradeRecord, error) {
	trade, err := s.fetchTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	updated := trade.Clone()
	updated.Notes = notes
	updated.Tags = append([]string(nil), tags...)
	updated.UpdatedAt = s.now()

	if err := s.store.UpdateTrade(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist trade notes: %w", err)
	}
	s.emit(ctx, Event{Type: "notes_updated", TradeID: tradeID, AccountID: trade.AccountID})
	return updated, nil
}

// AccountSummary recomputes summary statistics over an account's current
// trade set. Always derived on demand, never cached.
func (s *JournalService) AccountSummary(ctx context.Context, accountID string) (*analytics.Summary, error) {
	if _, err := s.fetchAccount(ctx, accountID); err != nil {
		return nil, err
	}
	trades, err := s.store.FindTradesByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for account %s: %w", accountID, err)
	}
	return analytics.Summarize(trades), nil
}

// DriftReport holds the result of a ledger reconciliation check.
type DriftReport struct {
	AccountID       string
	StoredBalance   float64
	ExpectedBalance float64
	Drift           float64 // StoredBalance - ExpectedBalance; 0 when consistent
}

// CheckDrift compares an account's stored balance against the balance
// recomputed from its terminal trades, the authoritative reconciliation check.
func (s *JournalService) CheckDrift(ctx context.Context, accountID string) (*DriftReport, error) {
	account, err := s.fetchAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	trades, err := s.store.FindTradesByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for account %s: %w", accountID, err)
	}
	expected := ledger.Recompute(account, trades)
	report := &DriftReport{
		AccountID:       accountID,
		StoredBalance:   account.CurrentBalance,
		ExpectedBalance: expected,
		Drift:           account.CurrentBalance - expected,
	}
	if report.Drift != 0 {
		s.logger.Warn(ctx, "Ledger drift detected", map[string]interface{}{
			"accountID": accountID, "stored": report.StoredBalance, "expected": expected, "drift": report.Drift,
		})
	}
	return report, nil
}

// --- Lookup helpers mapping absent records to ports.ErrNotFound ---

func (s *JournalService) fetchTrade(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	trade, err := s.store.FindTradeByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %s: %w", tradeID, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("trade %s: %w", tradeID, ports.ErrNotFound)
	}
	return trade, nil
}

func (s *JournalService) fetchAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, ports.ErrNotFound)
	}
	return account, nil
}

func (s *JournalService) tradeAccountID(ctx context.Context, tradeID string) (string, error) {
	trade, err := s.fetchTrade(ctx, tradeID)
	if err != nil {
		return "", err
	}
	return trade.AccountID, nil
}
