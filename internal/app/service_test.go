package app

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Mock implementations

type mockLogger struct {
	warnMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// mockStore is an in-memory ports.JournalStore with optional failure injection.
type mockStore struct {
	trades   map[string]*domain.TradeRecord
	accounts map[string]*domain.Account

	failPairedSave bool
}

func newMockStore() *mockStore {
	return &mockStore{
		trades:   make(map[string]*domain.TradeRecord),
		accounts: make(map[string]*domain.Account),
	}
}

func (m *mockStore) CreateTrade(ctx context.Context, trade *domain.TradeRecord) error {
	m.trades[trade.ID] = trade.Clone()
	return nil
}

func (m *mockStore) UpdateTrade(ctx context.Context, trade *domain.TradeRecord) error {
	if _, ok := m.trades[trade.ID]; !ok {
		return ports.ErrNotFound
	}
	m.trades[trade.ID] = trade.Clone()
	return nil
}

func (m *mockStore) DeleteTrade(ctx context.Context, id string) error {
	if _, ok := m.trades[id]; !ok {
		return ports.ErrNotFound
	}
	delete(m.trades, id)
	return nil
}

func (m *mockStore) FindTradeByID(ctx context.Context, id string) (*domain.TradeRecord, error) {
	trade, ok := m.trades[id]
	if !ok {
		return nil, nil
	}
	return trade.Clone(), nil
}

func (m *mockStore) FindTradesByAccount(ctx context.Context, accountID string) ([]*domain.TradeRecord, error) {
	out := make([]*domain.TradeRecord, 0)
	for _, trade := range m.trades {
		if trade.AccountID == accountID {
			out = append(out, trade.Clone())
		}
	}
	return out, nil
}

func (m *mockStore) FindAllTrades(ctx context.Context) ([]*domain.TradeRecord, error) {
	out := make([]*domain.TradeRecord, 0, len(m.trades))
	for _, trade := range m.trades {
		out = append(out, trade.Clone())
	}
	return out, nil
}

func (m *mockStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	m.accounts[account.ID] = account.Clone()
	return nil
}

func (m *mockStore) UpdateAccount(ctx context.Context, account *domain.Account) error {
	if _, ok := m.accounts[account.ID]; !ok {
		return ports.ErrNotFound
	}
	m.accounts[account.ID] = account.Clone()
	return nil
}

func (m *mockStore) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return account.Clone(), nil
}

func (m *mockStore) FindAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	out := make([]*domain.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		out = append(out, account.Clone())
	}
	return out, nil
}

func (m *mockStore) SaveTradeAndAccount(ctx context.Context, trade *domain.TradeRecord, account *domain.Account) error {
	if m.failPairedSave {
		return errors.New("injected store failure")
	}
	m.trades[trade.ID] = trade.Clone()
	m.accounts[account.ID] = account.Clone()
	return nil
}

func (m *mockStore) DeleteTradeAndSaveAccount(ctx context.Context, tradeID string, account *domain.Account) error {
	if m.failPairedSave {
		return errors.New("injected store failure")
	}
	delete(m.trades, tradeID)
	m.accounts[account.ID] = account.Clone()
	return nil
}

func newTestService(t *testing.T, store *mockStore, notify Notifier) *JournalService {
	t.Helper()
	service, err := NewJournalService(&mockLogger{}, store, notify)
	require.NoError(t, err)
	return service
}

func TestNewJournalServiceValidatesDependencies(t *testing.T) {
	_, err := NewJournalService(nil, newMockStore(), nil)
	assert.Error(t, err)
	_, err = NewJournalService(&mockLogger{}, nil, nil)
	assert.Error(t, err)
}

func TestCreateAccountStartsAtInitialBalance(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store, nil)

	account, err := service.CreateAccount(context.Background(), "main", 10000)
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, 10000.0, account.InitialBalance)
	assert.Equal(t, 10000.0, account.CurrentBalance)
}

func TestCreateAccountRejectsInvalidBalance(t *testing.T) {
	service := newTestService(t, newMockStore(), nil)

	_, err := service.CreateAccount(context.Background(), "bad", math.NaN())
	assert.ErrorIs(t, err, ports.ErrInvalidAmount)
	_, err = service.CreateAccount(context.Background(), "bad", -5)
	assert.ErrorIs(t, err, ports.ErrInvalidAmount)
}

func TestCreateTradeDefaultsAndAliases(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store, nil)
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, "main", 1000)
	require.NoError(t, err)

	trade, err := service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Long,
		PotentialProfit: 200, PotentialLoss: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlanned, trade.Status)
	assert.Nil(t, trade.RealizedPnL)

	// Legacy alias normalizes at the boundary
	trade, err = service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Short,
		PotentialProfit: 50, PotentialLoss: 25, Status: "OPEN",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, trade.Status)

	// New trades cannot start terminal
	_, err = service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Long, Status: "WIN",
	})
	assert.ErrorIs(t, err, ports.ErrInvalidTransition)

	// Unknown account
	_, err = service.CreateTrade(ctx, TradeParams{
		AccountID: "missing", Symbol: "EURUSD", Direction: domain.Long,
	})
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

// End-to-end scenario: two trades close against one ledger, then a terminal
// trade is deleted and the summary reflects the reduced set.
func TestEndToEndLifecycle(t *testing.T) {
	store := newMockStore()
	var events []Event
	service := newTestService(t, store, func(ctx context.Context, event Event) {
		events = append(events, event)
	})
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, "main", 10000)
	require.NoError(t, err)

	tradeA, err := service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Long,
		PotentialProfit: 200, PotentialLoss: 100,
	})
	require.NoError(t, err)
	tradeB, err := service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "GBPUSD", Direction: domain.Short,
		PotentialProfit: 50, PotentialLoss: 300,
	})
	require.NoError(t, err)

	// Trade A: PLANNED -> ACTIVE -> WIN, ledger becomes 10200
	_, err = service.ChangeStatus(ctx, tradeA.ID, "ACTIVE")
	require.NoError(t, err)
	closedA, err := service.ChangeStatus(ctx, tradeA.ID, "WIN")
	require.NoError(t, err)
	require.NotNil(t, closedA.RealizedPnL)
	assert.Equal(t, 200.0, *closedA.RealizedPnL)

	stored, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 10200.0, stored.CurrentBalance)

	// Trade B: PLANNED -> ACTIVE -> LOSS, ledger becomes 9900
	_, err = service.ChangeStatus(ctx, tradeB.ID, "ACTIVE")
	require.NoError(t, err)
	_, err = service.ChangeStatus(ctx, tradeB.ID, "LOSS")
	require.NoError(t, err)

	stored, err = store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 9900.0, stored.CurrentBalance)

	// Drift check is clean after every applied delta
	report, err := service.CheckDrift(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, report.Drift)

	// Deleting the winning trade reverses its +200
	require.NoError(t, service.DeleteTrade(ctx, tradeA.ID))
	stored, err = store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 9700.0, stored.CurrentBalance)

	summary, err := service.AccountSummary(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalTrades)
	assert.Zero(t, summary.WinRate)
	assert.Zero(t, summary.ProfitFactor)
	assert.Equal(t, -300.0, summary.NetPnL)

	report, err = service.CheckDrift(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, report.Drift)

	// Notifier saw the ledger-moving mutations with their deltas
	var deltas []float64
	for _, event := range events {
		if event.Delta != 0 {
			deltas = append(deltas, event.Delta)
		}
	}
	assert.Equal(t, []float64{200, -300, -200}, deltas)
}

func TestChangeStatusAtMostOnce(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store, nil)
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, "main", 1000)
	require.NoError(t, err)
	trade, err := service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Long,
		PotentialProfit: 150, PotentialLoss: 80, Status: "ACTIVE",
	})
	require.NoError(t, err)

	_, err = service.ChangeStatus(ctx, trade.ID, "WIN")
	require.NoError(t, err)

	// Re-issuing WIN leaves balance and realized value untouched
	again, err := service.ChangeStatus(ctx, trade.ID, "WIN")
	require.NoError(t, err)
	require.NotNil(t, again.RealizedPnL)
	assert.Equal(t, 150.0, *again.RealizedPnL)

	stored, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1150.0, stored.CurrentBalance)

	// Flipping to the other terminal state is rejected
	_, err = service.ChangeStatus(ctx, trade.ID, "LOSS")
	assert.ErrorIs(t, err, ports.ErrInvalidTransition)
	stored, err = store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1150.0, stored.CurrentBalance)
}

func TestReopenTradeReversesLedger(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store, nil)
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, "main", 1000)
	require.NoError(t, err)
	trade, err := service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Long,
		PotentialProfit: 150, PotentialLoss: 80, Status: "ACTIVE",
	})
	require.NoError(t, err)

	_, err = service.ChangeStatus(ctx, trade.ID, "LOSS")
	require.NoError(t, err)

	reopened, err := service.ReopenTrade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, reopened.Status)
	assert.Nil(t, reopened.RealizedPnL)

	stored, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stored.CurrentBalance)

	// The trade can close again afterwards, this time as a win
	_, err = service.ChangeStatus(ctx, trade.ID, "WIN")
	require.NoError(t, err)
	stored, err = store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1150.0, stored.CurrentBalance)
}

func TestDeleteNonTerminalTradeIssuesNoDelta(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store, nil)
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, "main", 1000)
	require.NoError(t, err)
	trade, err := service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Long,
		PotentialProfit: 150, PotentialLoss: 80,
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteTrade(ctx, trade.ID))
	stored, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stored.CurrentBalance)
}

func TestUpdateNotesNeverTouchesFinancials(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store, nil)
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, "main", 1000)
	require.NoError(t, err)
	trade, err := service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Long,
		PotentialProfit: 150, PotentialLoss: 80, Status: "ACTIVE",
	})
	require.NoError(t, err)
	_, err = service.ChangeStatus(ctx, trade.ID, "WIN")
	require.NoError(t, err)

	updated, err := service.UpdateNotes(ctx, trade.ID, "textbook breakout", []string{"breakout", "london"})
	require.NoError(t, err)
	assert.Equal(t, "textbook breakout", updated.Notes)
	assert.Equal(t, []string{"breakout", "london"}, updated.Tags)
	require.NotNil(t, updated.RealizedPnL)
	assert.Equal(t, 150.0, *updated.RealizedPnL)

	stored, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1150.0, stored.CurrentBalance)
}

func TestChangeStatusFailedPersistLeavesStateUntouched(t *testing.T) {
	store := newMockStore()
	service := newTestService(t, store, nil)
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, "main", 1000)
	require.NoError(t, err)
	trade, err := service.CreateTrade(ctx, TradeParams{
		AccountID: account.ID, Symbol: "EURUSD", Direction: domain.Long,
		PotentialProfit: 150, PotentialLoss: 80, Status: "ACTIVE",
	})
	require.NoError(t, err)

	store.failPairedSave = true
	_, err = service.ChangeStatus(ctx, trade.ID, "WIN")
	require.Error(t, err)

	// Neither record moved: no partial writes
	storedTrade, err := store.FindTradeByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, storedTrade.Status)
	assert.Nil(t, storedTrade.RealizedPnL)
	storedAccount, err := store.FindAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, storedAccount.CurrentBalance)
}

func TestNotFoundPropagation(t *testing.T) {
	service := newTestService(t, newMockStore(), nil)
	ctx := context.Background()

	_, err := service.ChangeStatus(ctx, "missing", "WIN")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	_, err = service.ReopenTrade(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	err = service.DeleteTrade(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	_, err = service.AccountSummary(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	_, err = service.CheckDrift(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	service := newTestService(t, newMockStore(), nil)
	_, err := service.ChangeStatus(context.Background(), "any", "CANCELLED")
	assert.ErrorIs(t, err, ports.ErrInvalidTransition)
}

func TestCheckDriftDetectsCorruption(t *testing.T) {
	store := newMockStore()
	logger := &mockLogger{}
	service, err := NewJournalService(logger, store, nil)
	require.NoError(t, err)
	ctx := context.Background()

	account, err := service.CreateAccount(ctx, "main", 1000)
	require.NoError(t, err)

	// Corrupt the stored balance behind the service's back
	corrupted := store.accounts[account.ID]
	corrupted.CurrentBalance = 1234

	report, err := service.CheckDrift(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1234.0, report.StoredBalance)
	assert.Equal(t, 1000.0, report.ExpectedBalance)
	assert.Equal(t, 234.0, report.Drift)
	assert.NotEmpty(t, logger.warnMsgs)
}
