package domain

import "time"

// TradeRecord represents one journal entry. Identity and ownership are fixed
// at creation; status and financial outcome change only through the
// lifecycle engine.
type TradeRecord struct {
	ID         string    // Opaque unique identifier (ULID), never reused
	AccountID  string    // Owning account, immutable after creation
	Symbol     string    // Instrument symbol (e.g., "EURUSD")
	Direction  Direction // LONG or SHORT
	EntryPrice float64   // Planned or actual entry price level
	StopLoss   float64   // Stop loss price level
	TakeProfit float64   // Take profit / exit price level
	RiskAmount float64   // Amount risked, in account currency units

	// PotentialProfit and PotentialLoss are non-negative magnitudes computed
	// at entry time from price levels and position size. The sign of the
	// realized outcome is applied by the lifecycle engine, nowhere else.
	PotentialProfit float64
	PotentialLoss   float64

	Status TradeStatus

	// RealizedPnL is nil while the trade is non-terminal and is set exactly
	// once, on the first transition into WIN or LOSS.
	RealizedPnL *float64

	// Non-financial annotations, freely editable at any time.
	Notes string
	Tags  []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the trade has realized a final outcome.
func (t *TradeRecord) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// Clone returns a deep copy of the trade record.
func (t *TradeRecord) Clone() *TradeRecord {
	cp := *t
	if t.RealizedPnL != nil {
		pnl := *t.RealizedPnL
		cp.RealizedPnL = &pnl
	}
	if t.Tags != nil {
		cp.Tags = append([]string(nil), t.Tags...)
	}
	return &cp
}
