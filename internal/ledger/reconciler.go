// Package ledger applies realized P&L deltas to account balances and
// recomputes a balance from scratch as the authoritative consistency check.
package ledger

import (
	"fmt"
	"math"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// ApplyDelta adds a balance delta to an account and returns the updated copy.
// A zero delta returns the account unchanged; callers should not submit it as
// a write at all. Non-finite deltas or a non-finite stored balance fail with
// ErrInvalidAmount and leave the account untouched.
//
// Idempotence with respect to the ledger invariant holds as long as each
// distinct trade-transition event produces at most one ApplyDelta call; the
// lifecycle engine's first-terminal-transition rule is what guarantees that.
func ApplyDelta(account *domain.Account, delta float64) (*domain.Account, error) {
	if account == nil {
		return nil, fmt.Errorf("applyDelta: account is required: %w", ports.ErrInvalidRequest)
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil, fmt.Errorf("applyDelta: delta %v is not finite: %w", delta, ports.ErrInvalidAmount)
	}
	if math.IsNaN(account.CurrentBalance) || math.IsInf(account.CurrentBalance, 0) {
		return nil, fmt.Errorf("applyDelta: account %s balance %v is not finite: %w",
			account.ID, account.CurrentBalance, ports.ErrInvalidAmount)
	}

	updated := account.Clone()
	if delta == 0 {
		return updated, nil
	}
	updated.CurrentBalance += delta
	return updated, nil
}

// DeletionDelta returns the balance delta that must be applied before a trade
// is removed: the inverse of its realized P&L for terminal trades, zero for
// non-terminal trades. Issuing it keeps the ledger invariant intact over the
// reduced trade set.
func DeletionDelta(trade *domain.TradeRecord) float64 {
	if trade == nil || !trade.IsTerminal() || trade.RealizedPnL == nil {
		return 0
	}
	return -*trade.RealizedPnL
}

// Recompute derives the balance the account should hold from first
// principles: initial balance plus the realized P&L of every terminal trade
// owned by the account. Trades belonging to other accounts and trades without
// a realized outcome are ignored. This is the drift-detection reference
// value, not a write.
func Recompute(account *domain.Account, trades []*domain.TradeRecord) float64 {
	if account == nil {
		return 0
	}
	balance := account.InitialBalance
	for _, trade := range trades {
		if trade == nil || trade.AccountID != account.ID {
			continue
		}
		if trade.IsTerminal() && trade.RealizedPnL != nil {
			balance += *trade.RealizedPnL
		}
	}
	return balance
}
