// Package lifecycle validates and applies trade status transitions.
//
// The engine is pure: it never writes to a repository or ledger itself. It
// returns an updated copy of the trade and the balance delta the caller must
// hand to the ledger reconciler, which keeps the "apply realized P&L at most
// once" rule testable in isolation.
package lifecycle

import (
	"fmt"
	"math"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Transition moves a trade to targetStatus and computes the realized P&L on
// the first entry into a terminal state.
//
// Rules:
//   - PLANNED and ACTIVE may move freely between each other; the ledger is
//     never touched (delta 0).
//   - The first transition into WIN sets RealizedPnL = +PotentialProfit; the
//     first transition into LOSS sets RealizedPnL = -PotentialLoss. The
//     returned delta equals the realized value.
//   - Re-issuing the same terminal status is a no-op for the ledger: delta 0,
//     RealizedPnL untouched. Non-financial fields may still be merged by the
//     caller.
//   - Any other move out of a terminal state fails with ErrInvalidTransition;
//     undoing a close requires the explicit Reopen operation.
//
// The input trade is not mutated.
func Transition(trade *domain.TradeRecord, targetStatus domain.TradeStatus, now time.Time) (*domain.TradeRecord, float64, error) {
	if trade == nil {
		return nil, 0, fmt.Errorf("transition: trade is required: %w", ports.ErrInvalidRequest)
	}
	if !targetStatus.IsValid() {
		return nil, 0, fmt.Errorf("transition: unknown target status %q: %w", targetStatus, ports.ErrInvalidTransition)
	}
	if !trade.Status.IsValid() {
		return nil, 0, fmt.Errorf("transition: trade %s has unknown status %q: %w", trade.ID, trade.Status, ports.ErrInvalidTransition)
	}

	updated := trade.Clone()
	updated.UpdatedAt = now

	// Already terminal: only a re-issue of the identical status is allowed,
	// and it must not touch RealizedPnL or the ledger.
	if trade.Status.IsTerminal() {
		if targetStatus == trade.Status {
			return updated, 0, nil
		}
		return nil, 0, fmt.Errorf("transition: trade %s is already %s, cannot move to %s without reopen: %w",
			trade.ID, trade.Status, targetStatus, ports.ErrInvalidTransition)
	}

	updated.Status = targetStatus

	// Non-terminal to non-terminal never produces a ledger delta.
	if !targetStatus.IsTerminal() {
		return updated, 0, nil
	}

	// First entry into a terminal state: realize the outcome. Sign is applied
	// here, at the single point of truth; the stored magnitudes are always
	// non-negative.
	var pnl float64
	switch targetStatus {
	case domain.StatusWin:
		if err := checkMagnitude("potentialProfit", trade.PotentialProfit); err != nil {
			return nil, 0, err
		}
		pnl = trade.PotentialProfit
	case domain.StatusLoss:
		if err := checkMagnitude("potentialLoss", trade.PotentialLoss); err != nil {
			return nil, 0, err
		}
		pnl = -trade.PotentialLoss
	}

	updated.RealizedPnL = &pnl
	return updated, pnl, nil
}

// Reopen moves a terminal trade back to ACTIVE, clears its realized outcome
// and returns the inverse of the originally applied delta so the caller can
// restore the ledger. Reopening a non-terminal trade is invalid.
//
// The input trade is not mutated.
func Reopen(trade *domain.TradeRecord, now time.Time) (*domain.TradeRecord, float64, error) {
	if trade == nil {
		return nil, 0, fmt.Errorf("reopen: trade is required: %w", ports.ErrInvalidRequest)
	}
	if !trade.Status.IsTerminal() {
		return nil, 0, fmt.Errorf("reopen: trade %s is %s, only terminal trades can be reopened: %w",
			trade.ID, trade.Status, ports.ErrInvalidTransition)
	}

	var inverse float64
	if trade.RealizedPnL != nil {
		inverse = -*trade.RealizedPnL
	}

	updated := trade.Clone()
	updated.Status = domain.StatusActive
	updated.RealizedPnL = nil
	updated.UpdatedAt = now
	return updated, inverse, nil
}

// checkMagnitude rejects non-finite or negative potential outcome values.
func checkMagnitude(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("transition: %s is not finite: %w", name, ports.ErrInvalidAmount)
	}
	if v < 0 {
		return fmt.Errorf("transition: %s must be a non-negative magnitude, got %v: %w", name, v, ports.ErrInvalidAmount)
	}
	return nil
}
