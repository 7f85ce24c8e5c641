package analytics

import (
	"math"
	"sort"

	"tradejournal/internal/domain"
)

// StreakType classifies the run of same-sign outcomes ending at the most
// recent terminal trade.
type StreakType string

const (
	StreakWin  StreakType = "win"
	StreakLoss StreakType = "loss"
	StreakNone StreakType = "none"
)

// Summary holds derived statistics over a set of trade records. It is never
// persisted; every call recomputes it from the current trade set to avoid
// drift.
type Summary struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	TotalProfit float64 // Sum of realized P&L over winning trades
	TotalLoss   float64 // Sum of |realized P&L| over losing trades
	NetPnL      float64

	// ProfitFactor is TotalProfit / TotalLoss. When there are profits but no
	// losses it is +Inf rather than a magic numeric sentinel; when both are
	// zero it is 0.
	ProfitFactor float64

	AvgWin     float64
	AvgLoss    float64
	BestTrade  float64 // Largest single winning P&L
	WorstTrade float64 // Largest single losing P&L magnitude

	LargestWinStreak  int
	LargestLossStreak int
	CurrentStreak     int
	StreakType        StreakType
}

// Summarize calculates summary statistics from a set of trade records.
//
// Only terminal trades with a populated realized P&L contribute to the
// financial metrics; non-terminal trades count toward TotalTrades only. A
// realized value of exactly zero counts as neither a win nor a loss. The
// function is pure and holds no state between calls.
func Summarize(trades []*domain.TradeRecord) *Summary {
	summary := &Summary{StreakType: StreakNone}
	summary.TotalTrades = len(trades)

	// Collect terminal trades with realized outcomes, sorted ascending by
	// creation time so streaks scan in chronological order. The input slice
	// is left untouched.
	realized := make([]*domain.TradeRecord, 0, len(trades))
	for _, trade := range trades {
		if trade == nil || !trade.IsTerminal() || trade.RealizedPnL == nil {
			continue
		}
		realized = append(realized, trade)
	}
	sort.SliceStable(realized, func(i, j int) bool {
		return realized[i].CreatedAt.Before(realized[j].CreatedAt)
	})

	var winStreak, lossStreak int
	for _, trade := range realized {
		pnl := *trade.RealizedPnL
		switch {
		case pnl > 0:
			summary.WinningTrades++
			summary.TotalProfit += pnl
			if pnl > summary.BestTrade {
				summary.BestTrade = pnl
			}
			winStreak++
			lossStreak = 0
			if winStreak > summary.LargestWinStreak {
				summary.LargestWinStreak = winStreak
			}
		case pnl < 0:
			summary.LosingTrades++
			summary.TotalLoss += -pnl
			if -pnl > summary.WorstTrade {
				summary.WorstTrade = -pnl
			}
			lossStreak++
			winStreak = 0
			if lossStreak > summary.LargestLossStreak {
				summary.LargestLossStreak = lossStreak
			}
		default:
			// Exactly zero realized P&L is neither a win nor a loss and
			// breaks any running streak.
			winStreak = 0
			lossStreak = 0
		}
	}

	// The run ending at the most recent terminal trade.
	switch {
	case winStreak > 0:
		summary.CurrentStreak = winStreak
		summary.StreakType = StreakWin
	case lossStreak > 0:
		summary.CurrentStreak = lossStreak
		summary.StreakType = StreakLoss
	}

	summary.NetPnL = summary.TotalProfit - summary.TotalLoss

	if decided := summary.WinningTrades + summary.LosingTrades; decided > 0 {
		summary.WinRate = float64(summary.WinningTrades) / float64(decided)
	}
	if summary.TotalLoss > 0 {
		summary.ProfitFactor = summary.TotalProfit / summary.TotalLoss
	} else if summary.TotalProfit > 0 {
		summary.ProfitFactor = math.Inf(1)
	}
	if summary.WinningTrades > 0 {
		summary.AvgWin = summary.TotalProfit / float64(summary.WinningTrades)
	}
	if summary.LosingTrades > 0 {
		summary.AvgLoss = summary.TotalLoss / float64(summary.LosingTrades)
	}

	return summary
}
