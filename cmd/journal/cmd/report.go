package cmd

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <account-id>",
	Short: "Show summary statistics for an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

var driftCmd = &cobra.Command{
	Use:   "drift <account-id>",
	Short: "Check the account balance against the recomputed ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runDrift,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(driftCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	service, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	summary, err := service.AccountSummary(context.Background(), args[0])
	if err != nil {
		return err
	}

	profitFactor := fmt.Sprintf("%.2f", summary.ProfitFactor)
	if math.IsInf(summary.ProfitFactor, 1) {
		profitFactor = "unbounded"
	}

	fmt.Printf("Trades:        %d (%d wins, %d losses)\n", summary.TotalTrades, summary.WinningTrades, summary.LosingTrades)
	fmt.Printf("Win rate:      %.1f%%\n", summary.WinRate*100)
	fmt.Printf("Net P&L:       %.2f (profit %.2f, loss %.2f)\n", summary.NetPnL, summary.TotalProfit, summary.TotalLoss)
	fmt.Printf("Profit factor: %s\n", profitFactor)
	fmt.Printf("Avg win/loss:  %.2f / %.2f\n", summary.AvgWin, summary.AvgLoss)
	fmt.Printf("Best/worst:    %.2f / %.2f\n", summary.BestTrade, summary.WorstTrade)
	fmt.Printf("Streaks:       best win %d, best loss %d, current %d (%s)\n",
		summary.LargestWinStreak, summary.LargestLossStreak, summary.CurrentStreak, summary.StreakType)
	return nil
}

func runDrift(cmd *cobra.Command, args []string) error {
	service, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	report, err := service.CheckDrift(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Stored balance:   %.2f\n", report.StoredBalance)
	fmt.Printf("Expected balance: %.2f\n", report.ExpectedBalance)
	if report.Drift == 0 {
		fmt.Println("Ledger is consistent.")
	} else {
		fmt.Printf("DRIFT DETECTED: %.2f\n", report.Drift)
	}
	return nil
}
