package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tradejournal/internal/app"
	"tradejournal/internal/domain"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Manage trade records",
	Long: `Create trades, move them through their lifecycle and delete them.

Examples:
  journal trade add <account-id> EURUSD LONG --profit 200 --loss 100
  journal trade status <trade-id> ACTIVE
  journal trade status <trade-id> WIN
  journal trade reopen <trade-id>
  journal trade delete <trade-id>`,
}

var tradeAddCmd = &cobra.Command{
	Use:   "add <account-id> <symbol> <LONG|SHORT>",
	Short: "Add a planned trade",
	Args:  cobra.ExactArgs(3),
	RunE:  runTradeAdd,
}

var tradeStatusCmd = &cobra.Command{
	Use:   "status <trade-id> <status>",
	Short: "Transition a trade to a new status",
	Args:  cobra.ExactArgs(2),
	RunE:  runTradeStatus,
}

var tradeReopenCmd = &cobra.Command{
	Use:   "reopen <trade-id>",
	Short: "Reopen a closed trade, reversing its ledger delta",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeReopen,
}

var tradeDeleteCmd = &cobra.Command{
	Use:   "delete <trade-id>",
	Short: "Delete a trade (terminal trades reverse their ledger delta first)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeDelete,
}

var tradeListCmd = &cobra.Command{
	Use:   "list [account-id]",
	Short: "List trades, optionally filtered to one account",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTradeList,
}

var (
	tradeEntry  float64
	tradeStop   float64
	tradeTarget float64
	tradeRisk   float64
	tradeProfit float64
	tradeLoss   float64
	tradeNotes  string
)

func init() {
	tradeAddCmd.Flags().Float64Var(&tradeEntry, "entry", 0, "entry price level")
	tradeAddCmd.Flags().Float64Var(&tradeStop, "stop", 0, "stop loss price level")
	tradeAddCmd.Flags().Float64Var(&tradeTarget, "target", 0, "take profit price level")
	tradeAddCmd.Flags().Float64Var(&tradeRisk, "risk", 0, "risk amount in account currency")
	tradeAddCmd.Flags().Float64Var(&tradeProfit, "profit", 0, "potential profit magnitude")
	tradeAddCmd.Flags().Float64Var(&tradeLoss, "loss", 0, "potential loss magnitude")
	tradeAddCmd.Flags().StringVar(&tradeNotes, "notes", "", "free-form notes")

	tradeCmd.AddCommand(tradeAddCmd)
	tradeCmd.AddCommand(tradeStatusCmd)
	tradeCmd.AddCommand(tradeReopenCmd)
	tradeCmd.AddCommand(tradeDeleteCmd)
	tradeCmd.AddCommand(tradeListCmd)
	rootCmd.AddCommand(tradeCmd)
}

func runTradeAdd(cmd *cobra.Command, args []string) error {
	service, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	trade, err := service.CreateTrade(context.Background(), app.TradeParams{
		AccountID:       args[0],
		Symbol:          args[1],
		Direction:       domain.Direction(args[2]),
		EntryPrice:      tradeEntry,
		StopLoss:        tradeStop,
		TakeProfit:      tradeTarget,
		RiskAmount:      tradeRisk,
		PotentialProfit: tradeProfit,
		PotentialLoss:   tradeLoss,
		Notes:           tradeNotes,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created trade %s (%s %s) in status %s\n", trade.ID, trade.Symbol, trade.Direction, trade.Status)
	return nil
}

func runTradeStatus(cmd *cobra.Command, args []string) error {
	service, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	trade, err := service.ChangeStatus(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}
	if trade.RealizedPnL != nil {
		fmt.Printf("Trade %s is now %s, realized P&L %.2f\n", trade.ID, trade.Status, *trade.RealizedPnL)
	} else {
		fmt.Printf("Trade %s is now %s\n", trade.ID, trade.Status)
	}
	return nil
}

func runTradeReopen(cmd *cobra.Command, args []string) error {
	service, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	trade, err := service.ReopenTrade(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Trade %s reopened, status %s\n", trade.ID, trade.Status)
	return nil
}

func runTradeList(cmd *cobra.Command, args []string) error {
	_, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := context.Background()
	var trades []*domain.TradeRecord
	if len(args) == 1 {
		trades, err = repo.FindTradesByAccount(ctx, args[0])
	} else {
		trades, err = repo.FindAllTrades(ctx)
	}
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Println("No trades found.")
		return nil
	}
	fmt.Printf("%-28s %-10s %-6s %-8s %12s\n", "ID", "SYMBOL", "DIR", "STATUS", "REALIZED")
	for _, trade := range trades {
		realized := "-"
		if trade.RealizedPnL != nil {
			realized = fmt.Sprintf("%.2f", *trade.RealizedPnL)
		}
		fmt.Printf("%-28s %-10s %-6s %-8s %12s\n",
			trade.ID, trade.Symbol, trade.Direction, trade.Status, realized)
	}
	return nil
}

func runTradeDelete(cmd *cobra.Command, args []string) error {
	service, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := service.DeleteTrade(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Trade %s deleted\n", args[0])
	return nil
}
