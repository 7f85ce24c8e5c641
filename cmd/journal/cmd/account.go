package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage account ledgers",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <name> <initial-balance>",
	Short: "Create an account with a starting balance",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountCreate,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts with their balances",
	Args:  cobra.NoArgs,
	RunE:  runAccountList,
}

func init() {
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountListCmd)
	rootCmd.AddCommand(accountCmd)
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	initialBalance, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid initial balance %q: %w", args[1], err)
	}

	service, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	account, err := service.CreateAccount(context.Background(), args[0], initialBalance)
	if err != nil {
		return err
	}
	fmt.Printf("Created account %s (%s) with balance %.2f\n", account.ID, account.Name, account.CurrentBalance)
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	_, repo, err := newService()
	if err != nil {
		return err
	}
	defer repo.Close()

	accounts, err := repo.FindAllAccounts(context.Background())
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return nil
	}
	fmt.Printf("%-28s %-20s %14s %14s\n", "ID", "NAME", "INITIAL", "BALANCE")
	for _, account := range accounts {
		fmt.Printf("%-28s %-20s %14.2f %14.2f\n",
			account.ID, account.Name, account.InitialBalance, account.CurrentBalance)
	}
	return nil
}
