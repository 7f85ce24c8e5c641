package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tradejournal/config"
	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "journal",
	Short: "Trading journal with reconciled account ledgers",
	Long: `Journal tracks planned and executed trades through their lifecycle
(PLANNED -> ACTIVE -> WIN/LOSS), applies each realized outcome to the owning
account's balance exactly once, and derives summary statistics (win rate,
profit factor, streaks) from the recorded trade set.`,
	SilenceUsage: true,
}

var dbPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the journal database (default $DB_PATH or ./data/journal.db)")
}

// newService wires config, logger, store and service for a command run.
// Callers must Close the returned repository.
func newService() (*app.JournalService, *sqlite.Repository, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		return nil, nil, err
	}

	service, err := app.NewJournalService(appLogger, repo, nil)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	return service, repo, nil
}
