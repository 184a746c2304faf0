package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contractorvet/internal/app"
	"contractorvet/internal/db"
	"contractorvet/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the contractorvet database schema",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *db.Migrator) error {
			return mg.Up()
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1 step)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid steps %q: %w", args[0], err)
			}
			steps = n
		}
		return withMigrator(func(mg *db.Migrator) error {
			return mg.Down(steps)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *db.Migrator) error {
			st, err := mg.Status()
			if err != nil {
				return err
			}
			fmt.Printf("current: %d\nlatest:  %d\ndirty:   %t\npending: %t\n",
				st.CurrentVersion, st.LatestVersion, st.Dirty, st.Pending)
			return nil
		})
	},
}

func withMigrator(fn func(mg *db.Migrator) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Log)
	defer log.Sync()

	mg, err := db.NewMigrator(cfg.DB, log)
	if err != nil {
		log.Error("Failed to init migrator", zap.Error(err))
		return err
	}
	defer mg.Close()

	return fn(mg)
}

func main() {
	rootCmd.AddCommand(upCmd, downCmd, statusCmd)
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
