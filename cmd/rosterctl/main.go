// Package main provides rosterctl, a batch client for the roster engine.
// It runs the same validator and expander as the server, directly against
// a SQLite database.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/roster-engine/config"
	"github.com/warp/roster-engine/store/sqlite"
	"github.com/warp/roster-engine/validator"
)

const (
	Version = "0.3.0"
	appName = "rosterctl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: configuration, a logger and an open
// store. Subcommands call open() in RunE and defer close().
type env struct {
	dbPath   string
	logLevel string
	asJSON   bool

	cfg   *config.Config
	log   *logrus.Logger
	store *sqlite.Store
}

func (e *env) open() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if e.dbPath != "" {
		cfg.DBPath = e.dbPath
	}
	if e.logLevel != "" {
		cfg.LogLevel = e.logLevel
	}
	e.cfg = cfg
	e.log = cfg.NewLogger()
	e.log.SetOutput(os.Stderr)

	store, err := sqlite.New(cfg.DBPath, e.log)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	e.store = store
	return nil
}

func (e *env) close() {
	if e.store != nil {
		e.store.Close()
	}
}

func (e *env) validator() *validator.Validator {
	return validator.New(e.store, validator.Config{
		Logger:      e.log,
		BufferDays:  e.cfg.BufferDays,
		CycleOrigin: e.cfg.CycleOrigin,
		CycleLength: e.cfg.CycleLength,
	})
}

func rootCmd() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Validate and inspect shift plannings",
		Long: `rosterctl runs the roster engine against a SQLite database.

It provides:
- validate: HR rule violations of one user's month
- grid:     crew status and HR level per date of a month
- expand:   type-table expansion for a user
- seed:     load a scenario file into the database`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&e.dbPath, "db", "", "SQLite database path (default: ROSTER_DB_PATH)")
	cmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&e.asJSON, "json", false, "Print JSON instead of text")

	cmd.AddCommand(validateCmd(e), gridCmd(e), expandCmd(e), seedCmd(e))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}
