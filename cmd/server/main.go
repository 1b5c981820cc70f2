/*
main.go - Application entry point

PURPOSE:
  The `productivity` binary. Serves the HTTP API and exposes the import
  lifecycle and report export as one-shot commands for scripting.

COMMANDS:
  serve                         Start the HTTP server
  stage <file.xlsx|file.csv>    Stage a workbook, print the review
  confirm                       Commit the staged batch
  cancel                        Discard the staged batch
  report --from --to [--out]    Print report totals, or write the workbook
  seed [--scenario id]          Reset and load demo data

GLOBAL FLAGS:
  --config      Config file (default: ./productivity.yaml if present)
  --db          SQLite database path (":memory:" for throwaway runs)
  --log-level   debug, info, warn, error
  --log-format  text, json

  Every flag can also come from PRODUCTIVITY_* environment variables or a
  .env file; see config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the server stops accepting connections, waits up to
  30s for active requests, then closes the database.

EXAMPLES:
  productivity serve --db ./data/productivity.db
  productivity stage july.xlsx && productivity confirm
  productivity report --from 2024-07-01 --to 2024-07-31 --out july.xlsx

SEE ALSO:
  - commands.go: Subcommand implementations
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warp/productivity-engine/config"
	"github.com/warp/productivity-engine/productivity"
	"github.com/warp/productivity-engine/store/sqlite"
)

// app carries what every subcommand needs once configuration is resolved.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "productivity",
		Short:         "Labor productivity reconciliation and reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./productivity.yaml)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	_ = a.v.BindPFlag("database.path", flags.Lookup("db"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		a.serveCmd(),
		a.stageCmd(),
		a.confirmCmd(),
		a.cancelCmd(),
		a.reportCmd(),
		a.seedCmd(),
	)
	return root
}

// init reads the config file and builds the logger.
func (a *app) init() error {
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore opens the configured database. Callers close it.
func (a *app) openStore() (*sqlite.Store, error) {
	store, err := sqlite.New(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.DatabasePath, err)
	}
	return store, nil
}

func (a *app) importer(store *sqlite.Store) *productivity.Importer {
	return productivity.NewImporter(store, nil, a.logger)
}
