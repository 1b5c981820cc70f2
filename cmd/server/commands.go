package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/productivity-engine/api"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
	"github.com/warp/productivity-engine/sheet"
)

const shutdownTimeout = 30 * time.Second

// =============================================================================
// SERVE
// =============================================================================

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().Int("port", 0, "HTTP server port")
	_ = a.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, a.cfg.Report, nil, a.logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Port),
		Handler:      api.NewRouter(handler, a.cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// =============================================================================
// IMPORT LIFECYCLE
// =============================================================================

func (a *app) stageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage <file.xlsx|file.csv>",
		Short: "Stage a workbook for review, replacing any staged batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := sheet.ReadFile(f, filepath.Base(args[0]))
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			im := a.importer(store)
			if _, err := im.Stage(cmd.Context(), rows); err != nil {
				return err
			}
			preview, err := im.Preview(cmd.Context())
			if err != nil {
				return err
			}
			printPreview(cmd.OutOrStdout(), preview)
			return nil
		},
	}
}

func (a *app) confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Commit the staged batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := a.importer(store).Confirm(cmd.Context())
			var vf *productivity.ValidationFailedError
			if errors.As(err, &vf) {
				for _, re := range vf.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), re.String())
				}
				return generic.ErrValidationFailed
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed %d rows (run %s)\n", res.Count, res.RunID)
			return nil
		},
	}
}

func (a *app) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the staged batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return a.importer(store).Cancel(cmd.Context())
		},
	}
}

func printPreview(w io.Writer, p *productivity.Preview) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tDATE\tCUSTOMER\tACCOUNT\tTASK\tQTY\tSTATUS")
	for i, pr := range p.Rows {
		status := "ok"
		if pr.Error != nil {
			status = pr.Error.Message
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, pr.Row.Date, pr.Row.Customer, pr.Row.Account, pr.Row.Task, pr.Row.RawQuantity, status)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d rows staged, %d with errors\n", len(p.Rows), len(p.Errors))
}

// =============================================================================
// REPORT
// =============================================================================

func (a *app) reportCmd() *cobra.Command {
	var from, to, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the productivity report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := generic.ParseDateRange(from, to)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := productivity.NewReporter(store, a.cfg.Report, a.logger).Build(cmd.Context(), rng)
			if err != nil {
				return err
			}
			if out == "" {
				printReport(cmd.OutOrStdout(), rep)
				return nil
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := sheet.WriteReport(f, rep); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (open if empty)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (open if empty)")
	cmd.Flags().StringVar(&out, "out", "", "write the report workbook to this path")
	return cmd
}

func printReport(w io.Writer, rep *productivity.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CUSTOMER\tTOTAL\tRECORDS")
	for _, c := range rep.Customers {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.CustomerName, c.TotalQuantity.StringFixed(productivity.ReportPlaces), c.RecordCount)
	}
	fmt.Fprintln(tw, "\t\t")
	fmt.Fprintln(tw, "TOP STAFF\tROLE\tTOTAL\tCOUNT")
	for _, s := range rep.TopStaff {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.Identifier, s.Role, s.TotalQuantity.StringFixed(productivity.ReportPlaces), s.Count)
	}
	tw.Flush()
}

// =============================================================================
// SEED
// =============================================================================

func (a *app) seedCmd() *cobra.Command {
	var scenario string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset the database and load demo data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := api.LoadScenario(cmd.Context(), store, a.importer(store), scenario); err != nil {
				return err
			}
			a.logger.WithField("scenario", scenario).Info("seeded demo data")
			return nil
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", api.DefaultScenario, "scenario to load")
	return cmd
}
