package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/unicafe/cafeteria/config"
	"github.com/unicafe/cafeteria/internal/adminapi"
	"github.com/unicafe/cafeteria/internal/app"
	"github.com/unicafe/cafeteria/internal/storeapi"
	"github.com/unicafe/cafeteria/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:           "cafeteria",
		Short:         "University cafeteria ordering service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	root.AddCommand(serveCmd(), initdbCmd(), seedCmd(), runJobCmd(), exportLedgerCmd(), tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// startApp loads the configuration and initialises the application.
func startApp() (*app.Application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	a := app.NewApplication(cfg)
	if err := a.Init(cfg); err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP APIs and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := startApp()
			if err != nil {
				return err
			}
			defer a.Release()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			adminapi.Init()
			storeapi.Init()
			srv := webserver.NewWebServer(a)
			if err := a.StartBackgroundJobs(ctx); err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				zap.S().Info("shutting down web server")
				return srv.Shutdown(context.Background())
			})
			return g.Wait()
		},
	}
}

func initdbCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Drop and recreate all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := startApp()
			if err != nil {
				return err
			}
			defer a.Release()
			a.InitDb()
			if seed {
				a.SeedData()
			}
			zap.S().Info("database initialised")
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "load the default menu")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default menu into an existing database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := startApp()
			if err != nil {
				return err
			}
			defer a.Release()
			a.SeedData()
			return nil
		},
	}
}

func runJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run-job NAME",
		Short:     "Run a background job once",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{app.JobCartReaper, app.JobAbandonPurge, app.JobLowStockAlert},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := startApp()
			if err != nil {
				return err
			}
			defer a.Release()
			return a.RunJob(args[0])
		},
	}
}

func exportLedgerCmd() *cobra.Command {
	var from, to, out string
	cmd := &cobra.Command{
		Use:   "export-ledger",
		Short: "Write inventory movements in [from, to) as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(time.DateOnly, from)
			if err != nil {
				return errors.Wrap(err, "parse --from")
			}
			end := time.Now()
			if to != "" {
				if end, err = time.Parse(time.DateOnly, to); err != nil {
					return errors.Wrap(err, "parse --to")
				}
			}

			a, err := startApp()
			if err != nil {
				return err
			}
			defer a.Release()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Wrapf(err, "create %s", out)
				}
				defer f.Close()
				w = f
			}
			n, err := a.Ledger().ExportCSV(cmd.Context(), w, start, end)
			if err != nil {
				return err
			}
			zap.S().Infof("exported %d ledger rows", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "day after the last one, YYYY-MM-DD (default now)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// tokenCmd issues bearer tokens for operators and local testing.
func tokenCmd() *cobra.Command {
	var userID int64
	var role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user must be positive")
			}
			if role != webserver.RoleAdmin && role != webserver.RoleCustomer {
				return errors.Errorf("unknown role %q", role)
			}
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			token, err := webserver.IssueToken(cfg.Web.JwtSecret, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&role, "role", webserver.RoleCustomer, "admin or customer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
