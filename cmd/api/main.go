package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "agency_portal/docs"
	"agency_portal/internal/adapter/http/routes"
	"agency_portal/internal/bootstrap"
	"agency_portal/internal/config"
	"agency_portal/internal/infrastructure/cache"
	"agency_portal/internal/infrastructure/queue"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

// @title           Agency Portal API
// @version         1.0
// @description     Proposal and invoice lifecycle for the agency client portal, backed by DynamoDB.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	serve := serveCmd()
	cmd := &cobra.Command{
		Use:           "portal",
		Short:         "Agency client portal: proposals and invoices",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.AddCommand(serve, workerCmd(), sweepCmd(), seedClausesCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				return routes.Run(ctx, app)
			})
		},
	}
}

func workerCmd() *cobra.Command {
	var noScheduler bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the notification worker and the scheduled sweep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				rdb, err := app.ConnectRedis(ctx)
				if err != nil {
					return err
				}
				opt := cache.AsynqOpt(rdb)

				srv, mux := queue.NewServer(opt, app.Config.WorkerConcurrency, app.Processor())
				if err := srv.Start(mux); err != nil {
					return fmt.Errorf("start worker: %w", err)
				}
				defer srv.Shutdown()

				if !noScheduler {
					scheduler, err := queue.NewScheduler(opt, app.Config.SweepCron)
					if err != nil {
						return err
					}
					if err := scheduler.Start(); err != nil {
						return fmt.Errorf("start scheduler: %w", err)
					}
					defer scheduler.Shutdown()
				}

				log.Printf("[worker] running concurrency=%d", app.Config.WorkerConcurrency)
				<-ctx.Done()
				log.Printf("[worker] shutting down")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Process tasks without registering the periodic sweep")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire due proposals and mark overdue invoices once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Processor().Sweep(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "expired=%d reminded=%d skipped_reminders=%d overdue=%d\n",
					len(res.Expired), len(res.Reminded), len(res.SkippedReminders), len(res.Overdue))
				return err
			})
		},
	}
}

func seedClausesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-clauses",
		Short: "Load the clause catalog into the DynamoDB clause table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.SeedClauses(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d clauses\n", n)
				return nil
			})
		},
	}
}

// withApp loads config, builds the app and cancels ctx on SIGINT/SIGTERM.
func withApp(parent context.Context, fn func(ctx context.Context, app *bootstrap.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}
