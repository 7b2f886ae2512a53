// Command catalogctl runs operator tasks against the catalog database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/pricing-catalog/internal/storage/postgres"
)

type globals struct {
	databaseURL string
	verbose     bool

	lg *zap.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operator tasks for the pricing catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if g.databaseURL == "" {
				g.databaseURL = os.Getenv("DATABASE_URL")
			}
			if g.databaseURL == "" {
				return errors.New("database URL is required: set --database-url or DATABASE_URL")
			}

			cfg := zap.NewProductionConfig()
			if g.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			lg, err := cfg.Build()
			if err != nil {
				return errors.Wrap(err, "create logger")
			}
			g.lg = lg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if g.lg != nil {
				_ = g.lg.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&g.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newMigrateCmd(g),
		newSeedCmd(g),
		newImportDiscountsCmd(g),
	)
	return root
}

// connect opens a pool and applies the schema, which every command needs.
func (g *globals) connect(ctx context.Context, pc postgres.PoolConfig) (*pgxpool.Pool, error) {
	g.lg.Debug("Connecting to database")
	pool, err := postgres.NewPool(ctx, g.databaseURL, pc)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return pool, nil
}
