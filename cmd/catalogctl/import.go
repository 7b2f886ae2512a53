package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/pricing-catalog/internal/domain/catalog"
	"github.com/xenking/pricing-catalog/internal/importer"
	"github.com/xenking/pricing-catalog/internal/storage/postgres"
)

// maxWorkers caps --workers; each worker holds one pool connection.
const maxWorkers = 256

func clampWorkers(n int) int {
	return min(max(n, 1), maxWorkers)
}

func newImportDiscountsCmd(g *globals) *cobra.Command {
	var (
		file    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "import-discounts",
		Short: "Apply discounts from a product_id,discount_id,percent CSV file",
		Long: `Apply discounts from a CSV file, optionally gzip-compressed (.gz).
Each line is applied at most once; re-running the same file reports every
line as a duplicate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workers = clampWorkers(workers)

			f, err := importer.OpenFile(file)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			pool, err := g.connect(cmd.Context(), postgres.PoolConfig{MaxConns: int32(workers) + 1})
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := catalog.NewService(postgres.NewProductRepository(pool, noop.NewTracerProvider()))

			start := time.Now()
			stats, err := importer.ImportDiscounts(cmd.Context(), g.lg, f, svc, workers)
			g.lg.Info("Import finished",
				zap.Int64("applied", stats.Applied),
				zap.Int64("duplicate", stats.Duplicate),
				zap.Int64("rejected", stats.Rejected),
				zap.Duration("took", time.Since(start)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "applied=%d duplicate=%d rejected=%d\n",
				stats.Applied, stats.Duplicate, stats.Rejected)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file, .gz for gzip")
	cmd.Flags().IntVarP(&workers, "workers", "w", 8, "concurrent workers, at most 256")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
