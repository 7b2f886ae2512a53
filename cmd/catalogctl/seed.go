package main

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/pricing-catalog/internal/domain/catalog"
	"github.com/xenking/pricing-catalog/internal/importer"
	"github.com/xenking/pricing-catalog/internal/storage/postgres"
)

func newSeedCmd(g *globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the products listed in a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := importer.OpenFile(file)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			products, err := importer.ReadProducts(f)
			if err != nil {
				return errors.Wrapf(err, "read %s", file)
			}

			pool, err := g.connect(cmd.Context(), postgres.PoolConfig{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := catalog.NewService(postgres.NewProductRepository(pool, noop.NewTracerProvider()))
			created, err := importer.SeedProducts(cmd.Context(), svc, products)
			for _, p := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.ID, p.Country, p.Name)
			}
			if err != nil {
				return err
			}

			g.lg.Info("Seed completed", zap.Int("products", len(created)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "db/seed/products.json", "products JSON file")
	return cmd
}
