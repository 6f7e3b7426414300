package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/repository/pages"
)

var indexRecreate bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the page index",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the page index over existing page hashes",
	Args:  cobra.NoArgs,
	RunE:  runIndexCreate,
}

func init() {
	indexCreateCmd.Flags().BoolVar(&indexRecreate, "recreate", false, "drop the index first (page hashes are kept)")
	indexCmd.AddCommand(indexCreateCmd)
}

func runIndexCreate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.connect(ctx); err != nil {
		return err
	}

	def, err := pages.Definition(vectorConfig(a.cfg), pages.HNSWConfig{
		M:           a.cfg.Index.HNSWM,
		EFConstruct: a.cfg.Index.HNSWEFConstruct,
	})
	if err != nil {
		return fmt.Errorf("page index definition: %w", err)
	}

	created, err := pages.NewIndexer(a.store).Ensure(ctx, def, indexRecreate)
	if err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	a.logger.Info("Page index ready",
		zap.String("index", def.Name),
		zap.Bool("created", created),
		zap.String("definition", def.String()),
	)
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", def.Name)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", def.Name)
	}
	return nil
}
