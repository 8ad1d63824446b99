package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/review"
)

var (
	reviewOutPath string
	reviewMaxRows int
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Export the rows most in need of manual review",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("review"); err != nil {
			return err
		}

		arena, err := catalog.LoadCSV(cfg.Catalog.Path)
		if err != nil {
			return eris.Wrap(err, "load catalog")
		}

		maxRows := reviewMaxRows
		if maxRows == 0 {
			maxRows = cfg.Review.MaxRows
		}
		entries := review.Build(arena, review.Config{MaxRows: maxRows})
		if err := review.WriteCSV(reviewOutPath, entries); err != nil {
			return err
		}

		zap.L().Info("review export complete",
			zap.Int("rows", len(entries)),
			zap.String("out", reviewOutPath),
		)
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewOutPath, "out", "review.csv", "output CSV path")
	reviewCmd.Flags().IntVar(&reviewMaxRows, "max-rows", 0, "cap the export size (default from config)")
	rootCmd.AddCommand(reviewCmd)
}
