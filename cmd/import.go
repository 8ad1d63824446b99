package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/catalog"
)

var (
	importInPath  string
	importOutPath string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a catalog from XLSX or CSV into the working CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := importOutPath
		if out == "" {
			out = cfg.Catalog.Path
		}

		var arena *catalog.Arena
		var err error
		switch {
		case strings.HasSuffix(strings.ToLower(importInPath), ".xlsx"):
			arena, err = catalog.ImportXLSX(importInPath)
		default:
			arena, err = catalog.LoadCSV(importInPath)
		}
		if err != nil {
			return eris.Wrapf(err, "import %s", importInPath)
		}

		if err := catalog.SaveCSV(out, arena); err != nil {
			return eris.Wrap(err, "save catalog")
		}

		zap.L().Info("import complete",
			zap.Int("rows", arena.Len()),
			zap.String("in", importInPath),
			zap.String("out", out),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importInPath, "in", "", "path to XLSX or CSV file (required)")
	importCmd.Flags().StringVar(&importOutPath, "out", "", "output CSV path (default catalog.path)")
	_ = importCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(importCmd)
}
