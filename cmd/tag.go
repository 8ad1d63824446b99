package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/diagnose"
)

var tagOutPath string

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Re-tag every row with identity diagnostics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("tag"); err != nil {
			return err
		}

		arena, err := catalog.LoadCSV(cfg.Catalog.Path)
		if err != nil {
			return eris.Wrap(err, "load catalog")
		}

		env, err := initSources(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		tagger := diagnose.New(diagnoseConfig(cfg), env.sources)
		if err := tagger.TagAll(ctx, arena); err != nil {
			return eris.Wrap(err, "tag catalog")
		}

		out := tagOutPath
		if out == "" {
			out = cfg.Catalog.Path
		}
		if err := catalog.SaveCSV(out, arena); err != nil {
			return eris.Wrap(err, "save catalog")
		}

		counts := map[string]int{}
		for i := 0; i < arena.Len(); i++ {
			counts[arena.At(i).MatchConfidence]++
		}
		zap.L().Info("tagging complete",
			zap.Int("rows", arena.Len()),
			zap.Int("high", counts["HIGH"]),
			zap.Int("medium", counts["MEDIUM"]),
			zap.Int("low", counts["LOW"]),
			zap.String("out", out),
		)
		return nil
	},
}

func init() {
	tagCmd.Flags().StringVar(&tagOutPath, "out", "", "output CSV path (default: in place)")
	rootCmd.AddCommand(tagCmd)
}
