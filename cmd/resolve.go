package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/diagnose"
	"github.com/gamelog/catalog-cli/internal/resolve"
)

var (
	resolveApply        bool
	resolveRetryMissing bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Retry and repair suspicious identity pins",
	Long:  "Re-searches providers flagged as outliers against the cross-source majority. Dry run by default; --apply mutates pins and re-tags the catalog.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("resolve"); err != nil {
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
		rcfg := resolve.DefaultConfig()
		rcfg.Consensus = consensusConfig(cfg)
		rcfg.Sources = cfg.Diagnose.Sources
		rcfg.AcceptScore = cfg.Resolve.AcceptScore
		rcfg.AcceptYearTolerance = cfg.Resolve.AcceptYearTolerance
		rcfg.RetryMissing = resolveRetryMissing
		rcfg.Apply = resolveApply
		rcfg.Parallelism = cfg.Diagnose.Parallelism

		resolver := resolve.New(rcfg, env.sources, tagger)
		stats, err := resolver.Run(ctx, arena)
		if err != nil {
			return eris.Wrap(err, "resolve catalog")
		}

		if resolveApply {
			if err := catalog.SaveCSV(cfg.Catalog.Path, arena); err != nil {
				return eris.Wrap(err, "save catalog")
			}
		}

		zap.L().Info("resolve complete",
			zap.Bool("apply", resolveApply),
			zap.Int("attempted", stats.Attempted),
			zap.Int("repinned", stats.Repinned),
			zap.Int("unpinned", stats.Unpinned),
			zap.Int("kept", stats.Kept),
			zap.Int("wikidata_hints", stats.WikidataHintAdded),
		)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveApply, "apply", false, "write repairs back to the catalog")
	resolveCmd.Flags().BoolVar(&resolveRetryMissing, "retry-missing", false, "also retry sources with no pin at all")
	rootCmd.AddCommand(resolveCmd)
}
