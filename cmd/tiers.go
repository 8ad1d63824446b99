package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/tiers"
)

var (
	tiersFilePath string
	tiersOutPath  string
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Maintain the production-tier YAML",
}

var tiersNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Deduplicate tier entries by company key and rewrite canonically",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := tiersFilePath
		if in == "" {
			in = cfg.Tiers.Path
		}
		out := tiersOutPath
		if out == "" {
			out = in
		}

		res, err := tiers.Normalize(in, out)
		if err != nil {
			return err
		}

		zap.L().Info("tiers normalized",
			zap.Int("publishers_in", res.PublishersIn),
			zap.Int("publishers_out", res.PublishersOut),
			zap.Int("developers_in", res.DevelopersIn),
			zap.Int("developers_out", res.DevelopersOut),
			zap.Int("merged", res.Merged),
			zap.Int("conflicts", res.Conflicts),
			zap.String("out", out),
		)
		return nil
	},
}

var tiersVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Parse the tier file and report entry counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := tiersFilePath
		if in == "" {
			in = cfg.Tiers.Path
		}

		table, err := tiers.Load(in)
		if err != nil {
			return err
		}
		pubs, devs := table.Len()
		zap.L().Info("tier file ok",
			zap.String("file", in),
			zap.Int("publishers", pubs),
			zap.Int("developers", devs),
		)
		return nil
	},
}

func init() {
	tiersCmd.PersistentFlags().StringVar(&tiersFilePath, "file", "", "tier YAML path (default from config)")
	tiersNormalizeCmd.Flags().StringVar(&tiersOutPath, "out", "", "output path (default: in place)")
	tiersCmd.AddCommand(tiersNormalizeCmd, tiersVerifyCmd)
	rootCmd.AddCommand(tiersCmd)
}
