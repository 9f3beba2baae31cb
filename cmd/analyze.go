package cmd

import (
	"fmt"

	"github.com/KaramelBytes/churnlens/internal/analysis"
	"github.com/KaramelBytes/churnlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaSampleRows int
	anaTopValues  int
	anaCorr       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Profile the columns of a churn CSV/TSV",
	Long: `Profiles every column of a CSV or TSV (the base table or the enriched
dataset): inferred kind, missing values, numeric mean/min/max/std, top
categories, and pairwise correlations. Defaults to the configured output_path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings().OutputPath
		if len(args) == 1 {
			path = args[0]
		}
		opt := analysis.DefaultProfileOptions()
		opt.SampleRows = anaSampleRows
		opt.TopValues = anaTopValues
		opt.Correlations = anaCorr

		rep, err := analysis.AnalyzeCSV(path, opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of leading rows to include")
	analyzeCmd.Flags().IntVar(&anaTopValues, "top", 5, "categories listed per categorical column")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", true, "compute Pearson correlations among numeric columns")
}
