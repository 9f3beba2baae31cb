package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/KaramelBytes/churnlens/internal/analysis"
	"github.com/KaramelBytes/churnlens/internal/enrich"
	"github.com/KaramelBytes/churnlens/internal/manifest"
	"github.com/KaramelBytes/churnlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	verInput  string
	verOutput string
	verSeed   uint64
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Regenerate the dataset in memory and check it matches the file on disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		output := c.OutputPath
		if cmd.Flags().Changed("output") && verOutput != "" {
			output = verOutput
		}

		onDisk, err := utils.FileSHA256(output)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &analysis.MissingDerivedFileError{Path: output}
			}
			return err
		}

		input, seed := c.InputPath, c.Seed
		m, err := manifest.Load(output)
		switch {
		case err == nil:
			input, seed = m.InputPath, m.Seed
			if err := m.Verify(onDisk); err != nil {
				return fmt.Errorf("%s changed since it was generated: %w", output, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// no manifest: regenerate from configuration
		default:
			return err
		}
		if cmd.Flags().Changed("input") && verInput != "" {
			input = verInput
		}
		if cmd.Flags().Changed("seed") {
			seed = verSeed
		}

		res, err := enrich.Generate(input, enrich.Options{Seed: seed})
		if err != nil {
			return err
		}
		if err := res.Encode(output); err != nil {
			return err
		}
		want := &manifest.Manifest{OutputSHA256: res.SHA256}
		if err := want.Verify(onDisk); err != nil {
			return fmt.Errorf("regenerated dataset differs from %s: %w", output, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Verified %s (seed %d, sha256 %s)\n", output, seed, onDisk[:12])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verInput, "input", "i", "", "base churn CSV (overrides manifest and config)")
	verifyCmd.Flags().StringVarP(&verOutput, "output", "o", "", "enriched CSV to check (overrides config output_path)")
	verifyCmd.Flags().Uint64Var(&verSeed, "seed", 42, "random seed (overrides manifest and config)")
}
