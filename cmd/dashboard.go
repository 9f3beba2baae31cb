package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/KaramelBytes/churnlens/internal/analysis"
	"github.com/KaramelBytes/churnlens/internal/dashboard"
	"github.com/KaramelBytes/churnlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	dashData    string
	dashFormat  string
	dashOutput  string
	dashPreview int
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the churn dashboard in the terminal or as Markdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		path := c.OutputPath
		if cmd.Flags().Changed("data") && dashData != "" {
			path = dashData
		}
		preview := c.PreviewRows
		if cmd.Flags().Changed("preview") {
			preview = dashPreview
		}
		s, err := analysis.Load(path, analysis.Options{PreviewRows: preview})
		if err != nil {
			return err
		}

		var body bytes.Buffer
		switch strings.ToLower(dashFormat) {
		case "terminal", "term", "":
			if err := dashboard.WriteTerminal(&body, s, dashboard.TerminalOptions{PreviewRows: preview}); err != nil {
				return err
			}
		case "md", "markdown":
			body.WriteString(s.Markdown())
		default:
			return fmt.Errorf("unsupported --format: %s (use terminal|md)", dashFormat)
		}

		if dashOutput != "" {
			if err := utils.SafeWriteFile(dashOutput, body.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote dashboard to %s\n", dashOutput)
			return nil
		}
		_, err = body.WriteTo(cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringVarP(&dashData, "data", "d", "", "enriched CSV (overrides config output_path)")
	dashboardCmd.Flags().StringVarP(&dashFormat, "format", "f", "terminal", "output format: terminal|md")
	dashboardCmd.Flags().StringVarP(&dashOutput, "output", "o", "", "optional path to write the rendered dashboard")
	dashboardCmd.Flags().IntVar(&dashPreview, "preview", 50, "raw rows to show (overrides config preview_rows)")
}
