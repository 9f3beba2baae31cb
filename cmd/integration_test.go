package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/churnlens/internal/analysis"
	"github.com/KaramelBytes/churnlens/internal/enrich"
	"github.com/KaramelBytes/churnlens/internal/manifest"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags clears sticky flag state that persists across Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir and returns a working directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeTelco(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("customerID,gender,InternetService,Contract,MonthlyCharges,TotalCharges,Churn\n")
	services := []string{"Fiber optic", "DSL", "No"}
	contracts := []string{"Month-to-month", "One year", "Two year"}
	for i := 0; i < n; i++ {
		churn := "No"
		if i%4 == 0 {
			churn = "Yes"
		}
		total := fmt.Sprintf("%.2f", float64(i)*31.7)
		if i%25 == 0 {
			total = " "
		}
		fmt.Fprintf(&b, "%04d-ABCDE,Female,%s,%s,%.2f,%s,%s\n",
			i, services[i%3], contracts[i%3], 20+float64(i%90), total, churn)
	}
	p := filepath.Join(dir, "telco.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}

func TestCLI_GenerateVerifyDashboard(t *testing.T) {
	home := isolate(t)
	in := writeTelco(t, home, 120)
	out := filepath.Join(home, "enriched.csv")

	stdout := runCmd(t, "generate", "-i", in, "-o", out)
	assert.Contains(t, stdout, "✓ Successfully generated "+out)
	assert.Contains(t, stdout, "New Shape: (120, 11)")
	assert.Contains(t, stdout, "5 blank or non-numeric TotalCharges values were set to 0")
	assert.Contains(t, stdout, "SatisfactionScore", "preview table shows the new columns")

	m, err := manifest.Load(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), m.Seed)
	assert.Equal(t, 120, m.Rows)
	assert.Equal(t, 11, m.Columns)
	assert.Equal(t, 5, m.CoercedTotals)
	assert.Len(t, m.OutputSHA256, 64)

	stdout = runCmd(t, "verify", "-o", out)
	assert.Contains(t, stdout, "✓ Verified "+out)

	md := filepath.Join(home, "dash.md")
	runCmd(t, "dashboard", "-d", out, "--format", "md", "-o", md)
	b, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(b), "- Total Customers: 120")
	assert.Contains(t, string(b), "- Churn Rate: 25.0% (30 churned)")

	stdout = runCmd(t, "dashboard", "-d", out, "--preview", "3")
	assert.Contains(t, stdout, "Customer Churn Analytics Dashboard")
	assert.Contains(t, stdout, "Raw Data Preview (first 3 rows)")

	stdout = runCmd(t, "analyze", out, "--sample-rows", "2")
	assert.Contains(t, stdout, "[SCHEMA]")
	assert.Contains(t, stdout, "- CLTV: numeric")
}

func TestCLI_GenerateIsReproducibleAcrossRuns(t *testing.T) {
	home := isolate(t)
	in := writeTelco(t, home, 80)
	a := filepath.Join(home, "a.csv")
	b := filepath.Join(home, "b.csv")

	runCmd(t, "generate", "-i", in, "-o", a, "--no-manifest", "--preview", "0")
	runCmd(t, "generate", "-i", in, "-o", b, "--no-manifest", "--preview", "0")
	ba, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ba, bb)
	assert.NoFileExists(t, manifest.PathFor(a))

	runCmd(t, "generate", "-i", in, "-o", b, "--seed", "7", "--no-manifest", "--preview", "0")
	bc, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.NotEqual(t, ba, bc)
}

func TestCLI_VerifyDetectsTampering(t *testing.T) {
	home := isolate(t)
	in := writeTelco(t, home, 40)
	out := filepath.Join(home, "enriched.csv")
	runCmd(t, "generate", "-i", in, "-o", out, "--preview", "0")

	f, err := os.OpenFile(out, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("9999-ZZZZZ,Male,DSL,One year,10,10,3,1.0,10.00,0,No\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = execCmd(t, "verify", "-o", out)
	assert.ErrorIs(t, err, manifest.ErrChecksumMismatch)
}

func TestCLI_VerifyWithoutManifestUsesConfig(t *testing.T) {
	home := isolate(t)
	in := writeTelco(t, home, 40)
	out := filepath.Join(home, "enriched.csv")
	runCmd(t, "generate", "-i", in, "-o", out, "--seed", "9", "--no-manifest", "--preview", "0")

	_, err := execCmd(t, "verify", "-i", in, "-o", out)
	assert.ErrorIs(t, err, manifest.ErrChecksumMismatch, "default seed 42 does not reproduce a seed-9 file")

	stdout := runCmd(t, "verify", "-i", in, "-o", out, "--seed", "9")
	assert.Contains(t, stdout, "seed 9")
}

func TestCLI_MissingFilesFailWithoutPartialOutput(t *testing.T) {
	home := isolate(t)
	out := filepath.Join(home, "enriched.csv")

	_, err := execCmd(t, "generate", "-i", filepath.Join(home, "absent.csv"), "-o", out)
	var missingIn *enrich.MissingInputFileError
	require.True(t, errors.As(err, &missingIn))
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, manifest.PathFor(out))

	_, err = execCmd(t, "dashboard", "-d", out)
	var missingOut *analysis.MissingDerivedFileError
	require.True(t, errors.As(err, &missingOut))
	assert.Contains(t, err.Error(), "generate")

	_, err = execCmd(t, "serve", "-d", out, "--addr", "127.0.0.1:0")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = execCmd(t, "verify", "-o", out)
	assert.True(t, errors.As(err, &missingOut))
}

func TestCLI_DashboardRejectsUnknownFormat(t *testing.T) {
	home := isolate(t)
	in := writeTelco(t, home, 10)
	out := filepath.Join(home, "enriched.csv")
	runCmd(t, "generate", "-i", in, "-o", out, "--preview", "0")

	_, err := execCmd(t, "dashboard", "-d", out, "--format", "pdf")
	assert.ErrorContains(t, err, "unsupported --format")
}

func TestCLI_DashboardZeroPreviewHidesRawRows(t *testing.T) {
	home := isolate(t)
	in := writeTelco(t, home, 10)
	out := filepath.Join(home, "enriched.csv")
	runCmd(t, "generate", "-i", in, "-o", out, "--preview", "0")

	stdout := runCmd(t, "dashboard", "-d", out, "--format", "md", "--preview", "0")
	assert.Contains(t, stdout, "[KPIS]")
	assert.NotContains(t, stdout, "[RAW DATA PREVIEW")

	stdout = runCmd(t, "dashboard", "-d", out, "--preview", "0")
	assert.Contains(t, stdout, "Customer Churn Analytics Dashboard")
	assert.NotContains(t, stdout, "Raw Data Preview")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolate(t)

	runCmd(t, "config", "set", "seed", "1234")
	runCmd(t, "config", "set", "output_path", filepath.Join(home, "x.csv"))
	stdout := runCmd(t, "config", "show")
	assert.Contains(t, stdout, "seed: 1234")
	assert.Contains(t, stdout, "output_path: "+filepath.Join(home, "x.csv"))

	_, err := execCmd(t, "config", "set", "log_level", "loud")
	assert.ErrorContains(t, err, "invalid log_level")
	_, err = execCmd(t, "config", "set", "nope", "1")
	assert.ErrorContains(t, err, "unknown key")

	raw, err := os.ReadFile(filepath.Join(home, ".churnlens", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "seed: 1234")
}

func TestCLI_ConfigDrivesGenerate(t *testing.T) {
	home := isolate(t)
	in := writeTelco(t, home, 30)
	out := filepath.Join(home, "from-config.csv")
	runCmd(t, "config", "set", "input_path", in)
	runCmd(t, "config", "set", "output_path", out)
	runCmd(t, "config", "set", "write_manifest", "false")

	stdout := runCmd(t, "generate", "--preview", "0")
	assert.Contains(t, stdout, "New Shape: (30, 11)")
	assert.FileExists(t, out)
	assert.NoFileExists(t, manifest.PathFor(out))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	header := strings.Split(strings.SplitN(string(raw), "\n", 2)[0], ",")
	assert.Equal(t, "Churn", header[len(header)-1])
}
