package manifest_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/churnlens/internal/manifest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "enriched.csv")
	m := manifest.New(42, "in.csv", out)
	m.Rows, m.Columns, m.CoercedTotals = 3, 25, 1
	m.OutputSHA256 = "abc"

	_, err := uuid.Parse(m.ID)
	require.NoError(t, err, "run id should be a uuid")

	require.NoError(t, m.Save())
	assert.FileExists(t, out+".manifest.json")

	got, err := manifest.Load(out)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, uint64(42), got.Seed)
	assert.Equal(t, 25, got.Columns)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
}

func TestLoadMissing(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "x.csv"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestVerify(t *testing.T) {
	m := &manifest.Manifest{OutputSHA256: "0123456789abcdef"}
	assert.NoError(t, m.Verify("0123456789abcdef"))
	err := m.Verify("ffff")
	assert.ErrorIs(t, err, manifest.ErrChecksumMismatch)
	assert.Contains(t, err.Error(), "recorded 0123456789ab")
}
