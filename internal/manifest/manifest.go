package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/KaramelBytes/churnlens/internal/utils"
	"github.com/google/uuid"
)

const suffix = ".manifest.json"

// ErrChecksumMismatch means a regenerated dataset differs from the recorded one.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Manifest records how an enriched dataset was produced.
type Manifest struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Seed          uint64    `json:"seed"`
	InputPath     string    `json:"input_path"`
	OutputPath    string    `json:"output_path"`
	InputEncoding string    `json:"input_encoding"`
	Rows          int       `json:"rows"`
	Columns       int       `json:"columns"`
	CoercedTotals int       `json:"coerced_total_charges"`
	OutputSHA256  string    `json:"output_sha256"`
}

// PathFor returns the manifest location for an output dataset.
func PathFor(output string) string { return output + suffix }

// New constructs a manifest with a fresh run id. Call Save to persist.
func New(seed uint64, input, output string) *Manifest {
	return &Manifest{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Seed:       seed,
		InputPath:  input,
		OutputPath: output,
	}
}

// Load reads the manifest stored next to output.
func Load(output string) (*Manifest, error) {
	path := PathFor(output)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest next to its output using an atomic write.
func (m *Manifest) Save() error {
	if m.OutputPath == "" {
		return errors.New("manifest output path not set")
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(PathFor(m.OutputPath), data)
}

// Verify compares the recorded checksum with sum.
func (m *Manifest) Verify(sum string) error {
	if m.OutputSHA256 != sum {
		return fmt.Errorf("%w: recorded %s, got %s", ErrChecksumMismatch, short(m.OutputSHA256), short(sum))
	}
	return nil
}

func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
