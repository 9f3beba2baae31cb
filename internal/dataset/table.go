// Package dataset reads and writes the flat CSV snapshots that the pipeline
// and the dashboard exchange.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/churnlens/internal/utils"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmpty is returned when a file has no header row.
var ErrEmpty = errors.New("empty file: no header row found")

// Table is an in-memory CSV snapshot. Rows always have len(Header) fields.
type Table struct {
	Header []string
	Rows   [][]string
	// Encoding names the charset the source was decoded from.
	Encoding string
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	want := strings.TrimSpace(name)
	for i, h := range t.Header {
		if strings.TrimSpace(h) == want {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) { return len(t.Rows), len(t.Header) }

// ReadCSV loads a CSV or TSV file. Errors from opening the file are wrapped so
// errors.Is(err, fs.ErrNotExist) holds for a missing path.
func ReadCSV(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return Parse(data, DelimiterFor(path))
}

// Parse decodes raw bytes into a Table.
func Parse(data []byte, delim rune) (*Table, error) {
	decoded, enc, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	if delim != 0 {
		r.Comma = delim
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	t := &Table{Header: header, Encoding: enc}
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		switch {
		case len(rec) < ncol:
			tmp := make([]string, ncol)
			copy(tmp, rec)
			rec = tmp
		case len(rec) > ncol:
			return nil, fmt.Errorf("row %d: %d fields, header has %d", len(t.Rows)+1, len(rec), ncol)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Encode renders the table as CSV with LF line endings.
func Encode(t *Table, delim rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if delim != 0 {
		w.Comma = delim
	}
	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV encodes the table and writes it atomically.
func WriteCSV(path string, t *Table) ([]byte, error) {
	b, err := Encode(t, DelimiterFor(path))
	if err != nil {
		return nil, err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DelimiterFor picks tab for .tsv paths and comma otherwise.
func DelimiterFor(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decode strips a BOM and converts to UTF-8. Bytes that are not valid UTF-8
// and carry no BOM are read as Windows-1252, the usual spreadsheet export.
func decode(data []byte) ([]byte, string, error) {
	var name string
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		name = "utf-8-bom"
	case bytes.HasPrefix(data, bomUTF16LE):
		name = "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		name = "utf-16be"
	case utf8.Valid(data):
		return data, "utf-8", nil
	default:
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		return out, "windows-1252", err
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	return out, name, err
}
