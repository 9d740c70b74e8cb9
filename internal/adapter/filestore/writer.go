package filestore

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
)

// Writer serializes tables into a directory, one file per format.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a writer rooted at dir. The directory is created on first write.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteTable writes t as <dir>/<base>.<type> for each requested type,
// replacing any previous file. It returns false when types is empty.
func (w *Writer) WriteTable(t *domain.Table, base string, types []domain.FileType) (bool, error) {
	if len(types) == 0 {
		w.logger.Info("no file types requested, skipping write", "file", base)
		return false, nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return false, fmt.Errorf("create output dir: %w", err)
	}

	for _, ft := range types {
		var data []byte
		var err error
		switch ft {
		case domain.FileCSV:
			data, err = encodeCSV(t)
		case domain.FileJSON:
			data, err = encodeJSON(t)
		default:
			err = fmt.Errorf("unsupported file type %q", ft)
		}
		if err != nil {
			return false, fmt.Errorf("encode %s.%s: %w", base, ft, err)
		}

		path := filepath.Join(w.dir, base+"."+string(ft))
		if err := writeFileAtomic(path, data); err != nil {
			return false, err
		}
		w.logger.Debug("wrote snapshot file", "path", path, "rows", t.Len(), "columns", len(t.Columns()))
	}
	return true, nil
}

// FormatValue renders a cell the way it appears in CSV output. Whole numbers
// have no decimal point and NaN is empty.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func encodeCSV(t *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	columns := t.Columns()
	if err := cw.Write(append([]string{"date"}, columns...)); err != nil {
		return nil, err
	}
	row := make([]string, len(columns)+1)
	for i, d := range t.Index() {
		row[0] = d.Format(domain.DateLayout)
		for j, col := range columns {
			row[j+1] = FormatValue(t.Value(i, col))
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// encodeJSON writes {"column": {"2006-01-02": value}} keeping column and date order.
func encodeJSON(t *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	index := t.Index()
	buf.WriteByte('{')
	for j, col := range t.Columns() {
		if j > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		for i, d := range index {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`"` + d.Format(domain.DateLayout) + `":`)
			v := t.Value(i, col)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				buf.WriteString("null")
				continue
			}
			num, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(num)
		}
		buf.WriteByte('}')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
