// Package csvfile writes run artifacts as one CSV file each under the output
// directory. It is the primary sink: every run emits the full file set.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/gerontech-demand-etl/internal/artifact"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
)

// Writer implements pipeline.Loader for CSV files.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer rooted at dir. The directory is created on load.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "csv" }

// Load writes every artifact, replacing files from earlier runs.
func (w *Writer) Load(ctx context.Context, res *domain.Results) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, t := range artifact.Build(res) {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := Path(w.dir, t.Name)
		if err := writeFile(path, t); err != nil {
			return fmt.Errorf("write %s: %w", t.Name, err)
		}
		w.logger.Debug("artifact written", "artifact", t.Name, "path", path, "rows", t.Len())
	}
	w.logger.Info("csv artifacts written", "dir", w.dir, "count", len(artifact.Names))
	return nil
}

// Path returns the file an artifact is written to.
func Path(dir, name string) string {
	return filepath.Join(dir, name+".csv")
}

// writeFile writes through a sibling temp file so a failed run never leaves a
// truncated artifact in place.
func writeFile(path string, t artifact.Table) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	cw := csv.NewWriter(tmp)
	if err = cw.Write(t.Header); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	for i, row := range t.Rows {
		if err = cw.Write(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err = cw.Error(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
