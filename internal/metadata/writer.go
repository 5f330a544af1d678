package metadata

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Assemble returns the column superset for rows: the base columns in order, then
// extra columns in order, then any other key found in rows (in first-seen row
// order, sorted within a row). Columns already present are not repeated.
func Assemble(base, extra []string, rows []Row) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	columns := make([]string, 0, len(base)+len(extra))
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			columns = append(columns, c)
		}
	}
	for _, c := range base {
		add(c)
	}
	for _, c := range extra {
		add(c)
	}
	for _, row := range rows {
		var unknown []string
		for k := range row {
			if !seen[k] {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		for _, k := range unknown {
			add(k)
		}
	}
	return columns
}

// WriteTable writes rows as a comma-delimited table with a header line and no
// index column. Cells missing from a row are written empty.
func WriteTable(w io.Writer, columns []string, rows []Row) error {
	if len(rows) == 0 {
		// A header-only frame is rejected by dataframe.LoadRecords.
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return errors.Wrap(err, "failed to write table header")
		}
		cw.Flush()
		return errors.Wrap(cw.Error(), "failed to write table header")
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, columns)
	for _, row := range rows {
		rec := make([]string, len(columns))
		for i, c := range columns {
			rec[i] = row[c]
		}
		records = append(records, rec)
	}
	df := dataframe.LoadRecords(records, textOptions...)
	if df.Err != nil {
		return errors.Wrap(df.Err, "failed to assemble table")
	}
	return errors.Wrap(df.WriteCSV(w), "failed to write table")
}

// Output is everything a stage commits at the end of a run.
type Output struct {
	ResultDir   string
	RunID       string
	SchemaSrc   string
	Descriptors []ColumnDescriptor
	Columns     []string
	Rows        []Row
}

// WriteOutputs writes the extended schema and the table under
// {ResultDir}/AP_Metadata.
//
// Both files are first written to temporary names in the same directory and only
// renamed into place once both are complete. On error no output file is left
// behind, except in the narrow case of a failure between the two renames.
func WriteOutputs(out Output) (tablePath, schemaPath string, err error) {
	tablePath, schemaPath = OutputPaths(out.ResultDir, out.RunID)
	dir := filepath.Dir(tablePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errors.Wrapf(err, "failed to create %q", dir)
	}

	schemaTmp, err := writeTemp(dir, func(w io.Writer) error {
		return ExtendSchema(w, out.SchemaSrc, out.Descriptors)
	})
	if err != nil {
		return "", "", err
	}
	defer os.Remove(schemaTmp)

	tableTmp, err := writeTemp(dir, func(w io.Writer) error {
		return WriteTable(w, out.Columns, out.Rows)
	})
	if err != nil {
		return "", "", err
	}
	defer os.Remove(tableTmp)

	klog.V(1).Infof("copying %s to %s", out.SchemaSrc, schemaPath)
	if err := os.Rename(schemaTmp, schemaPath); err != nil {
		return "", "", errors.Wrapf(err, "failed to commit schema %q", schemaPath)
	}
	if err := os.Rename(tableTmp, tablePath); err != nil {
		os.Remove(schemaPath)
		return "", "", errors.Wrapf(err, "failed to commit table %q", tablePath)
	}
	return tablePath, schemaPath, nil
}

func writeTemp(dir string, fill func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return "", errors.Wrapf(err, "failed to create temporary file in %q", dir)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "failed to set mode on %q", f.Name())
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "failed to close %q", f.Name())
	}
	return f.Name(), nil
}
