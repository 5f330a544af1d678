package metadata

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

// NameColumn holds the image stem each row describes.
const NameColumn = "name"

// ErrMetadataLookup is returned when no row matches an image stem.
var ErrMetadataLookup = errors.New("no metadata row for image")

// Row maps column names to cell text.
type Row map[string]string

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is the in-memory row store of an input metadata table.
//
// A Table is never modified after loading, so it can be shared read-only by any
// number of goroutines.
type Table struct {
	columns []string
	rows    []Row
	byName  map[string][]int
}

// LoadTable parses the comma-delimited table at path. The first line is the
// header and every cell is kept as text.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open table %q", path)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "table %q", path)
	}
	return t, nil
}

// ReadTable parses a comma-delimited table from r. Cells are kept verbatim,
// including "NA" and "NaN".
func ReadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read table")
	}
	// dataframe renames repeated column names, so the header is checked first.
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read table header")
	}
	if err := checkColumns(header); err != nil {
		return nil, err
	}

	df := dataframe.ReadCSV(bytes.NewReader(data), textOptions...)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "failed to parse table")
	}
	records := df.Records()
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(rec))
		for i, col := range records[0] {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return NewTable(df.Names(), rows)
}

// textOptions load every cell as an uninterpreted string.
var textOptions = []dataframe.LoadOption{
	dataframe.HasHeader(true),
	dataframe.DetectTypes(false),
	dataframe.DefaultType(series.String),
	dataframe.NaNValues([]string{}),
}

// checkColumns rejects repeated column names.
func checkColumns(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return errors.Errorf("table has duplicate column %q (columns: %v)", c, columns)
		}
		seen[c] = true
	}
	return nil
}

// NewTable builds a Table from columns and rows. The NameColumn must be present
// and column names must be unique.
func NewTable(columns []string, rows []Row) (*Table, error) {
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	hasName := false
	for _, c := range columns {
		if c == NameColumn {
			hasName = true
			break
		}
	}
	if !hasName {
		return nil, errors.Errorf("table has no %q column (columns: %v)", NameColumn, columns)
	}

	t := &Table{
		columns: append([]string(nil), columns...),
		rows:    rows,
		byName:  make(map[string][]int, len(rows)),
	}
	for i, row := range rows {
		name := row[NameColumn]
		t.byName[name] = append(t.byName[name], i)
	}
	return t, nil
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Lookup returns a copy of the row whose NameColumn equals stem.
//
// # Errors
//
//   - ErrMetadataLookup if no row matches
//   - ErrAmbiguousMatch if several rows match and policy is StrictMatch; with
//     FirstMatch the earliest row in file order is returned
func (t *Table) Lookup(stem string, policy MatchPolicy) (Row, error) {
	idx := t.byName[stem]
	switch {
	case len(idx) == 0:
		return nil, errors.Wrapf(ErrMetadataLookup, "%s=%q", NameColumn, stem)
	case len(idx) > 1 && policy == StrictMatch:
		return nil, errors.Wrapf(ErrAmbiguousMatch, "%d rows with %s=%q", len(idx), NameColumn, stem)
	}
	return t.rows[idx[0]].Clone(), nil
}
