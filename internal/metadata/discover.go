package metadata

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// TablePattern matches the metadata table in an input directory.
	TablePattern = "*.csv"

	// SchemaPattern matches the schema document in an input directory.
	SchemaPattern = "*.schema.md"

	// MetadataDir is the result subfolder the downstream handler collects.
	MetadataDir = "AP_Metadata"
)

var (
	// ErrInputTableNotFound is returned when no table file exists in the input directory.
	ErrInputTableNotFound = errors.New("input table not found")

	// ErrSchemaNotFound is returned when no schema document exists in the input directory.
	ErrSchemaNotFound = errors.New("schema document not found")

	// ErrAmbiguousMatch is returned under StrictMatch when a lookup has several candidates.
	ErrAmbiguousMatch = errors.New("ambiguous match")
)

// MatchPolicy decides what happens when a lookup finds more than one candidate.
type MatchPolicy string

const (
	// FirstMatch takes the first candidate (files in name order, rows in table order).
	FirstMatch MatchPolicy = "first"

	// StrictMatch rejects the lookup with ErrAmbiguousMatch.
	StrictMatch MatchPolicy = "strict"
)

// ParseMatchPolicy maps a config value to a MatchPolicy. Empty means FirstMatch.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(s) {
	case "", FirstMatch:
		return FirstMatch, nil
	case StrictMatch:
		return StrictMatch, nil
	}
	return "", errors.Errorf("unknown match policy %q (want %q or %q)", s, FirstMatch, StrictMatch)
}

// FindFile returns the single file in dir matching pattern.
//
// Candidates are sorted by name so FirstMatch is stable across file systems.
// When nothing matches, notFound is returned wrapped with the directory.
func FindFile(dir, pattern string, policy MatchPolicy, notFound error) (string, error) {
	klog.V(1).Infof("looking in %s for %s", dir, pattern)
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", errors.Wrapf(err, "invalid pattern %q", pattern)
	}
	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return "", errors.Wrapf(notFound, "no %s in %s", pattern, dir)
	}
	sort.Strings(files)
	if len(files) > 1 {
		if policy == StrictMatch {
			return "", errors.Wrapf(ErrAmbiguousMatch, "%d files match %s in %s", len(files), pattern, dir)
		}
		klog.Warningf("%d files match %s in %s, using %s", len(files), pattern, dir, filepath.Base(files[0]))
	}
	klog.V(1).Infof("found %s", files[0])
	return files[0], nil
}

// Inputs are the metadata files of one input directory.
type Inputs struct {
	TablePath  string
	SchemaPath string
	RunID      string
}

// DiscoverInputs locates the table and schema document in dir and derives the
// run identifier from the table name. Both files are checked for existence before
// anything is derived from them.
func DiscoverInputs(dir string, policy MatchPolicy) (*Inputs, error) {
	table, err := FindFile(dir, TablePattern, policy, ErrInputTableNotFound)
	if err != nil {
		return nil, err
	}
	schema, err := FindFile(dir, SchemaPattern, policy, ErrSchemaNotFound)
	if err != nil {
		return nil, err
	}
	return &Inputs{
		TablePath:  table,
		SchemaPath: schema,
		RunID:      RunID(table),
	}, nil
}

// RunID derives the run identifier from a table path: its file name up to the
// first dot. A table named only by its extension gets a random UUID instead.
func RunID(tablePath string) string {
	name := filepath.Base(tablePath)
	id, _, _ := strings.Cut(name, ".")
	if id == "" {
		id = uuid.NewString()
		klog.Warningf("table %q has no name before its extension, using generated run id %s", name, id)
		return id
	}
	if _, err := uuid.Parse(id); err != nil {
		klog.V(1).Infof("run id %q is not a canonical UUID", id)
	}
	return id
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OutputPaths returns the table and schema paths a run writes under resultDir.
func OutputPaths(resultDir, runID string) (table, schema string) {
	dir := filepath.Join(resultDir, MetadataDir)
	return filepath.Join(dir, runID+".outputTable.metadata.csv"),
		filepath.Join(dir, runID+".outputTable.metadata.schema.md")
}
