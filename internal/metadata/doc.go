// Package metadata handles the tabular side of a stage run: discovering the input
// table and schema, loading the table into a row store keyed by image stem,
// deriving one output row per generated variant, extending the schema document,
// and writing the output pair.
//
// # File Contract
//
// An input directory holds exactly one "*.csv" table and one "*.schema.md"
// document. The run identifier is the table's file name up to its first dot and
// namespaces both outputs:
//
//	{result}/AP_Metadata/{runId}.outputTable.metadata.csv
//	{result}/AP_Metadata/{runId}.outputTable.metadata.schema.md
//
// # Rows
//
// Rows are plain string maps. Values read from the input are written back
// unchanged; the pipeline only adds or overwrites the columns it owns.
//
// # Schema Documents
//
// A schema document is append-only. Extending one copies the source byte for byte
// and then appends one "## Name" / "`type`" block per new column.
package metadata
