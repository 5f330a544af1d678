package metadata

import (
	"fmt"

	"github.com/ironsheep/dataset-augment/internal/imaging"
	"github.com/ironsheep/dataset-augment/internal/sampling"
)

// Columns added by the Prepare stage.
const (
	BackgroundColorColumn = "BackgroundColor"
	NewPositionColumn     = "NewPosition"
	NewImageColumn        = "NewImage"
	ClipUUIDColumn        = "ClipUuid"
	IsTrainDataColumn     = "IsTrainData"
	IsValDataColumn       = "IsValData"
	IsTestDataColumn      = "IsTestData"
)

// PrepareColumns lists the Prepare stage's new columns in output order.
var PrepareColumns = []string{
	BackgroundColorColumn,
	NewPositionColumn,
	NewImageColumn,
	ClipUUIDColumn,
	IsTrainDataColumn,
	IsValDataColumn,
	IsTestDataColumn,
}

// Propagate derives the output row of a generated variant: a copy of the source
// row matching the variant's stem, plus the compositing columns.
//
// The shared table is only read.
func Propagate(t *Table, v imaging.Variant, runID string, policy MatchPolicy) (Row, error) {
	row, err := t.Lookup(v.Stem, policy)
	if err != nil {
		return nil, err
	}
	row[BackgroundColorColumn] = v.Color.String()
	row[NewPositionColumn] = fmt.Sprintf("(%d, %d)", v.Position.X, v.Position.Y)
	row[NewImageColumn] = v.FileName()
	row[ClipUUIDColumn] = runID
	return row, nil
}

// ApplyLabel writes the split columns of l into row.
func ApplyLabel(row Row, l sampling.Label) {
	row[IsTrainDataColumn] = FormatBool(l.Train)
	row[IsValDataColumn] = FormatBool(l.Val)
	row[IsTestDataColumn] = FormatBool(l.Test)
}

// FormatBool renders booleans the way the downstream table loader expects.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
