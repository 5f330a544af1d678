package metadata

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ColumnType is a schema type tag.
type ColumnType string

// Type tags understood by the downstream table loader.
const (
	TypeBool          ColumnType = "bool"
	TypeString        ColumnType = "string"
	TypeFloatNullable ColumnType = "float?"
	TypeRectFNullable ColumnType = "RectF?"
)

// ColumnDescriptor declares the type of one column in a schema document.
type ColumnDescriptor struct {
	Name string
	Type ColumnType
}

// Render returns the descriptor block appended to a schema document.
func (d ColumnDescriptor) Render() string {
	return fmt.Sprintf("\n## %s\n`%s`\n", d.Name, d.Type)
}

// SplitDescriptors are appended by the Prepare stage.
var SplitDescriptors = []ColumnDescriptor{
	{Name: IsTrainDataColumn, Type: TypeBool},
	{Name: IsValDataColumn, Type: TypeBool},
	{Name: IsTestDataColumn, Type: TypeBool},
}

// ExtendSchema writes the document at src to w unchanged and then appends each
// descriptor in order.
func ExtendSchema(w io.Writer, src string, descriptors []ColumnDescriptor) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open schema %q", src)
	}
	defer in.Close()

	if _, err := io.Copy(w, in); err != nil {
		return errors.Wrapf(err, "failed to copy schema %q", src)
	}
	for _, d := range descriptors {
		klog.V(1).Infof("adding %s (%s) to schema", d.Name, d.Type)
		if _, err := io.WriteString(w, d.Render()); err != nil {
			return errors.Wrapf(err, "failed to append %s to schema", d.Name)
		}
	}
	return nil
}
