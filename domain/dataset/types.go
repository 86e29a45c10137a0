package dataset

// Kind is the statistical type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Dataset is the capability the simulation core needs from a table: a row
// count, ordered column access by name, and row-subset construction from an
// index list. Implementations must treat themselves as immutable; the core
// never writes through a returned column.
type Dataset interface {
	Len() int
	ColumnNames() []string
	Column(name string) (Column, error)
	// Subset returns a new dataset holding rows indices[0], indices[1], ...
	// in that order. Indices may repeat.
	Subset(indices []int) (Dataset, error)
}

// Column is an ordered, read-only view of one attribute.
type Column struct {
	Name    string
	Kind    Kind
	Numbers []float64 // set when Kind == KindNumeric
	Labels  []string  // set when Kind == KindCategorical
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	if c.Kind == KindCategorical {
		return len(c.Labels)
	}
	return len(c.Numbers)
}
