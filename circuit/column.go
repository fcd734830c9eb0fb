package circuit

import "fmt"

// ColumnKind distinguishes witness columns from preprocessed ones.
type ColumnKind uint8

const (
	// Advice columns hold witness values chosen by the prover.
	Advice ColumnKind = iota
	// Fixed columns hold constants fixed at circuit definition time.
	Fixed
)

// String returns the column kind name.
func (k ColumnKind) String() string {
	switch k {
	case Advice:
		return "advice"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Column identifies a vertical lane of the trace.
type Column struct {
	Kind  ColumnKind
	Index int
}

// String implements fmt.Stringer.
func (c Column) String() string {
	return fmt.Sprintf("%s[%d]", c.Kind, c.Index)
}

// Selector is a boolean fixed column that switches a gate on per row.
type Selector struct {
	index int
}

// Index returns the selector's position in the constraint system.
func (s Selector) Index() int { return s.index }

// TableColumn is a column of a fixed lookup relation. Table columns live
// outside the row grid and may be longer than the trace.
type TableColumn struct {
	index int
}

// Index returns the table column's position in the constraint system.
func (t TableColumn) Index() int { return t.index }

// Cell is a single position in the trace.
type Cell struct {
	Column Column
	Row    int
}

// String implements fmt.Stringer.
func (c Cell) String() string {
	return fmt.Sprintf("%s@%d", c.Column, c.Row)
}
