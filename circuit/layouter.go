package circuit

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/eth2030/blake2f/log"
)

// AssignedCell is an advice or fixed cell together with the value written
// into it.
type AssignedCell struct {
	Cell  Cell
	Value Value[fr.Element]
}

// Layouter places regions one after another. It owns the single row
// cursor of a synthesis: a region starts where the previous one ended and
// only AssignRegion advances the cursor.
type Layouter struct {
	trace  *Trace
	cursor int
	log    *log.Logger
}

// NewLayouter returns a layouter writing into t. A nil logger silences
// region logging.
func NewLayouter(t *Trace, logger *log.Logger) *Layouter {
	if logger == nil {
		logger = log.Nop()
	}
	return &Layouter{trace: t, log: logger.Module("circuit")}
}

// Cursor returns the first row the next region will occupy.
func (l *Layouter) Cursor() int { return l.cursor }

// Trace returns the trace being written.
func (l *Layouter) Trace() *Trace { return l.trace }

// AssignRegion runs fn over a fresh region placed at the cursor and then
// moves the cursor past the highest row the region touched.
func (l *Layouter) AssignRegion(name string, fn func(r *Region) error) error {
	r := &Region{name: name, offset: l.cursor, trace: l.trace}
	if err := fn(r); err != nil {
		return fmt.Errorf("region %q: %w", name, err)
	}
	l.log.Debug("region assigned", "region", name, "offset", r.offset, "rows", r.height)
	l.cursor += r.height
	return nil
}

// AssignTable installs the values of a lookup table. All columns must have
// the same length.
func (l *Layouter) AssignTable(name string, cols []TableColumn, values [][]fr.Element) error {
	if len(cols) != len(values) {
		return fmt.Errorf("table %q: %d columns, %d value slices", name, len(cols), len(values))
	}
	for i := range values {
		if len(values[i]) != len(values[0]) {
			return fmt.Errorf("table %q: %w", name, ErrTableSize)
		}
	}
	for i, col := range cols {
		l.trace.setTable(col, values[i])
	}
	l.log.Debug("table assigned", "table", name, "rows", len(values[0]))
	return nil
}

// Region is a contiguous block of rows. Offsets passed to its methods are
// relative to the region start.
type Region struct {
	name   string
	offset int
	height int
	trace  *Trace
}

// Offset returns the absolute row of the region's first row.
func (r *Region) Offset() int { return r.offset }

func (r *Region) touch(row int) int {
	if row+1 > r.height {
		r.height = row + 1
	}
	return r.offset + row
}

// AssignAdvice writes v into an advice cell.
func (r *Region) AssignAdvice(col Column, row int, v Value[fr.Element]) (AssignedCell, error) {
	abs := r.touch(row)
	if err := r.trace.assignAdvice(col, abs, v); err != nil {
		return AssignedCell{}, err
	}
	return AssignedCell{Cell: Cell{Column: col, Row: abs}, Value: v}, nil
}

// AssignFixed writes v into a fixed cell.
func (r *Region) AssignFixed(col Column, row int, v fr.Element) (AssignedCell, error) {
	abs := r.touch(row)
	if err := r.trace.assignFixed(col, abs, v); err != nil {
		return AssignedCell{}, err
	}
	return AssignedCell{Cell: Cell{Column: col, Row: abs}, Value: Known(v)}, nil
}

// AssignAdviceFromConstant writes v into an advice cell and ties it to the
// constants pool, so the value is fixed by the circuit rather than chosen
// by the prover.
func (r *Region) AssignAdviceFromConstant(col Column, row int, v fr.Element) (AssignedCell, error) {
	cell, err := r.AssignAdvice(col, row, Known(v))
	if err != nil {
		return AssignedCell{}, err
	}
	pool, err := r.trace.constantCell(v)
	if err != nil {
		return AssignedCell{}, err
	}
	if err := r.trace.constrainEqual(cell.Cell, pool); err != nil {
		return AssignedCell{}, err
	}
	return cell, nil
}

// EnableSelector switches s on at row.
func (r *Region) EnableSelector(s Selector, row int) error {
	return r.trace.enableSelector(s, r.touch(row))
}

// ConstrainEqual records a copy constraint between two cells.
func (r *Region) ConstrainEqual(a, b Cell) error {
	return r.trace.constrainEqual(a, b)
}

// CopyAdvice assigns the value of src into an advice cell of this region
// and constrains the two cells to be equal.
func (r *Region) CopyAdvice(col Column, row int, src AssignedCell) (AssignedCell, error) {
	cell, err := r.AssignAdvice(col, row, src.Value)
	if err != nil {
		return AssignedCell{}, err
	}
	if err := r.trace.constrainEqual(src.Cell, cell.Cell); err != nil {
		return AssignedCell{}, err
	}
	return cell, nil
}
