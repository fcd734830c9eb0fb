package circuit

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ConstantRows is the number of rows reserved at the bottom of every trace
// for the constants pool.
const ConstantRows = 8

// Trace errors.
var (
	ErrNotEnoughRows    = errors.New("circuit: not enough rows available")
	ErrCellAssigned     = errors.New("circuit: cell assigned twice")
	ErrConstantPoolFull = errors.New("circuit: constants pool full")
	ErrTableSize        = errors.New("circuit: table columns differ in length")
)

type copyConstraint struct {
	a, b Cell
}

// Trace is the concrete assignment of every column of a constraint system
// over a fixed number of rows. Rows [0, UsableRows) are handed out by the
// layouter; the remaining ConstantRows rows hold the constants pool.
// Lookup tables live beside the grid and may be longer than it.
type Trace struct {
	cs   *ConstraintSystem
	rows int

	advice    [][]fr.Element
	assigned  [][]bool
	fixed     [][]fr.Element
	selectors [][]bool
	tables    [][]fr.Element

	copies []copyConstraint

	constants    map[fr.Element]Cell
	nextConstant int

	// unknown is set once any advice cell was assigned without a witness.
	unknown bool
}

// NewTrace allocates an empty trace of the given height for cs.
func NewTrace(cs *ConstraintSystem, rows int) (*Trace, error) {
	if rows <= ConstantRows {
		return nil, fmt.Errorf("%w: %d rows leave no room for regions", ErrNotEnoughRows, rows)
	}
	t := &Trace{
		cs:        cs,
		rows:      rows,
		advice:    make([][]fr.Element, cs.numAdvice),
		assigned:  make([][]bool, cs.numAdvice),
		fixed:     make([][]fr.Element, cs.numFixed),
		selectors: make([][]bool, cs.numSelectors),
		tables:    make([][]fr.Element, cs.numTables),
		constants: make(map[fr.Element]Cell),
	}
	for i := range t.advice {
		t.advice[i] = make([]fr.Element, rows)
		t.assigned[i] = make([]bool, rows)
	}
	for i := range t.fixed {
		t.fixed[i] = make([]fr.Element, rows)
	}
	for i := range t.selectors {
		t.selectors[i] = make([]bool, rows)
	}
	return t, nil
}

// Rows returns the height of the trace.
func (t *Trace) Rows() int { return t.rows }

// UsableRows returns the number of rows available to regions.
func (t *Trace) UsableRows() int { return t.rows - ConstantRows }

// WitnessKnown reports whether every assigned advice cell carries a value.
// Traces built in a shape-only pass return false.
func (t *Trace) WitnessKnown() bool { return !t.unknown }

// Advice returns the value of an advice cell.
func (t *Trace) Advice(col Column, row int) fr.Element {
	return t.advice[col.Index][row]
}

// Fixed returns the value of a fixed cell.
func (t *Trace) Fixed(col Column, row int) fr.Element {
	return t.fixed[col.Index][row]
}

// SelectorEnabled reports whether s is on at row.
func (t *Trace) SelectorEnabled(s Selector, row int) bool {
	return t.selectors[s.index][row]
}

// NumCopies returns the number of recorded copy constraints.
func (t *Trace) NumCopies() int { return len(t.copies) }

// SetAdvice overwrites an advice cell after synthesis. It exists so tests
// can tamper with a witness and watch Verify reject it.
func (t *Trace) SetAdvice(col Column, row int, v fr.Element) {
	t.advice[col.Index][row] = v
}

// SameShape reports whether two traces agree on everything that does not
// depend on the witness: fixed columns, selectors, tables and copy
// constraints. The traces may belong to separately configured constraint
// systems.
func (t *Trace) SameShape(o *Trace) bool {
	if t.rows != o.rows || len(t.fixed) != len(o.fixed) || len(t.selectors) != len(o.selectors) ||
		len(t.tables) != len(o.tables) || len(t.copies) != len(o.copies) {
		return false
	}
	for i := range t.fixed {
		for r := range t.fixed[i] {
			if !t.fixed[i][r].Equal(&o.fixed[i][r]) {
				return false
			}
		}
	}
	for i := range t.selectors {
		for r := range t.selectors[i] {
			if t.selectors[i][r] != o.selectors[i][r] {
				return false
			}
		}
	}
	for i := range t.tables {
		if len(t.tables[i]) != len(o.tables[i]) {
			return false
		}
	}
	for i := range t.copies {
		if t.copies[i] != o.copies[i] {
			return false
		}
	}
	return true
}

func (t *Trace) checkRow(row int) error {
	if row < 0 || row >= t.UsableRows() {
		return fmt.Errorf("%w: row %d, usable %d", ErrNotEnoughRows, row, t.UsableRows())
	}
	return nil
}

func (t *Trace) assignAdvice(col Column, row int, v Value[fr.Element]) error {
	if col.Kind != Advice {
		return fmt.Errorf("circuit: assign advice to %s", col)
	}
	if err := t.checkRow(row); err != nil {
		return err
	}
	if t.assigned[col.Index][row] {
		return fmt.Errorf("%w: %s", ErrCellAssigned, Cell{Column: col, Row: row})
	}
	t.assigned[col.Index][row] = true
	if x, ok := v.Get(); ok {
		t.advice[col.Index][row] = x
	} else {
		t.unknown = true
	}
	return nil
}

func (t *Trace) assignFixed(col Column, row int, v fr.Element) error {
	if col.Kind != Fixed {
		return fmt.Errorf("circuit: assign fixed to %s", col)
	}
	if err := t.checkRow(row); err != nil {
		return err
	}
	t.fixed[col.Index][row] = v
	return nil
}

func (t *Trace) enableSelector(s Selector, row int) error {
	if err := t.checkRow(row); err != nil {
		return err
	}
	t.selectors[s.index][row] = true
	return nil
}

func (t *Trace) constrainEqual(a, b Cell) error {
	for _, c := range []Cell{a, b} {
		if !t.cs.EqualityEnabled(c.Column) {
			return fmt.Errorf("%w: %s", ErrEqualityNotEnabled, c.Column)
		}
		if c.Row < 0 || c.Row >= t.rows {
			return fmt.Errorf("%w: copy endpoint %s", ErrNotEnoughRows, c)
		}
	}
	t.copies = append(t.copies, copyConstraint{a: a, b: b})
	return nil
}

// constantCell returns the pool cell holding v, allocating one in the
// reserved rows the first time v is requested.
func (t *Trace) constantCell(v fr.Element) (Cell, error) {
	if c, ok := t.constants[v]; ok {
		return c, nil
	}
	col, err := t.cs.constantColumn()
	if err != nil {
		return Cell{}, err
	}
	if t.nextConstant == ConstantRows {
		return Cell{}, ErrConstantPoolFull
	}
	c := Cell{Column: col, Row: t.UsableRows() + t.nextConstant}
	t.nextConstant++
	t.fixed[col.Index][c.Row] = v
	t.constants[v] = c
	return c, nil
}

// setTable installs the values of a lookup table column. The slice is
// retained, not copied, so one table can back many traces.
func (t *Trace) setTable(col TableColumn, values []fr.Element) {
	t.tables[col.index] = values
}
