package circuit

import (
	"errors"
	"fmt"
)

// Constraint system errors.
var (
	ErrNoConstantColumn   = errors.New("circuit: no column enabled for constants")
	ErrEqualityNotEnabled = errors.New("circuit: equality not enabled on column")
)

// Constraint is one polynomial that must vanish on every row where its
// gate's selector is enabled.
type Constraint struct {
	Name string
	Poly Expression
}

// Gate groups constraints that share a selector.
type Gate struct {
	Name        string
	Selector    Selector
	Constraints []Constraint
}

// LookupInput pairs an input expression with the table column it must be
// found in.
type LookupInput struct {
	Input Expression
	Table TableColumn
}

// Lookup asserts that, on every usable row, the tuple of input expressions
// is a row of the table.
type Lookup struct {
	Name   string
	Inputs []LookupInput
}

// ConstraintSystem is the witness-independent description of a circuit:
// its columns, gates, lookups, and which columns take part in copy
// constraints. It is built once per circuit shape.
type ConstraintSystem struct {
	numAdvice    int
	numFixed     int
	numSelectors int
	numTables    int

	equality  map[Column]bool
	constants []Column

	gates   []Gate
	lookups []Lookup
}

// NewConstraintSystem returns an empty constraint system.
func NewConstraintSystem() *ConstraintSystem {
	return &ConstraintSystem{equality: make(map[Column]bool)}
}

// AdviceColumn allocates a witness column.
func (cs *ConstraintSystem) AdviceColumn() Column {
	c := Column{Kind: Advice, Index: cs.numAdvice}
	cs.numAdvice++
	return c
}

// FixedColumn allocates a preprocessed column.
func (cs *ConstraintSystem) FixedColumn() Column {
	c := Column{Kind: Fixed, Index: cs.numFixed}
	cs.numFixed++
	return c
}

// Selector allocates a gate selector.
func (cs *ConstraintSystem) Selector() Selector {
	s := Selector{index: cs.numSelectors}
	cs.numSelectors++
	return s
}

// LookupTableColumn allocates a lookup table column.
func (cs *ConstraintSystem) LookupTableColumn() TableColumn {
	t := TableColumn{index: cs.numTables}
	cs.numTables++
	return t
}

// EnableEquality allows col to take part in copy constraints.
func (cs *ConstraintSystem) EnableEquality(col Column) {
	cs.equality[col] = true
}

// EnableConstant marks a fixed column as the home of the constants pool
// used by Region.AssignAdviceFromConstant. Equality is enabled as well.
func (cs *ConstraintSystem) EnableConstant(col Column) {
	if col.Kind != Fixed {
		panic(fmt.Sprintf("circuit: constants need a fixed column, got %s", col))
	}
	cs.EnableEquality(col)
	cs.constants = append(cs.constants, col)
}

// CreateGate declares a gate whose constraints apply on rows where s is
// enabled.
func (cs *ConstraintSystem) CreateGate(name string, s Selector, fn func(q *Query) []Constraint) {
	constraints := fn(&Query{cs: cs})
	if len(constraints) == 0 {
		panic(fmt.Sprintf("circuit: gate %q has no constraints", name))
	}
	cs.gates = append(cs.gates, Gate{Name: name, Selector: s, Constraints: constraints})
}

// Lookup declares a lookup argument.
func (cs *ConstraintSystem) Lookup(name string, fn func(q *Query) []LookupInput) {
	inputs := fn(&Query{cs: cs})
	if len(inputs) == 0 {
		panic(fmt.Sprintf("circuit: lookup %q has no inputs", name))
	}
	cs.lookups = append(cs.lookups, Lookup{Name: name, Inputs: inputs})
}

// Gates returns the declared gates.
func (cs *ConstraintSystem) Gates() []Gate { return cs.gates }

// Lookups returns the declared lookup arguments.
func (cs *ConstraintSystem) Lookups() []Lookup { return cs.lookups }

// NumAdvice returns the number of advice columns.
func (cs *ConstraintSystem) NumAdvice() int { return cs.numAdvice }

// NumFixed returns the number of fixed columns.
func (cs *ConstraintSystem) NumFixed() int { return cs.numFixed }

// NumSelectors returns the number of selectors.
func (cs *ConstraintSystem) NumSelectors() int { return cs.numSelectors }

// NumTableColumns returns the number of lookup table columns.
func (cs *ConstraintSystem) NumTableColumns() int { return cs.numTables }

// NumConstraints returns the total number of gate constraints.
func (cs *ConstraintSystem) NumConstraints() int {
	n := 0
	for _, g := range cs.gates {
		n += len(g.Constraints)
	}
	return n
}

// EqualityEnabled reports whether col may take part in copy constraints.
func (cs *ConstraintSystem) EqualityEnabled(col Column) bool {
	return cs.equality[col]
}

func (cs *ConstraintSystem) constantColumn() (Column, error) {
	if len(cs.constants) == 0 {
		return Column{}, ErrNoConstantColumn
	}
	return cs.constants[0], nil
}
