package circuit

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Verification errors.
var (
	ErrUnsatisfied    = errors.New("circuit: constraint not satisfied")
	ErrUnknownWitness = errors.New("circuit: trace has no witness")
	ErrMissingTable   = errors.New("circuit: lookup table not assigned")
)

// maxFailuresPerCheck bounds how many failing rows one gate or lookup
// reports.
const maxFailuresPerCheck = 16

// FailureKind classifies a verification failure.
type FailureKind uint8

const (
	GateFailure FailureKind = iota
	LookupFailure
	CopyFailure
)

// String returns the failure kind name.
func (k FailureKind) String() string {
	switch k {
	case GateFailure:
		return "gate"
	case LookupFailure:
		return "lookup"
	case CopyFailure:
		return "copy"
	default:
		return fmt.Sprintf("failure(%d)", uint8(k))
	}
}

// Failure describes one violated constraint. It unwraps to ErrUnsatisfied.
type Failure struct {
	Kind FailureKind
	Name string
	Row  int
	// Cells is set for copy failures.
	Cells [2]Cell
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Kind == CopyFailure {
		return fmt.Sprintf("copy %s != %s", f.Cells[0], f.Cells[1])
	}
	return fmt.Sprintf("%s %q failed at row %d", f.Kind, f.Name, f.Row)
}

// Unwrap returns ErrUnsatisfied.
func (f *Failure) Unwrap() error { return ErrUnsatisfied }

type evaluator struct {
	t *Trace
}

// cell reads a column value. Rows wrap around the trace height, the way
// rotations do over a cyclic evaluation domain.
func (ev *evaluator) cell(col Column, row int) fr.Element {
	n := ev.t.rows
	row %= n
	if row < 0 {
		row += n
	}
	if col.Kind == Fixed {
		return ev.t.fixed[col.Index][row]
	}
	return ev.t.advice[col.Index][row]
}

// Verify checks every gate at the rows its selector enables, every lookup
// at every row, and every copy constraint. All failures are returned
// combined; each one matches ErrUnsatisfied under errors.Is.
func Verify(cs *ConstraintSystem, t *Trace) error {
	if t.cs != cs {
		return errors.New("circuit: trace belongs to a different constraint system")
	}
	if t.unknown {
		return ErrUnknownWitness
	}
	ev := &evaluator{t: t}

	checks := len(cs.gates) + len(cs.lookups)
	results := make([][]error, checks)
	sets := newTableSets(cs.lookups)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range cs.gates {
		gate := &cs.gates[i]
		g.Go(func() error {
			results[i] = checkGate(ev, gate)
			return nil
		})
	}
	for i := range cs.lookups {
		lookup := &cs.lookups[i]
		g.Go(func() error {
			errs, err := checkLookup(ev, lookup, sets[tableKey(lookup)])
			results[len(cs.gates)+i] = errs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []error
	for _, errs := range results {
		all = append(all, errs...)
	}
	all = append(all, checkCopies(ev)...)
	return multierr.Combine(all...)
}

func checkGate(ev *evaluator, gate *Gate) []error {
	var errs []error
	sel := ev.t.selectors[gate.Selector.index]
	for row, on := range sel {
		if !on {
			continue
		}
		for _, c := range gate.Constraints {
			v := c.Poly.evaluate(ev, row)
			if v.IsZero() {
				continue
			}
			errs = append(errs, &Failure{Kind: GateFailure, Name: gate.Name + "/" + c.Name, Row: row})
			if len(errs) == maxFailuresPerCheck {
				return errs
			}
		}
	}
	return errs
}

func tupleKey(sb *strings.Builder, vals []fr.Element) string {
	sb.Reset()
	for i := range vals {
		b := vals[i].Bytes()
		sb.Write(b[:])
	}
	return sb.String()
}

// tableSet is the set of rows of one combination of table columns. Lookups
// over the same columns share it.
type tableSet struct {
	once sync.Once
	rows map[string]struct{}
	err  error
}

func tableKey(lookup *Lookup) string {
	var sb strings.Builder
	for i, in := range lookup.Inputs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(in.Table.index))
	}
	return sb.String()
}

func newTableSets(lookups []Lookup) map[string]*tableSet {
	sets := make(map[string]*tableSet)
	for i := range lookups {
		key := tableKey(&lookups[i])
		if _, ok := sets[key]; !ok {
			sets[key] = new(tableSet)
		}
	}
	return sets
}

func (s *tableSet) build(ev *evaluator, lookup *Lookup) (map[string]struct{}, error) {
	s.once.Do(func() {
		cols := make([][]fr.Element, len(lookup.Inputs))
		for i, in := range lookup.Inputs {
			cols[i] = ev.t.tables[in.Table.index]
			if cols[i] == nil {
				s.err = fmt.Errorf("%w: lookup %q", ErrMissingTable, lookup.Name)
				return
			}
			if len(cols[i]) != len(cols[0]) {
				s.err = fmt.Errorf("%w: lookup %q", ErrTableSize, lookup.Name)
				return
			}
		}
		var sb strings.Builder
		tuple := make([]fr.Element, len(cols))
		s.rows = make(map[string]struct{}, len(cols[0]))
		for r := range cols[0] {
			for i := range cols {
				tuple[i] = cols[i][r]
			}
			s.rows[tupleKey(&sb, tuple)] = struct{}{}
		}
	})
	return s.rows, s.err
}

func checkLookup(ev *evaluator, lookup *Lookup, table *tableSet) ([]error, error) {
	set, err := table.build(ev, lookup)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	tuple := make([]fr.Element, len(lookup.Inputs))
	var errs []error
	for row := 0; row < ev.t.rows; row++ {
		for i, in := range lookup.Inputs {
			tuple[i] = in.Input.evaluate(ev, row)
		}
		if _, ok := set[tupleKey(&sb, tuple)]; ok {
			continue
		}
		errs = append(errs, &Failure{Kind: LookupFailure, Name: lookup.Name, Row: row})
		if len(errs) == maxFailuresPerCheck {
			break
		}
	}
	return errs, nil
}

func checkCopies(ev *evaluator) []error {
	var errs []error
	for _, c := range ev.t.copies {
		a := ev.cell(c.a.Column, c.a.Row)
		b := ev.cell(c.b.Column, c.b.Row)
		if !a.Equal(&b) {
			errs = append(errs, &Failure{Kind: CopyFailure, Cells: [2]Cell{c.a, c.b}})
		}
	}
	return errs
}
