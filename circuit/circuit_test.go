package circuit

import (
	"errors"
	"strings"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/holiman/uint256"
	"go.uber.org/multierr"
)

// mulCircuit is a toy circuit: c = a*b on rows where sel is on, a is
// looked up in a nibble table, and one cell comes from the constants pool.
type mulCircuit struct {
	cs      *ConstraintSystem
	a, b, c Column
	k       Column
	sel     Selector
	nibble  TableColumn
}

func newMulCircuit() *mulCircuit {
	cs := NewConstraintSystem()
	m := &mulCircuit{
		cs:     cs,
		a:      cs.AdviceColumn(),
		b:      cs.AdviceColumn(),
		c:      cs.AdviceColumn(),
		k:      cs.FixedColumn(),
		sel:    cs.Selector(),
		nibble: cs.LookupTableColumn(),
	}
	cs.EnableEquality(m.a)
	cs.EnableEquality(m.c)
	cs.EnableConstant(m.k)
	cs.CreateGate("mul", m.sel, func(q *Query) []Constraint {
		return []Constraint{{
			Name: "a*b=c",
			Poly: Sub(Mul(q.Advice(m.a, 0), q.Advice(m.b, 0)), q.Advice(m.c, 0)),
		}}
	})
	cs.Lookup("nibble a", func(q *Query) []LookupInput {
		return []LookupInput{{Input: q.Advice(m.a, 0), Table: m.nibble}}
	})
	return m
}

func nibbleTable() []fr.Element {
	t := make([]fr.Element, 16)
	for i := range t {
		t[i] = NewElement(uint64(i))
	}
	return t
}

func known(v uint64) Value[fr.Element] { return Known(NewElement(v)) }

// synth lays out rows (a, b, a*b), chains c of each row into a of the next
// and pins the first a to the constant 2.
func (m *mulCircuit) synth(t *testing.T, bs []uint64, unknown bool) *Trace {
	t.Helper()
	tr, err := NewTrace(m.cs, 32)
	if err != nil {
		t.Fatalf("NewTrace: %v", err)
	}
	l := NewLayouter(tr, nil)
	if err := l.AssignTable("nibble", []TableColumn{m.nibble}, [][]fr.Element{nibbleTable()}); err != nil {
		t.Fatalf("AssignTable: %v", err)
	}
	err = l.AssignRegion("chain", func(r *Region) error {
		var prev AssignedCell
		a := uint64(2)
		for i, b := range bs {
			var err error
			if i == 0 {
				_, err = r.AssignAdviceFromConstant(m.a, i, NewElement(a))
			} else {
				_, err = r.CopyAdvice(m.a, i, prev)
			}
			if err != nil {
				return err
			}
			bv, cv := known(b), known(a*b)
			if unknown {
				bv, cv = Unknown[fr.Element](), Unknown[fr.Element]()
			}
			if _, err := r.AssignAdvice(m.b, i, bv); err != nil {
				return err
			}
			prev, err = r.AssignAdvice(m.c, i, cv)
			if err != nil {
				return err
			}
			if err := r.EnableSelector(m.sel, i); err != nil {
				return err
			}
			a *= b
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AssignRegion: %v", err)
	}
	if l.Cursor() != len(bs) {
		t.Fatalf("cursor = %d, want %d", l.Cursor(), len(bs))
	}
	return tr
}

// ---------------------------------------------------------------------------
// Field helpers
// ---------------------------------------------------------------------------

func TestPow2(t *testing.T) {
	for _, n := range []uint{0, 1, 63, 64, 127, 128, 200} {
		var want uint256.Int
		want.Lsh(uint256.NewInt(1), n)
		got := Pow2(n)
		w := ElementFromUint256(&want)
		if !got.Equal(&w) {
			t.Fatalf("Pow2(%d) = %s, want %s", n, got.String(), w.String())
		}
	}
	one := Pow2(0)
	if !one.IsOne() {
		t.Fatalf("Pow2(0) = %s, want 1", one.String())
	}
}

func TestValue(t *testing.T) {
	a, b := Known[uint64](3), Known[uint64](4)
	sum := Map2(a, b, func(x, y uint64) uint64 { return x + y })
	if v, ok := sum.Get(); !ok || v != 7 {
		t.Fatalf("Map2 = %v, want 7", sum)
	}
	u := Map2(a, Unknown[uint64](), func(x, y uint64) uint64 { return x + y })
	if u.IsKnown() {
		t.Fatal("Map2 with unknown operand is known")
	}
	if u.String() != "unknown" {
		t.Fatalf("String = %q, want unknown", u.String())
	}
	// Unknown values never trip assertions.
	Unknown[uint64]().AssertIfKnown(func(uint64) bool { return false }, "never")

	defer func() {
		if recover() == nil {
			t.Fatal("AssertIfKnown did not panic")
		}
	}()
	a.AssertIfKnown(func(x uint64) bool { return x == 4 }, "three is not four")
}

// ---------------------------------------------------------------------------
// Verify
// ---------------------------------------------------------------------------

func TestVerify_Satisfied(t *testing.T) {
	m := newMulCircuit()
	tr := m.synth(t, []uint64{3, 2, 1}, false)
	if err := Verify(m.cs, tr); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if tr.NumCopies() != 3 {
		t.Fatalf("copies = %d, want 3", tr.NumCopies())
	}
	// The constant 2 lives in the first reserved row.
	k := tr.Fixed(m.k, tr.UsableRows())
	if want := NewElement(2); !k.Equal(&want) {
		t.Fatalf("constant = %s, want 2", k.String())
	}
}

func TestVerify_GateFailure(t *testing.T) {
	m := newMulCircuit()
	tr := m.synth(t, []uint64{3, 2, 1}, false)
	tr.SetAdvice(m.b, 1, NewElement(5))

	err := Verify(m.cs, tr)
	if !errors.Is(err, ErrUnsatisfied) {
		t.Fatalf("Verify = %v, want ErrUnsatisfied", err)
	}
	var f *Failure
	if !errors.As(err, &f) || f.Kind != GateFailure || f.Row != 1 {
		t.Fatalf("failure = %+v, want gate failure at row 1", f)
	}
	if !strings.Contains(err.Error(), "mul/a*b=c") {
		t.Fatalf("error %q does not name the constraint", err)
	}
}

func TestVerify_LookupAndCopyFailure(t *testing.T) {
	m := newMulCircuit()
	tr := m.synth(t, []uint64{3, 2, 1}, false)
	// Rewrite rows 0 and 1 so both gates and the c[0]=a[1] copy still hold.
	// a[1]=16 leaves the nibble table.
	tr.SetAdvice(m.c, 0, NewElement(16))
	tr.SetAdvice(m.b, 0, NewElement(8))
	tr.SetAdvice(m.a, 1, NewElement(16))
	tr.SetAdvice(m.c, 1, NewElement(32))

	errs := multierr.Errors(Verify(m.cs, tr))
	kinds := map[FailureKind]int{}
	for _, err := range errs {
		var f *Failure
		if !errors.As(err, &f) {
			t.Fatalf("unexpected error %v", err)
		}
		kinds[f.Kind]++
	}
	if kinds[LookupFailure] != 1 {
		t.Fatalf("lookup failures = %d, want 1 (%v)", kinds[LookupFailure], errs)
	}
	// c[1]=32 no longer matches a[2]=12.
	if kinds[CopyFailure] != 1 {
		t.Fatalf("copy failures = %d, want 1 (%v)", kinds[CopyFailure], errs)
	}
	if kinds[GateFailure] != 0 {
		t.Fatalf("gate failures = %d, want 0 (%v)", kinds[GateFailure], errs)
	}
}

func TestVerify_ConstantPinned(t *testing.T) {
	m := newMulCircuit()
	tr := m.synth(t, []uint64{1}, false)
	// a[0] = 3, c[0] = 3 keeps the gate and the lookup happy but breaks the
	// copy into the constants pool.
	tr.SetAdvice(m.a, 0, NewElement(3))
	tr.SetAdvice(m.c, 0, NewElement(3))
	err := Verify(m.cs, tr)
	var f *Failure
	if !errors.As(err, &f) || f.Kind != CopyFailure {
		t.Fatalf("Verify = %v, want copy failure", err)
	}
}

func TestVerify_UnknownWitness(t *testing.T) {
	m := newMulCircuit()
	tr := m.synth(t, []uint64{3, 2}, true)
	if tr.WitnessKnown() {
		t.Fatal("shape-only trace claims a witness")
	}
	if err := Verify(m.cs, tr); !errors.Is(err, ErrUnknownWitness) {
		t.Fatalf("Verify = %v, want ErrUnknownWitness", err)
	}
	full := m.synth(t, []uint64{3, 2}, false)
	if !tr.SameShape(full) {
		t.Fatal("shape-only trace differs from the full trace")
	}
}

func TestVerify_MissingTable(t *testing.T) {
	m := newMulCircuit()
	tr, err := NewTrace(m.cs, 16)
	if err != nil {
		t.Fatalf("NewTrace: %v", err)
	}
	if err := Verify(m.cs, tr); !errors.Is(err, ErrMissingTable) {
		t.Fatalf("Verify = %v, want ErrMissingTable", err)
	}
}

// ---------------------------------------------------------------------------
// Layouter errors
// ---------------------------------------------------------------------------

func TestLayouter_Capacity(t *testing.T) {
	m := newMulCircuit()
	tr, err := NewTrace(m.cs, ConstantRows+4)
	if err != nil {
		t.Fatalf("NewTrace: %v", err)
	}
	l := NewLayouter(tr, nil)
	err = l.AssignRegion("big", func(r *Region) error {
		_, err := r.AssignAdvice(m.b, 4, known(1))
		return err
	})
	if !errors.Is(err, ErrNotEnoughRows) {
		t.Fatalf("AssignRegion = %v, want ErrNotEnoughRows", err)
	}
	if _, err := NewTrace(m.cs, ConstantRows); !errors.Is(err, ErrNotEnoughRows) {
		t.Fatalf("NewTrace = %v, want ErrNotEnoughRows", err)
	}
}

func TestLayouter_DoubleAssign(t *testing.T) {
	m := newMulCircuit()
	tr, _ := NewTrace(m.cs, 16)
	l := NewLayouter(tr, nil)
	err := l.AssignRegion("twice", func(r *Region) error {
		if _, err := r.AssignAdvice(m.b, 0, known(1)); err != nil {
			return err
		}
		_, err := r.AssignAdvice(m.b, 0, known(2))
		return err
	})
	if !errors.Is(err, ErrCellAssigned) {
		t.Fatalf("AssignRegion = %v, want ErrCellAssigned", err)
	}
}

func TestLayouter_EqualityNotEnabled(t *testing.T) {
	m := newMulCircuit()
	tr, _ := NewTrace(m.cs, 16)
	l := NewLayouter(tr, nil)
	err := l.AssignRegion("copy", func(r *Region) error {
		src, err := r.AssignAdvice(m.b, 0, known(1))
		if err != nil {
			return err
		}
		_, err = r.CopyAdvice(m.b, 1, src)
		return err
	})
	if !errors.Is(err, ErrEqualityNotEnabled) {
		t.Fatalf("AssignRegion = %v, want ErrEqualityNotEnabled", err)
	}
}

func TestLayouter_ConstantPool(t *testing.T) {
	m := newMulCircuit()
	tr, _ := NewTrace(m.cs, 32)
	l := NewLayouter(tr, nil)
	err := l.AssignRegion("consts", func(r *Region) error {
		for i := 0; i < ConstantRows; i++ {
			if _, err := r.AssignAdviceFromConstant(m.a, i, NewElement(uint64(i))); err != nil {
				return err
			}
		}
		// Repeated values reuse their pool cell.
		if _, err := r.AssignAdviceFromConstant(m.a, ConstantRows, NewElement(0)); err != nil {
			return err
		}
		_, err := r.AssignAdviceFromConstant(m.a, ConstantRows+1, NewElement(99))
		return err
	})
	if !errors.Is(err, ErrConstantPoolFull) {
		t.Fatalf("AssignRegion = %v, want ErrConstantPoolFull", err)
	}

	cs := NewConstraintSystem()
	a := cs.AdviceColumn()
	tr, _ = NewTrace(cs, 16)
	l = NewLayouter(tr, nil)
	err = l.AssignRegion("no pool", func(r *Region) error {
		_, err := r.AssignAdviceFromConstant(a, 0, NewElement(1))
		return err
	})
	if !errors.Is(err, ErrNoConstantColumn) {
		t.Fatalf("AssignRegion = %v, want ErrNoConstantColumn", err)
	}
}

func TestLayouter_RegionsStack(t *testing.T) {
	m := newMulCircuit()
	tr, _ := NewTrace(m.cs, 32)
	l := NewLayouter(tr, nil)
	for i, height := range []int{3, 5, 1} {
		start := l.Cursor()
		err := l.AssignRegion("r", func(r *Region) error {
			if r.Offset() != start {
				t.Fatalf("region %d offset = %d, want %d", i, r.Offset(), start)
			}
			return r.EnableSelector(m.sel, height-1)
		})
		if err != nil {
			t.Fatalf("AssignRegion: %v", err)
		}
		if l.Cursor() != start+height {
			t.Fatalf("cursor = %d, want %d", l.Cursor(), start+height)
		}
	}
}

func TestQuery_WrongKindPanics(t *testing.T) {
	m := newMulCircuit()
	defer func() {
		if recover() == nil {
			t.Fatal("fixed column accepted as advice")
		}
	}()
	m.cs.CreateGate("bad", m.sel, func(q *Query) []Constraint {
		return []Constraint{{Name: "x", Poly: q.Advice(m.k, 0)}}
	})
}

func TestEvaluator_RotationWraps(t *testing.T) {
	m := newMulCircuit()
	tr, _ := NewTrace(m.cs, 16)
	tr.SetAdvice(m.a, 15, NewElement(7))
	ev := &evaluator{t: tr}
	got := queryExpr{col: m.a, rot: -1}.evaluate(ev, 0)
	if want := NewElement(7); !got.Equal(&want) {
		t.Fatalf("a[-1] at row 0 = %s, want 7", got.String())
	}
}

func TestVerify_LookupsShareTable(t *testing.T) {
	m := newMulCircuit()
	// b*4 must be a nibble too, so b < 4.
	m.cs.Lookup("small b", func(q *Query) []LookupInput {
		return []LookupInput{{Input: Scale(q.Advice(m.b, 0), NewElement(4)), Table: m.nibble}}
	})
	if err := Verify(m.cs, m.synth(t, []uint64{3, 2}, false)); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	err := Verify(m.cs, m.synth(t, []uint64{3, 5}, false))
	errs := multierr.Errors(err)
	if len(errs) != 1 {
		t.Fatalf("failures = %v, want one", errs)
	}
	var f *Failure
	if !errors.As(errs[0], &f) || f.Kind != LookupFailure || f.Name != "small b" || f.Row != 1 {
		t.Fatalf("failure = %v, want small b lookup at row 1", errs[0])
	}
}
