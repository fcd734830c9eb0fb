package blake2f

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/eth2030/blake2f/circuit"
	"github.com/eth2030/blake2f/spread"
)

// SpreadTableRows is the number of (dense, spread) pairs: one per 16-bit
// limb value.
const SpreadTableRows = 1 << limbBits

// SpreadTable holds every 16-bit limb next to its spread form, in
// ascending dense order. It is read-only once built and may back any
// number of traces at the same time.
type SpreadTable struct {
	Dense  []fr.Element
	Spread []fr.Element
}

// NewSpreadTable builds the table. Even rows compute the spread from
// scratch; an odd row differs from the even row before it only in bit 0,
// which spreads to 1.
func NewSpreadTable() *SpreadTable {
	t := &SpreadTable{
		Dense:  make([]fr.Element, SpreadTableRows),
		Spread: make([]fr.Element, SpreadTableRows),
	}
	one := circuit.NewElement(1)
	for i := 0; i < SpreadTableRows; i++ {
		t.Dense[i] = circuit.NewElement(uint64(i))
		if i&1 == 0 {
			t.Spread[i] = circuit.NewElement(uint64(spread.Spread16(uint16(i))))
		} else {
			t.Spread[i].Add(&t.Spread[i-1], &one)
		}
	}
	return t
}

var (
	sharedTableOnce sync.Once
	sharedTable     *SpreadTable
)

// SharedSpreadTable returns a process-wide table, built on first use.
func SharedSpreadTable() *SpreadTable {
	sharedTableOnce.Do(func() {
		sharedTable = NewSpreadTable()
	})
	return sharedTable
}

// tableConfig holds the table columns the chip's lookups read.
type tableConfig struct {
	dense, spread circuit.TableColumn
}

func configureTable(cs *circuit.ConstraintSystem) tableConfig {
	return tableConfig{
		dense:  cs.LookupTableColumn(),
		spread: cs.LookupTableColumn(),
	}
}

// lookupLimbs declares a (dense, spread) lookup on a limb column pair. It
// applies on every row: rows that hold no limb carry (0, 0), which is the
// first table row.
func (tc tableConfig) lookupLimbs(cs *circuit.ConstraintSystem, name string, dense, spreadCol circuit.Column) {
	cs.Lookup(name, func(q *circuit.Query) []circuit.LookupInput {
		return []circuit.LookupInput{
			{Input: q.Advice(dense, 0), Table: tc.dense},
			{Input: q.Advice(spreadCol, 0), Table: tc.spread},
		}
	})
}

// lookupPieces range checks num where the piece columns are set: num*on
// must be a 16-bit value and so must num*shift. Elsewhere both inputs are
// zero.
func (tc tableConfig) lookupPieces(cs *circuit.ConstraintSystem, num, on, shift circuit.Column) {
	cs.Lookup("piece", func(q *circuit.Query) []circuit.LookupInput {
		return []circuit.LookupInput{{Input: circuit.Mul(q.Advice(num, 0), q.Fixed(on, 0)), Table: tc.dense}}
	})
	cs.Lookup("piece width", func(q *circuit.Query) []circuit.LookupInput {
		return []circuit.LookupInput{{Input: circuit.Mul(q.Advice(num, 0), q.Fixed(shift, 0)), Table: tc.dense}}
	})
}

func (tc tableConfig) load(l *circuit.Layouter, t *SpreadTable) error {
	return l.AssignTable("spread table",
		[]circuit.TableColumn{tc.dense, tc.spread},
		[][]fr.Element{t.Dense, t.Spread})
}
