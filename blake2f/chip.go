// Package blake2f arithmetizes the BLAKE2b compression function F over the
// circuit substrate. XOR and rotation are checked with spread encodings
// backed by a 16-bit lookup table; additions carry an explicit witness.
// Every trace holds MaxRounds round blocks and a per-row s_round flag
// switches the blocks past the requested round count into pass-through.
package blake2f

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/eth2030/blake2f/circuit"
	"github.com/eth2030/blake2f/log"
	"github.com/eth2030/blake2f/spread"
)

// ErrTooManyRounds is returned when more than MaxRounds rounds are
// requested. Nothing is written to the trace in that case.
var ErrTooManyRounds = errors.New("blake2f: rounds exceed maximum")

// Columns are the trace columns the chip lays words out in.
type Columns struct {
	// Num holds state words and their auxiliary witnesses.
	Num circuit.Column
	// Round holds the round counter on lane rows; in the scheduler it
	// holds rounds and the message words.
	Round  circuit.Column
	SRound circuit.Column
	Dense  circuit.Column
	Spread circuit.Column
	// XorDense and XorSpread hold the limbs of old ^ rhs on XOR lanes.
	XorDense  circuit.Column
	XorSpread circuit.Column
	// OddDense and OddSpread hold the limbs of the AND word on every XOR:
	// old & rhs on lanes and in the scheduler, maj(h, a, b) on digest rows.
	OddDense  circuit.Column
	OddSpread circuit.Column
	// Constants holds the IV and the constants pool.
	Constants circuit.Column
	// PieceOn and PieceShift range check the two pieces of a limb cut by
	// a rotation: a piece p of width w is in the table both as p and as
	// p * 2^(16-w).
	PieceOn    circuit.Column
	PieceShift circuit.Column
}

type selectors struct {
	decompose       circuit.Selector
	initXor         circuit.Selector
	round           circuit.Selector
	roundContinuity circuit.Selector
	passThrough     circuit.Selector
	digest          circuit.Selector
	lane            map[laneRule]circuit.Selector
}

// Chip holds the configured columns, selectors and lookup of one
// constraint system.
type Chip struct {
	cols  Columns
	table tableConfig
	sel   selectors
	log   *log.Logger
}

// Configure declares the chip's columns, lookup and gates in cs.
func Configure(cs *circuit.ConstraintSystem) *Chip {
	c := &Chip{
		cols: Columns{
			Num:       cs.AdviceColumn(),
			Round:     cs.AdviceColumn(),
			SRound:    cs.AdviceColumn(),
			Dense:      cs.AdviceColumn(),
			Spread:     cs.AdviceColumn(),
			XorDense:   cs.AdviceColumn(),
			XorSpread:  cs.AdviceColumn(),
			OddDense:   cs.AdviceColumn(),
			OddSpread:  cs.AdviceColumn(),
			Constants:  cs.FixedColumn(),
			PieceOn:    cs.FixedColumn(),
			PieceShift: cs.FixedColumn(),
		},
		log: log.Nop(),
	}
	cs.EnableEquality(c.cols.Num)
	cs.EnableEquality(c.cols.Round)
	cs.EnableEquality(c.cols.SRound)
	cs.EnableConstant(c.cols.Constants)

	c.sel = selectors{
		decompose:       cs.Selector(),
		initXor:         cs.Selector(),
		round:           cs.Selector(),
		roundContinuity: cs.Selector(),
		passThrough:     cs.Selector(),
		digest:          cs.Selector(),
		lane:            make(map[laneRule]circuit.Selector),
	}
	c.table = configureTable(cs)
	c.table.lookupLimbs(cs, "spread", c.cols.Dense, c.cols.Spread)
	c.table.lookupLimbs(cs, "xor spread", c.cols.XorDense, c.cols.XorSpread)
	c.table.lookupLimbs(cs, "odd spread", c.cols.OddDense, c.cols.OddSpread)
	c.table.lookupPieces(cs, c.cols.Num, c.cols.PieceOn, c.cols.PieceShift)
	c.configureDecompose(cs)
	c.configureScheduler(cs)
	c.configureRounds(cs)
	c.configureDigest(cs)
	return c
}

// Columns returns the chip's columns.
func (c *Chip) Columns() Columns { return c.cols }

// SetLogger replaces the chip's logger.
func (c *Chip) SetLogger(l *log.Logger) {
	if l != nil {
		c.log = l.Module("blake2f")
	}
}

// Load installs the spread table. It must run before Compress.
func (c *Chip) Load(l *circuit.Layouter, t *SpreadTable) error {
	if t == nil {
		t = SharedSpreadTable()
	}
	return c.table.load(l, t)
}

// Compress lays out one compression: the scheduler region followed by the
// round and digest region. It returns the digest words, unknown when the
// witness is.
func (c *Chip) Compress(l *circuit.Layouter, w Witness) ([8]circuit.Value[uint64], error) {
	var digest [8]circuit.Value[uint64]
	if r, ok := w.Rounds.Get(); ok && r > MaxRounds {
		return digest, fmt.Errorf("%w: %d > %d", ErrTooManyRounds, r, MaxRounds)
	}
	init, err := c.initialize(l, &w)
	if err != nil {
		return digest, err
	}
	return c.compress(l, init, &w)
}

// Word is a 64-bit word committed in the num column.
type Word struct {
	Cell  circuit.AssignedCell
	Value circuit.Value[uint64]
}

func toElement(v circuit.Value[uint64]) circuit.Value[fr.Element] {
	return circuit.Map(v, circuit.NewElement)
}

// assignWord writes v into num at row. With limbs set, the four 16-bit
// limbs and their spread forms go into rows row..row+3 of dense and
// spread, where the lookup checks them.
func (c *Chip) assignWord(r *circuit.Region, row int, v circuit.Value[uint64], limbs bool) (Word, error) {
	cell, err := r.AssignAdvice(c.cols.Num, row, toElement(v))
	if err != nil {
		return Word{}, err
	}
	if limbs {
		if err := c.assignLimbs(r, row, v); err != nil {
			return Word{}, err
		}
	}
	return Word{Cell: cell, Value: v}, nil
}

// copyWord assigns src into num at row with a copy constraint, plus limbs.
func (c *Chip) copyWord(r *circuit.Region, row int, src Word) (Word, error) {
	cell, err := r.CopyAdvice(c.cols.Num, row, src.Cell)
	if err != nil {
		return Word{}, err
	}
	if err := c.assignLimbs(r, row, src.Value); err != nil {
		return Word{}, err
	}
	return Word{Cell: cell, Value: src.Value}, nil
}

func (c *Chip) assignLimbs(r *circuit.Region, row int, v circuit.Value[uint64]) error {
	return assignLimbsIn(r, c.cols.Dense, c.cols.Spread, row, v)
}

// assignLimbsIn writes the limbs of v into a (dense, spread) column pair.
func assignLimbsIn(r *circuit.Region, denseCol, spreadCol circuit.Column, row int, v circuit.Value[uint64]) error {
	for i := 0; i < rowsPerLane; i++ {
		limb := circuit.Map(v, func(x uint64) uint16 { return uint16(x >> (limbBits * i)) })
		dense := circuit.Map(limb, func(l uint16) fr.Element { return circuit.NewElement(uint64(l)) })
		spr := circuit.Map(limb, func(l uint16) fr.Element { return circuit.NewElement(uint64(spread.Spread16(l))) })
		if _, err := r.AssignAdvice(denseCol, row+i, dense); err != nil {
			return err
		}
		if _, err := r.AssignAdvice(spreadCol, row+i, spr); err != nil {
			return err
		}
	}
	return nil
}
