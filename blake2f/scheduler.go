package blake2f

import (
	"github.com/eth2030/blake2f/circuit"
	"github.com/eth2030/blake2f/spread"
)

// InitializedState is the scheduler's output: v0..v15 before the first
// round, plus the committed round count and message words the round
// blocks copy from.
type InitializedState struct {
	State  [stateWords]Word
	Rounds circuit.AssignedCell
	M      [16]circuit.AssignedCell
}

// initialize lays out the scheduler region:
//
//	constants rows 0..7   IV
//	round row 0           rounds
//	round rows 1..16      m[0..15]
//	num rows 0..12        v0..v11, v15 (no limbs)
//	lanes at 13, 17, 21   IV[4..6], the old v12..v14
//	lanes at 25, 29, 33   c0, c1, flag
//	lanes at 37, 41, 45   v12..v14 after the XOR, AND word limbs beside
func (c *Chip) initialize(l *circuit.Layouter, w *Witness) (*InitializedState, error) {
	st := new(InitializedState)
	err := l.AssignRegion("scheduler", func(r *circuit.Region) error {
		var ivCells [8]circuit.AssignedCell
		for i, v := range iv {
			cell, err := r.AssignFixed(c.cols.Constants, i, circuit.NewElement(v))
			if err != nil {
				return err
			}
			ivCells[i] = cell
		}

		var err error
		if st.Rounds, err = r.AssignAdvice(c.cols.Round, 0, toElement(w.Rounds)); err != nil {
			return err
		}
		for i := range w.M {
			if st.M[i], err = r.AssignAdvice(c.cols.Round, 1+i, toElement(w.M[i])); err != nil {
				return err
			}
		}

		// v0..v7 = h, v8..v11 = IV[0..3], v15 = IV[7].
		plain := make([]circuit.Value[uint64], 0, schedPlainWords)
		plain = append(plain, w.H[:]...)
		for _, v := range iv[:4] {
			plain = append(plain, circuit.Known(v))
		}
		plain = append(plain, circuit.Known(iv[7]))
		words := make([]Word, schedPlainWords)
		for i, v := range plain {
			if words[i], err = c.assignWord(r, i, v, false); err != nil {
				return err
			}
		}
		for i := 0; i < 8; i++ {
			st.State[i] = words[i]
		}
		for i := 0; i < 4; i++ {
			st.State[8+i] = words[8+i]
			if err := r.ConstrainEqual(words[8+i].Cell.Cell, ivCells[i].Cell); err != nil {
				return err
			}
		}
		st.State[15] = words[12]
		if err := r.ConstrainEqual(words[12].Cell.Cell, ivCells[7].Cell); err != nil {
			return err
		}

		counters := [3]circuit.Value[uint64]{w.C0, w.C1, w.Flag}
		for i := 0; i < 3; i++ {
			oldRow := schedOldV12 + i*rowsPerLane
			old, err := c.assignWord(r, oldRow, circuit.Known(iv[4+i]), true)
			if err != nil {
				return err
			}
			if err := r.EnableSelector(c.sel.decompose, oldRow); err != nil {
				return err
			}
			if err := r.ConstrainEqual(old.Cell.Cell, ivCells[4+i].Cell); err != nil {
				return err
			}

			ctrRow := schedCounters + i*rowsPerLane
			if _, err := c.assignWord(r, ctrRow, counters[i], true); err != nil {
				return err
			}
			if err := r.EnableSelector(c.sel.decompose, ctrRow); err != nil {
				return err
			}

			a := iv[4+i]
			newRow := schedNewV12 + i*rowsPerLane
			xored := circuit.Map(counters[i], func(b uint64) uint64 { return a ^ b })
			word, err := c.assignWord(r, newRow, xored, true)
			if err != nil {
				return err
			}
			odd := circuit.Map(counters[i], func(b uint64) uint64 {
				o := spread.SpreadOddFromXor(a, b)
				return spread.Compact128(&o)
			})
			counters[i].AssertIfKnown(func(b uint64) bool {
				o := spread.SpreadOddFromXor(a, b)
				return spreadSumConsistent(a^b, &o, a, b)
			}, "scheduler xor")
			if err := assignLimbsIn(r, c.cols.OddDense, c.cols.OddSpread, newRow, odd); err != nil {
				return err
			}
			if err := r.EnableSelector(c.sel.decompose, newRow); err != nil {
				return err
			}
			if err := r.EnableSelector(c.sel.initXor, newRow); err != nil {
				return err
			}
			st.State[12+i] = word
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Debug("state initialized", "rows", SchedulerRows)
	return st, nil
}
