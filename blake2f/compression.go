package blake2f

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/eth2030/blake2f/circuit"
	"github.com/eth2030/blake2f/spread"
)

// blockMode says how a round block is filled in.
type blockMode uint8

const (
	modeUnknown blockMode = iota
	modeActive
	modeInactive
)

// compress lays out the round and digest region:
//
//	block 0          the initialized state replayed four times
//	blocks 1..12     one round each, active or pass-through
//	rows 3328..3359  the eight digest words
//
// Every block enables the same selectors whatever the witness, so the
// fixed part of the trace does not depend on the round count.
func (c *Chip) compress(l *circuit.Layouter, init *InitializedState, w *Witness) ([8]circuit.Value[uint64], error) {
	var digest [8]circuit.Value[uint64]

	var vals [stateWords]circuit.Value[uint64]
	plainState := [stateWords]uint64{}
	stateKnown := true
	for i, word := range init.State {
		vals[i] = word.Value
		v, ok := word.Value.Get()
		plainState[i] = v
		stateKnown = stateKnown && ok
	}
	if h, ok := knownWords(w.H[:]); ok {
		c0, ok0 := w.C0.Get()
		c1, ok1 := w.C1.Get()
		flag, ok2 := w.Flag.Get()
		if ok0 && ok1 && ok2 && stateKnown {
			if want := initialState([8]uint64(h), c0, c1, flag); want != plainState {
				panic(fmt.Sprintf("blake2f: initialized state %x, want %x", plainState, want))
			}
		}
	}

	var witness []roundWitness
	m, rounds, known := w.plain()
	known = known && stateKnown
	if known {
		witness = computeRounds(plainState, &m, int(rounds))
	}

	err := l.AssignRegion("compression", func(r *circuit.Region) error {
		zero := circuit.NewElement(0)
		one := circuit.NewElement(1)

		// Block 0: replay the state so the first round can reach its old
		// values and limbs at fixed offsets.
		for k := 0; k < lanesPerBlock; k++ {
			row := k * rowsPerLane
			src := init.State[k%stateWords]
			if _, err := c.copyWord(r, row, src); err != nil {
				return err
			}
			if err := r.EnableSelector(c.sel.decompose, row); err != nil {
				return err
			}
			if _, err := r.AssignAdviceFromConstant(c.cols.Round, row, zero); err != nil {
				return err
			}
			if _, err := r.AssignAdviceFromConstant(c.cols.SRound, row, one); err != nil {
				return err
			}
		}

		var lastRound circuit.AssignedCell
		for b := 1; b <= MaxRounds; b++ {
			round := b - 1
			mode := modeUnknown
			if known {
				mode = modeInactive
				if uint64(round) < rounds {
					mode = modeActive
				}
			}
			roundValue, sRoundValue := roundCells(mode, round, w.Rounds)

			for s := 0; s < subRounds; s++ {
				next := vals
				for lane := 0; lane < stateWords; lane++ {
					row := laneRow(b, s, lane)
					rule := laneRuleFor(s, lane)
					if err := c.enableLane(r, row, rule, s == 0 && lane == 0); err != nil {
						return err
					}
					if rule.op == opAddMessage {
						idx := messageIndex(round, s, lane)
						if _, err := r.CopyAdvice(c.cols.Num, row+1, init.M[idx]); err != nil {
							return err
						}
					}

					var aux [3]circuit.Value[fr.Element]
					var x, odd circuit.Value[uint64]
					switch mode {
					case modeActive:
						lw := &witness[round][s][lane]
						circuit.Known(lw).AssertIfKnown(func(lw *laneWitness) bool {
							return lw.consistent(rule)
						}, fmt.Sprintf("round %d sub-round %d lane %d", round, s, lane))
						next[lane] = circuit.Known(lw.value)
						aux = laneAux(rule, lw)
						x, odd = circuit.Known(lw.x), circuit.Known(lw.odd)
					case modeInactive:
						next[lane] = vals[lane]
						for i := range aux {
							aux[i] = circuit.Known(zero)
						}
						x, odd = circuit.Known[uint64](0), circuit.Known[uint64](0)
					default:
						next[lane] = circuit.Unknown[uint64]()
						x, odd = circuit.Unknown[uint64](), circuit.Unknown[uint64]()
					}

					if _, err := c.assignWord(r, row, next[lane], true); err != nil {
						return err
					}
					for i, v := range aux {
						if i == 0 && rule.op == opAddMessage {
							continue
						}
						if _, err := r.AssignAdvice(c.cols.Num, row+1+i, v); err != nil {
							return err
						}
					}
					if rule.op == opXorRotate {
						if err := c.assignXor(r, row, rule, x, odd); err != nil {
							return err
						}
					}
					cell, err := r.AssignAdvice(c.cols.Round, row, roundValue)
					if err != nil {
						return err
					}
					lastRound = cell
					if _, err := r.AssignAdvice(c.cols.SRound, row, sRoundValue); err != nil {
						return err
					}
				}
				vals = next
			}
		}
		if err := r.ConstrainEqual(lastRound.Cell, init.Rounds.Cell); err != nil {
			return err
		}

		for i := 0; i < digestWords; i++ {
			row := digestOffset + i*rowsPerLane
			parts := circuit.Map3(init.State[i].Value, vals[i], vals[i+8], func(h, a, b uint64) [3]uint64 {
				return [3]uint64{h, a, b}
			})
			out := circuit.Map(parts, func(p [3]uint64) uint64 { return p[0] ^ p[1] ^ p[2] })
			maj := circuit.Map(parts, func(p [3]uint64) uint64 {
				o := spread.SpreadOddFromThreeXor(p[0], p[1], p[2])
				return spread.Compact128(&o)
			})
			parts.AssertIfKnown(func(p [3]uint64) bool {
				o := spread.SpreadOddFromThreeXor(p[0], p[1], p[2])
				return spreadSumConsistent(p[0]^p[1]^p[2], &o, p[0], p[1], p[2])
			}, fmt.Sprintf("digest word %d", i))
			if _, err := c.assignWord(r, row, out, true); err != nil {
				return err
			}
			if err := assignLimbsIn(r, c.cols.OddDense, c.cols.OddSpread, row, maj); err != nil {
				return err
			}
			if err := r.EnableSelector(c.sel.decompose, row); err != nil {
				return err
			}
			if err := r.EnableSelector(c.sel.digest, row); err != nil {
				return err
			}
			digest[i] = out
		}
		return nil
	})
	if err != nil {
		return digest, err
	}
	c.log.Debug("compression laid out", "rows", CompressionRows, "witness", known)
	return digest, nil
}

// roundCells returns the round counter and s_round values for every lane
// of a block. Pass-through blocks hold the requested round count, which
// the final copy constraint compares against the scheduler's cell.
func roundCells(mode blockMode, round int, rounds circuit.Value[uint64]) (circuit.Value[fr.Element], circuit.Value[fr.Element]) {
	switch mode {
	case modeActive:
		return circuit.Known(circuit.NewElement(uint64(round + 1))), circuit.Known(circuit.NewElement(1))
	case modeInactive:
		return toElement(rounds), circuit.Known(circuit.NewElement(0))
	default:
		return circuit.Unknown[fr.Element](), circuit.Unknown[fr.Element]()
	}
}

// enableLane switches on the gates every round-block lane carries.
func (c *Chip) enableLane(r *circuit.Region, row int, rule laneRule, firstInBlock bool) error {
	sels := []circuit.Selector{c.sel.decompose, c.sel.round, c.sel.passThrough, c.sel.lane[rule]}
	if !firstInBlock {
		sels = append(sels, c.sel.roundContinuity)
	}
	for _, s := range sels {
		if err := r.EnableSelector(s, row); err != nil {
			return err
		}
	}
	return nil
}

// laneAux returns the values for the three num rows under an active lane:
// (m, carry, 0) for additions, where the message row is copied separately,
// and (low, high, 0) for XOR/rotate.
func laneAux(rule laneRule, lw *laneWitness) [3]circuit.Value[fr.Element] {
	if rule.op == opXorRotate {
		return [3]circuit.Value[fr.Element]{
			circuit.Known(circuit.NewElement(lw.low)),
			circuit.Known(circuit.NewElement(lw.high)),
			circuit.Known(circuit.NewElement(0)),
		}
	}
	return [3]circuit.Value[fr.Element]{
		circuit.Known(circuit.NewElement(0)),
		circuit.Known(circuit.NewElement(lw.carry)),
		circuit.Known(circuit.NewElement(0)),
	}
}

// assignXor writes the limbs of x and of the AND word of an XOR lane and,
// when the rotation cuts a limb, switches on the range checks of the two
// pieces in num.
func (c *Chip) assignXor(r *circuit.Region, row int, rule laneRule, x, odd circuit.Value[uint64]) error {
	if err := assignLimbsIn(r, c.cols.XorDense, c.cols.XorSpread, row, x); err != nil {
		return err
	}
	if err := assignLimbsIn(r, c.cols.OddDense, c.cols.OddSpread, row, odd); err != nil {
		return err
	}
	_, width := rotationSplit(rule.rotate)
	if width == 0 {
		return nil
	}
	one := circuit.NewElement(1)
	for i, w := range [2]uint{width, limbBits - width} {
		if _, err := r.AssignFixed(c.cols.PieceOn, row+1+i, one); err != nil {
			return err
		}
		if _, err := r.AssignFixed(c.cols.PieceShift, row+1+i, circuit.Pow2(limbBits-w)); err != nil {
			return err
		}
	}
	return nil
}

func knownWords(vs []circuit.Value[uint64]) ([]uint64, bool) {
	out := make([]uint64, len(vs))
	for i, v := range vs {
		x, ok := v.Get()
		if !ok {
			return nil, false
		}
		out[i] = x
	}
	return out, true
}
