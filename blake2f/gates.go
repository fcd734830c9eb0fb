package blake2f

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/eth2030/blake2f/circuit"
)

// composeDense returns sum(dense[rot+i] * 2^(16i)), the word whose limbs
// sit in the four rows starting at rot.
func composeDense(q *circuit.Query, col circuit.Column, rot int) circuit.Expression {
	terms := make([]circuit.Expression, rowsPerLane)
	for i := range terms {
		terms[i] = circuit.Scale(q.Advice(col, rot+i), circuit.Pow2(uint(limbBits*i)))
	}
	return circuit.Sum(terms...)
}

// composeSpread returns sum(spread[rot+i] * 2^(32i)), the 128-bit spread
// word whose limbs sit in the four rows starting at rot.
func composeSpread(q *circuit.Query, col circuit.Column, rot int) circuit.Expression {
	terms := make([]circuit.Expression, rowsPerLane)
	for i := range terms {
		terms[i] = circuit.Scale(q.Advice(col, rot+i), circuit.Pow2(uint(2*limbBits*i)))
	}
	return circuit.Sum(terms...)
}

func constant(v uint64) fr.Element { return circuit.NewElement(v) }

// configureDecompose ties a word in num to its four looked-up limbs.
func (c *Chip) configureDecompose(cs *circuit.ConstraintSystem) {
	cols := c.cols
	cs.CreateGate("decompose", c.sel.decompose, func(q *circuit.Query) []circuit.Constraint {
		return []circuit.Constraint{{
			Name: "num = dense limbs",
			Poly: circuit.Sub(q.Advice(cols.Num, 0), composeDense(q, cols.Dense, 0)),
		}}
	})
}

// configureScheduler declares the XOR of v12..v14 with the counters and
// the flag. The gate sits on the updated word; the old word is 24 rows up
// and the counter 12 rows up. Both spread words on the left are looked up
// limb by limb, so the even and odd bits of the sum are pinned down.
func (c *Chip) configureScheduler(cs *circuit.ConstraintSystem) {
	cols := c.cols
	cs.CreateGate("init xor", c.sel.initXor, func(q *circuit.Query) []circuit.Constraint {
		lhs := circuit.Sum(
			composeSpread(q, cols.Spread, 0),
			circuit.Scale(composeSpread(q, cols.OddSpread, 0), constant(2)),
		)
		rhs := circuit.Sum(
			composeSpread(q, cols.Spread, -6*rowsPerLane),
			composeSpread(q, cols.Spread, -3*rowsPerLane),
		)
		return []circuit.Constraint{{Name: "even + 2*odd = old + counter", Poly: circuit.Sub(lhs, rhs)}}
	})
}

// configureRounds declares the round state machine and the per-lane gates.
func (c *Chip) configureRounds(cs *circuit.ConstraintSystem) {
	cols := c.cols
	one := circuit.One()

	cs.CreateGate("round", c.sel.round, func(q *circuit.Query) []circuit.Constraint {
		s := q.Advice(cols.SRound, 0)
		round := q.Advice(cols.Round, 0)
		sPrev := q.Advice(cols.SRound, -rowsPerBlock)
		roundPrev := q.Advice(cols.Round, -rowsPerBlock)
		return []circuit.Constraint{
			{Name: "s_round is boolean", Poly: circuit.Mul(s, circuit.Sub(one, s))},
			{Name: "active follows active", Poly: circuit.Mul(s, circuit.Sub(one, sPrev))},
			{Name: "active increments round", Poly: circuit.Mul(s, circuit.Sub(circuit.Sub(round, roundPrev), one))},
			{Name: "inactive keeps round", Poly: circuit.Mul(circuit.Sub(one, s), circuit.Sub(roundPrev, round))},
		}
	})

	cs.CreateGate("round continuity", c.sel.roundContinuity, func(q *circuit.Query) []circuit.Constraint {
		return []circuit.Constraint{
			{Name: "s_round", Poly: circuit.Sub(q.Advice(cols.SRound, 0), q.Advice(cols.SRound, -rowsPerLane))},
			{Name: "round", Poly: circuit.Sub(q.Advice(cols.Round, 0), q.Advice(cols.Round, -rowsPerLane))},
		}
	})

	cs.CreateGate("pass through", c.sel.passThrough, func(q *circuit.Query) []circuit.Constraint {
		s := q.Advice(cols.SRound, 0)
		return []circuit.Constraint{{
			Name: "inactive copies lane",
			Poly: circuit.Mul(circuit.Sub(one, s), circuit.Sub(q.Advice(cols.Num, -rowsPerSubRound), q.Advice(cols.Num, 0))),
		}}
	})

	for sub := 0; sub < subRounds; sub++ {
		for lane := 0; lane < stateWords; lane++ {
			rule := laneRuleFor(sub, lane)
			if _, ok := c.sel.lane[rule]; ok {
				continue
			}
			sel := cs.Selector()
			c.sel.lane[rule] = sel
			switch rule.op {
			case opAddMessage, opAdd:
				c.configureAdd(cs, sel, rule)
			case opXorRotate:
				c.configureXorRotate(cs, sel, rule)
			}
		}
	}
}

// configureAdd declares s_round * (new + carry*2^64 - old - rhs - m) = 0
// with carry in {0, 1, 2}. The message word sits one row below the lane
// and the carry two rows below.
func (c *Chip) configureAdd(cs *circuit.ConstraintSystem, sel circuit.Selector, rule laneRule) {
	cols := c.cols
	cs.CreateGate(rule.String(), sel, func(q *circuit.Query) []circuit.Constraint {
		sum := circuit.Sum(
			q.Advice(cols.Num, -rowsPerSubRound),
			q.Advice(cols.Num, rule.offset*rowsPerLane),
		)
		if rule.op == opAddMessage {
			sum = circuit.Sum(sum, q.Advice(cols.Num, 1))
		}
		lhs := circuit.Sum(
			q.Advice(cols.Num, 0),
			circuit.Scale(q.Advice(cols.Num, 2), circuit.Pow2(64)),
		)
		s := q.Advice(cols.SRound, 0)
		carry := q.Advice(cols.Num, 2)
		carryRange := circuit.Mul(carry, circuit.Mul(
			circuit.Sub(carry, circuit.One()),
			circuit.Sub(carry, circuit.ConstantUint64(2)),
		))
		return []circuit.Constraint{
			{Name: "new + carry*2^64 = old + rhs", Poly: circuit.Mul(s, circuit.Sub(lhs, sum))},
			{Name: "carry in {0,1,2}", Poly: circuit.Mul(s, carryRange)},
		}
	})
}

// configureXorRotate declares the XOR/rotate identities. x = old ^ rhs and
// the AND word sit in their own limb columns:
//
//	spread(x) + 2*spread(and) = spread(old) + spread(rhs)
//	new                       = x >>> R, over the dense limbs of x
//
// When R is not a multiple of 16 the limb it falls in is cut into a low
// and a high piece, kept in the two num rows under the lane.
func (c *Chip) configureXorRotate(cs *circuit.ConstraintSystem, sel circuit.Selector, rule laneRule) {
	cols := c.cols
	if rule.rotate == 0 || rule.rotate >= 64 {
		panic(fmt.Sprintf("blake2f: rotation %d out of range", rule.rotate))
	}
	limb, width := rotationSplit(rule.rotate)
	cs.CreateGate(rule.String(), sel, func(q *circuit.Query) []circuit.Constraint {
		s := q.Advice(cols.SRound, 0)
		low := q.Advice(cols.Num, 1)
		high := q.Advice(cols.Num, 2)

		unrotated := circuit.Sum(
			composeSpread(q, cols.XorSpread, 0),
			circuit.Scale(composeSpread(q, cols.OddSpread, 0), constant(2)),
		)
		operands := circuit.Sum(
			composeSpread(q, cols.Spread, -rowsPerSubRound),
			composeSpread(q, cols.Spread, rule.offset*rowsPerLane),
		)
		rotated := rotateLimbs(q, cols.XorDense, low, high, rule.rotate)
		out := []circuit.Constraint{
			{Name: "xor", Poly: circuit.Mul(s, circuit.Sub(unrotated, operands))},
			{Name: "rotate", Poly: circuit.Mul(s, circuit.Sub(composeDense(q, cols.Dense, 0), rotated))},
		}
		if width != 0 {
			pieces := circuit.Sum(low, circuit.Scale(high, circuit.Pow2(width)))
			out = append(out, circuit.Constraint{
				Name: "pieces",
				Poly: circuit.Mul(s, circuit.Sub(q.Advice(cols.XorDense, limb), pieces)),
			})
		}
		return out
	})
}

// rotateLimbs returns x >>> rotate from the dense limbs of x starting at
// rotation 0 of col. The limb the rotation cuts is replaced by its low and
// high pieces; every other segment moves whole.
func rotateLimbs(q *circuit.Query, col circuit.Column, low, high circuit.Expression, rotate uint) circuit.Expression {
	type segment struct {
		e   circuit.Expression
		pos uint
	}
	limb, width := rotationSplit(rotate)
	var segs []segment
	for i := 0; i < rowsPerLane; i++ {
		pos := uint(i * limbBits)
		if i == limb && width != 0 {
			segs = append(segs, segment{low, pos}, segment{high, pos + width})
			continue
		}
		segs = append(segs, segment{q.Advice(col, i), pos})
	}
	terms := make([]circuit.Expression, len(segs))
	for i, sg := range segs {
		terms[i] = circuit.Scale(sg.e, circuit.Pow2((sg.pos+64-rotate)%64))
	}
	return circuit.Sum(terms...)
}

// configureDigest declares h' = h ^ v[i] ^ v[i+8] as
// spread(h) + spread(v[i]) + spread(v[i+8]) = spread(h') + 2*spread(maj).
// h is the block 0 replay of the chaining value; v[i] and v[i+8] are lanes
// of the last sub-round.
func (c *Chip) configureDigest(cs *circuit.ConstraintSystem) {
	cols := c.cols
	cs.CreateGate("digest", c.sel.digest, func(q *circuit.Query) []circuit.Constraint {
		lhs := circuit.Sum(
			composeSpread(q, cols.Spread, -digestOffset),
			composeSpread(q, cols.Spread, -rowsPerSubRound),
			composeSpread(q, cols.Spread, -digestWords*rowsPerLane),
		)
		rhs := circuit.Sum(
			composeSpread(q, cols.Spread, 0),
			circuit.Scale(composeSpread(q, cols.OddSpread, 0), constant(2)),
		)
		return []circuit.Constraint{{Name: "h ^ v[i] ^ v[i+8]", Poly: circuit.Sub(lhs, rhs)}}
	})
}
