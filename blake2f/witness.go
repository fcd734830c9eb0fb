package blake2f

import (
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/holiman/uint256"

	"github.com/eth2030/blake2f/circuit"
	"github.com/eth2030/blake2f/spread"
)

// Input is one BLAKE2b compression F call, in the shape of the EIP-152
// precompile arguments.
type Input struct {
	Rounds uint32
	H      [8]uint64
	M      [16]uint64
	T      [2]uint64
	Final  bool
}

// FinalFlag returns the word XORed into v14: all ones for the last block,
// zero otherwise.
func FinalFlag(final bool) uint64 {
	if final {
		return ^uint64(0)
	}
	return 0
}

// Witness carries the compression arguments into synthesis. Any field may
// be unknown, in which case only the circuit structure is recorded.
type Witness struct {
	H      [8]circuit.Value[uint64]
	M      [16]circuit.Value[uint64]
	C0, C1 circuit.Value[uint64]
	Flag   circuit.Value[uint64]
	Rounds circuit.Value[uint64]
}

// KnownWitness wraps a concrete input.
func KnownWitness(in Input) Witness {
	var w Witness
	for i, h := range in.H {
		w.H[i] = circuit.Known(h)
	}
	for i, m := range in.M {
		w.M[i] = circuit.Known(m)
	}
	w.C0 = circuit.Known(in.T[0])
	w.C1 = circuit.Known(in.T[1])
	w.Flag = circuit.Known(FinalFlag(in.Final))
	w.Rounds = circuit.Known(uint64(in.Rounds))
	return w
}

// UnknownWitness returns a witness with nothing known, for shape-only
// synthesis.
func UnknownWitness() Witness {
	return Witness{}
}

// plain returns the concrete arguments when every field is known.
func (w *Witness) plain() (m [16]uint64, rounds uint64, ok bool) {
	for i := range w.M {
		if m[i], ok = w.M[i].Get(); !ok {
			return m, 0, false
		}
	}
	rounds, ok = w.Rounds.Get()
	return m, rounds, ok
}

// laneWitness is the plain computation behind one lane of one sub-round:
// its operands, its result and the auxiliary values its gate checks.
type laneWitness struct {
	old, rhs, msg uint64
	value         uint64
	carry         uint64
	// x is old ^ rhs before the rotation and odd is old & rhs, the word
	// read from the odd bits of spread(old) + spread(rhs).
	x, odd uint64
	// low and high are the pieces of the limb of x the rotation cuts.
	low, high uint64
}

type roundWitness [subRounds][stateWords]laneWitness

// computeRounds runs the first n rounds on v, one sub-round at a time,
// recording every lane. Each lane is evaluated from the rule the trace
// constrains it with.
func computeRounds(v [stateWords]uint64, m *[16]uint64, n int) []roundWitness {
	out := make([]roundWitness, n)
	for r := 0; r < n; r++ {
		for s := 0; s < subRounds; s++ {
			prev := v
			for _, lane := range laneOrder {
				rule := laneRuleFor(s, lane)
				w := &out[r][s][lane]
				w.old = prev[lane]
				if src := lane + rule.offset; src < 0 {
					w.rhs = prev[src+stateWords]
				} else {
					w.rhs = v[src]
				}
				switch rule.op {
				case opAddMessage:
					w.msg = m[messageIndex(r, s, lane)]
					sum, c0 := bits.Add64(w.old, w.rhs, 0)
					sum, c1 := bits.Add64(sum, w.msg, 0)
					w.value, w.carry = sum, c0+c1
				case opAdd:
					w.value, w.carry = bits.Add64(w.old, w.rhs, 0)
				case opXorRotate:
					o := spread.SpreadOddFromXor(w.old, w.rhs)
					w.x, w.odd = w.old^w.rhs, spread.Compact128(&o)
					w.value = bits.RotateLeft64(w.x, -int(rule.rotate))
					w.low, w.high = splitPieces(w.x, rule.rotate)
				}
				v[lane] = w.value
			}
		}
	}
	return out
}

// initialState lays out v0..v15 before the first round.
func initialState(h [8]uint64, c0, c1, flag uint64) [stateWords]uint64 {
	var v [stateWords]uint64
	copy(v[:8], h[:])
	copy(v[8:], iv[:])
	v[12] ^= c0
	v[13] ^= c1
	v[14] ^= flag
	return v
}

// consistent reports whether the lane satisfies the identities its gate
// enforces, evaluated in the field for additions and over spread words for
// XOR. The rotation is checked through the spread split of x.
func (w *laneWitness) consistent(rule laneRule) bool {
	switch rule.op {
	case opAddMessage, opAdd:
		var lhs, rhs, t fr.Element
		two64 := circuit.Pow2(64)
		lhs = circuit.NewElement(w.carry)
		lhs.Mul(&lhs, &two64)
		t = circuit.NewElement(w.value)
		lhs.Add(&lhs, &t)
		rhs = circuit.NewElement(w.old)
		t = circuit.NewElement(w.rhs)
		rhs.Add(&rhs, &t)
		t = circuit.NewElement(w.msg)
		rhs.Add(&rhs, &t)
		return lhs.Equal(&rhs) && w.carry <= 2
	default:
		so := spread.Spread64(w.odd)
		if !spreadSumConsistent(w.x, &so, w.old, w.rhs) {
			return false
		}
		lo, hi := spread.SpreadEvenFromXor(w.old, w.rhs, rule.rotate)
		joined, rotated := spread.Join(&lo, &hi, rule.rotate), spread.Rotate(&lo, &hi, rule.rotate)
		sx, sv := spread.Spread64(w.x), spread.Spread64(w.value)
		low, high := splitPieces(w.x, rule.rotate)
		return joined.Eq(&sx) && rotated.Eq(&sv) && w.low == low && w.high == high
	}
}

// spreadSumConsistent checks that the spread forms of the operands add up
// to spread(out) + 2*odd, the identity behind every XOR in the trace.
func spreadSumConsistent(out uint64, odd *uint256.Int, operands ...uint64) bool {
	var lhs uint256.Int
	for _, x := range operands {
		sx := spread.Spread64(x)
		lhs.Add(&lhs, &sx)
	}
	so := spread.Spread64(out)
	var rhs uint256.Int
	rhs.Lsh(odd, 1)
	rhs.Add(&rhs, &so)
	return lhs.Eq(&rhs)
}
