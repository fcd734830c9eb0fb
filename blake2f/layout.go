package blake2f

import (
	"fmt"

	"github.com/eth2030/blake2f/circuit"
)

// Trace geometry. A lane is one 64-bit state word laid out over four rows:
// the word itself in num, its four 16-bit limbs in dense/spread, and up to
// three auxiliary witnesses in num below it. XOR lanes also hold the limbs
// of the unrotated XOR and of the AND word in their own limb columns. A sub-round writes all 16
// lanes once; a round block holds the four sub-rounds of one round.
const (
	// MaxRounds is the number of round blocks in every trace.
	MaxRounds = 12

	stateWords  = 16
	subRounds   = 4
	rowsPerLane = 4
	limbBits    = 16

	rowsPerSubRound = stateWords * rowsPerLane    // 64
	lanesPerBlock   = subRounds * stateWords      // 64
	rowsPerBlock    = lanesPerBlock * rowsPerLane // 256

	// SchedulerRows is the height of the state initialization region.
	SchedulerRows = 49

	// Block 0 replays the initialized state; blocks 1..MaxRounds hold rounds.
	compressionBlocks = MaxRounds + 1
	digestWords       = 8
	digestOffset      = compressionBlocks * rowsPerBlock

	// CompressionRows is the height of the round and digest region.
	CompressionRows = digestOffset + digestWords*rowsPerLane

	// MinRows is the smallest trace, constants pool included, that fits
	// one compression.
	MinRows = SchedulerRows + CompressionRows + circuit.ConstantRows

	// DefaultRows is the trace height used unless WithRows says otherwise.
	DefaultRows = 1 << 12
)

// Scheduler rows. v0..v11 and v15 occupy rows 0..12 without limbs. The
// old v12..v14 lanes start at row 13, c0/c1/flag at 25 and the updated
// v12..v14 at 37.
const (
	schedPlainWords = 13
	schedOldV12     = schedPlainWords
	schedCounters   = schedOldV12 + 3*rowsPerLane
	schedNewV12     = schedCounters + 3*rowsPerLane
)

// iv is the BLAKE2b initialization vector.
var iv = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b,
	0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f,
	0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

// laneOp is the operation a lane performs in a sub-round.
type laneOp uint8

const (
	opAddMessage laneOp = iota // new = old + rhs + m
	opAdd                      // new = old + rhs
	opXorRotate                // new = rotr(old ^ rhs, rotate)
)

func (o laneOp) String() string {
	switch o {
	case opAddMessage:
		return "add+m"
	case opAdd:
		return "add"
	case opXorRotate:
		return "xor"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// laneRule says how a lane is computed. offset counts lanes relative to the
// lane itself; lanes run contiguously through sub-rounds, so a negative
// offset past lane 0 lands in the previous sub-round. "old" is always the
// same lane one sub-round earlier.
type laneRule struct {
	op     laneOp
	offset int
	rotate uint
}

func (r laneRule) String() string {
	if r.op == opXorRotate {
		return fmt.Sprintf("%s(%+d)>>>%d", r.op, r.offset, r.rotate)
	}
	return fmt.Sprintf("%s(%+d)", r.op, r.offset)
}

// laneRuleFor returns the rule for lane of sub-round sub. Sub-rounds 0 and
// 1 mix columns, 2 and 3 mix diagonals; the odd sub-rounds use the second
// pair of rotation amounts.
func laneRuleFor(sub, lane int) laneRule {
	diagonal := sub >= 2
	second := sub%2 == 1
	// The last lane of each diagonal group wraps back to the start of
	// the group it reads from.
	last := lane%4 == 3

	switch {
	case lane < 4:
		switch {
		case !diagonal:
			return laneRule{op: opAddMessage, offset: -12}
		case last:
			return laneRule{op: opAddMessage, offset: -15}
		default:
			return laneRule{op: opAddMessage, offset: -11}
		}
	case lane < 8:
		rot := uint(24)
		if second {
			rot = 63
		}
		switch {
		case !diagonal:
			return laneRule{op: opXorRotate, offset: 4, rotate: rot}
		case last:
			return laneRule{op: opXorRotate, offset: 1, rotate: rot}
		default:
			return laneRule{op: opXorRotate, offset: 5, rotate: rot}
		}
	case lane < 12:
		switch {
		case !diagonal:
			return laneRule{op: opAdd, offset: 4}
		case last:
			return laneRule{op: opAdd, offset: 1}
		default:
			return laneRule{op: opAdd, offset: 5}
		}
	default:
		rot := uint(32)
		if second {
			rot = 16
		}
		switch {
		case !diagonal:
			return laneRule{op: opXorRotate, offset: -12, rotate: rot}
		case last:
			return laneRule{op: opXorRotate, offset: -15, rotate: rot}
		default:
			return laneRule{op: opXorRotate, offset: -11, rotate: rot}
		}
	}
}

// rotationSplit returns the limb of the unrotated word that the rotation
// boundary falls in and the width of the limb's low piece. width is zero
// when the rotation is a whole number of limbs.
func rotationSplit(rotate uint) (limb int, width uint) {
	return int(rotate / limbBits), rotate % limbBits
}

// splitPieces cuts the straddling limb of x at the rotation boundary.
func splitPieces(x uint64, rotate uint) (low, high uint64) {
	limb, width := rotationSplit(rotate)
	if width == 0 {
		return 0, 0
	}
	l := x >> (limbBits * limb) & (1<<limbBits - 1)
	return l & (1<<width - 1), l >> width
}

// laneOrder is the order lanes are evaluated in within a sub-round: every
// rule reads either the previous sub-round or a lane earlier in this order.
var laneOrder = [stateWords]int{0, 1, 2, 3, 12, 13, 14, 15, 8, 9, 10, 11, 4, 5, 6, 7}

// laneRow returns the row of lane within round block, relative to the
// compression region.
func laneRow(block, sub, lane int) int {
	return block*rowsPerBlock + sub*rowsPerSubRound + lane*rowsPerLane
}

// messageSchedule[r][4*sub+i] is the message word added into lane i of
// sub-round sub in round r (mod 10). Each row is the BLAKE2b sigma
// permutation regrouped by sub-round.
var messageSchedule = [10][16]int{
	{0, 2, 4, 6, 1, 3, 5, 7, 8, 10, 12, 14, 9, 11, 13, 15},
	{14, 4, 9, 13, 10, 8, 15, 6, 1, 0, 11, 5, 12, 2, 7, 3},
	{11, 12, 5, 15, 8, 0, 2, 13, 10, 3, 7, 9, 14, 6, 1, 4},
	{7, 3, 13, 11, 9, 1, 12, 14, 2, 5, 4, 15, 6, 10, 0, 8},
	{9, 5, 2, 10, 0, 7, 4, 15, 14, 11, 6, 3, 1, 12, 8, 13},
	{2, 6, 0, 8, 12, 10, 11, 3, 4, 7, 15, 1, 13, 5, 14, 9},
	{12, 1, 14, 4, 5, 15, 13, 10, 0, 6, 9, 8, 7, 3, 2, 11},
	{13, 7, 12, 3, 11, 14, 1, 9, 5, 15, 8, 2, 0, 4, 6, 10},
	{6, 14, 11, 0, 15, 9, 3, 8, 12, 13, 1, 10, 2, 7, 4, 5},
	{10, 8, 7, 1, 2, 4, 6, 5, 15, 9, 3, 13, 11, 14, 12, 0},
}

func messageIndex(round, sub, lane int) int {
	return messageSchedule[round%10][sub*4+lane]
}
