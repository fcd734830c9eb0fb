package spread

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// spreadBitsRef computes spread forms through the bit-array helpers only.
func spreadBitsRef(x uint64) uint256.Int {
	arr := Spread(ToBits(x, 64))
	var out uint256.Int
	for i, b := range arr {
		if b {
			out[i/64] |= 1 << uint(i%64)
		}
	}
	return out
}

func toBits128(v *uint256.Int) []bool {
	out := make([]bool, 128)
	for i := range out {
		out[i] = (v[i/64]>>uint(i%64))&1 == 1
	}
	return out
}

var edgeWords = []uint64{0, 1, 0xffffffffffffffff, 0x8000000000000000, 0x5555555555555555, 0xaaaaaaaaaaaaaaaa, 0x00000000ffffffff}

// ---------------------------------------------------------------------------
// Bit arrays
// ---------------------------------------------------------------------------

func TestToBitsFromBits(t *testing.T) {
	for _, x := range edgeWords {
		if got := FromBits(ToBits(x, 64)); got != x {
			t.Fatalf("FromBits(ToBits(%#x)) = %#x", x, got)
		}
	}
	if got := FromBits(ToBits(0xabcd, 8)); got != 0xcd {
		t.Fatalf("truncated round trip = %#x, want 0xcd", got)
	}
}

func TestToBitsPanicsAbove64(t *testing.T) {
	require.Panics(t, func() { ToBits(1, 65) })
	require.Panics(t, func() { FromBits(make([]bool, 65)) })
}

func TestEvenOddBits(t *testing.T) {
	bits := []bool{true, false, false, true, true, true}
	require.Equal(t, []bool{true, false, true}, EvenBits(bits))
	require.Equal(t, []bool{false, true, true}, OddBits(bits))
	require.Panics(t, func() { EvenBits([]bool{true}) })
}

func TestSpreadInterleavesZeros(t *testing.T) {
	got := Spread([]bool{true, true, false, true})
	want := []bool{true, false, true, false, false, false, true, false}
	require.Equal(t, want, got)
	require.Equal(t, []bool{true, true, false, true}, EvenBits(got))
}

// ---------------------------------------------------------------------------
// 16-bit domain
// ---------------------------------------------------------------------------

func TestSpread16RoundTripAndInjective(t *testing.T) {
	seen := make(map[uint32]uint16, 1<<16)
	for x := 0; x < 1<<16; x++ {
		s := Spread16(uint16(x))
		if s&0xaaaaaaaa != 0 {
			t.Fatalf("Spread16(%#x) = %#x has odd bits set", x, s)
		}
		if d := Compact32(s); d != uint16(x) {
			t.Fatalf("Compact32(Spread16(%#x)) = %#x", x, d)
		}
		if prev, ok := seen[s]; ok {
			t.Fatalf("Spread16(%#x) collides with Spread16(%#x)", x, prev)
		}
		seen[s] = uint16(x)
		if x%257 == 0 {
			want := FromBits(Spread(ToBits(uint64(x), 16)))
			if uint64(s) != want {
				t.Fatalf("Spread16(%#x) = %#x, bit-array form %#x", x, s, want)
			}
		}
	}
}

func TestSpread64MatchesBitArrays(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	words := append([]uint64{}, edgeWords...)
	for i := 0; i < 200; i++ {
		words = append(words, rng.Uint64())
	}
	for _, x := range words {
		got := Spread64(x)
		want := spreadBitsRef(x)
		require.True(t, got.Eq(&want), "Spread64(%#x)", x)
		require.Equal(t, x, Compact128(&got))
	}
}

// ---------------------------------------------------------------------------
// XOR gadgets
// ---------------------------------------------------------------------------

func xorPairs() [][2]uint64 {
	rng := rand.New(rand.NewSource(7))
	var pairs [][2]uint64
	for _, a := range edgeWords {
		pairs = append(pairs, [2]uint64{a, 0}, [2]uint64{0, a}, [2]uint64{a, a}, [2]uint64{a, ^a})
	}
	for i := 0; i < 500; i++ {
		pairs = append(pairs, [2]uint64{rng.Uint64(), rng.Uint64()})
	}
	return pairs
}

func TestXorDecomposition(t *testing.T) {
	for _, p := range xorPairs() {
		a, b := p[0], p[1]
		lo, hi := SpreadEvenFromXor(a, b, 0)
		require.True(t, lo.IsZero())
		require.Equal(t, a^b, Compact128(&hi), "xor of %#x, %#x", a, b)

		odd := SpreadOddFromXor(a, b)
		require.Equal(t, a&b, Compact128(&odd), "carry of %#x, %#x", a, b)

		// even + 2*odd reproduces the spread sum.
		sa, sb := Spread64(a), Spread64(b)
		var lhs, rhs uint256.Int
		lhs.Add(&sa, &sb)
		rhs.Lsh(&odd, 1)
		rhs.Add(&rhs, &hi)
		require.True(t, lhs.Eq(&rhs))
	}
}

func TestXorRotate(t *testing.T) {
	for _, r := range []uint{16, 24, 32, 63} {
		for _, p := range xorPairs() {
			a, b := p[0], p[1]
			lo, hi := SpreadEvenFromXor(a, b, r)

			rot := Rotate(&lo, &hi, r)
			want := bits.RotateLeft64(a^b, -int(r))
			require.Equal(t, want, Compact128(&rot), "rotr(%#x ^ %#x, %d)", a, b, r)

			joined := Join(&lo, &hi, r)
			require.Equal(t, a^b, Compact128(&joined))

			// lo covers exactly the low 2r bits of the spread XOR.
			var bound uint256.Int
			bound.Lsh(uint256.NewInt(1), 2*r)
			require.True(t, lo.Lt(&bound))
		}
	}
}

func TestXorRotateSplitMatchesBitArray(t *testing.T) {
	a, b := uint64(0x0123456789abcdef), uint64(0xfedcba9876543210)
	for _, r := range []uint{16, 24, 32, 63} {
		lo, hi := SpreadEvenFromXor(a, b, r)
		sa, sb := Spread64(a), Spread64(b)
		var s uint256.Int
		s.Add(&sa, &sb)
		even := Spread(EvenBits(toBits128(&s)))

		var wantLo, wantHi uint256.Int
		for i, bit := range even {
			if !bit {
				continue
			}
			if i < int(2*r) {
				wantLo[i/64] |= 1 << uint(i%64)
			} else {
				j := i - int(2*r)
				wantHi[j/64] |= 1 << uint(j%64)
			}
		}
		require.True(t, lo.Eq(&wantLo), "lo for r=%d", r)
		require.True(t, hi.Eq(&wantHi), "hi for r=%d", r)
	}
}

func TestThreeXor(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		a, b, c := rng.Uint64(), rng.Uint64(), rng.Uint64()
		if i < len(edgeWords) {
			a, b, c = edgeWords[i], edgeWords[i], ^edgeWords[i]
		}
		even := SpreadEvenFromThreeXor(a, b, c)
		odd := SpreadOddFromThreeXor(a, b, c)
		require.Equal(t, a^b^c, Compact128(&even))
		require.Equal(t, (a&b)|(a&c)|(b&c), Compact128(&odd))

		want := sum(a, b, c)
		var got uint256.Int
		got.Lsh(&odd, 1)
		got.Add(&got, &even)
		require.True(t, got.Eq(&want))
	}
}

func TestCutPanicsOnFullRotation(t *testing.T) {
	require.Panics(t, func() { SpreadEvenFromXor(1, 2, 64) })
}
