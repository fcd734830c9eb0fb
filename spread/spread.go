// Package spread implements the bit-spread encoding used to check bitwise
// XOR and fixed rotations with field arithmetic.
//
// A dense word d = sum(b_i * 2^i) spreads to s = sum(b_i * 4^i): every bit
// moves to an even position and the odd positions stay zero. Adding two or
// three spread words never carries across a 2-bit slot, so the low bit of
// every slot of the sum is the XOR of the operands and the high bit is the
// carry (AND for two operands, majority for three). All 128-bit quantities
// are uint256.Int values with the upper two limbs zero.
package spread

import (
	"github.com/holiman/uint256"
)

const (
	evenMask = 0x5555555555555555
)

// ToBits returns the n low bits of x in little-endian order. It panics if
// n exceeds 64.
func ToBits(x uint64, n int) []bool {
	if n < 0 || n > 64 {
		panic("spread: bit length out of range")
	}
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = (x>>uint(i))&1 == 1
	}
	return bits
}

// FromBits is the inverse of ToBits. It panics if more than 64 bits are
// supplied.
func FromBits(bits []bool) uint64 {
	if len(bits) > 64 {
		panic("spread: bit length out of range")
	}
	var x uint64
	for i, b := range bits {
		if b {
			x |= 1 << uint(i)
		}
	}
	return x
}

// Spread interleaves bits with zeros: [b0, b1, ...] becomes
// [b0, 0, b1, 0, ...].
func Spread(bits []bool) []bool {
	if len(bits) > 64 {
		panic("spread: bit length out of range")
	}
	out := make([]bool, 2*len(bits))
	for i, b := range bits {
		out[2*i] = b
	}
	return out
}

// EvenBits returns the bits at positions 0, 2, 4, ...
func EvenBits(bits []bool) []bool {
	if len(bits)%2 != 0 {
		panic("spread: odd bit array length")
	}
	out := make([]bool, len(bits)/2)
	for i := range out {
		out[i] = bits[2*i]
	}
	return out
}

// OddBits returns the bits at positions 1, 3, 5, ...
func OddBits(bits []bool) []bool {
	if len(bits)%2 != 0 {
		panic("spread: odd bit array length")
	}
	out := make([]bool, len(bits)/2)
	for i := range out {
		out[i] = bits[2*i+1]
	}
	return out
}

// interleave spreads the 32 bits of x over the even positions of a uint64.
func interleave(x uint32) uint64 {
	v := uint64(x)
	v = (v | v<<16) & 0x0000ffff0000ffff
	v = (v | v<<8) & 0x00ff00ff00ff00ff
	v = (v | v<<4) & 0x0f0f0f0f0f0f0f0f
	v = (v | v<<2) & 0x3333333333333333
	v = (v | v<<1) & evenMask
	return v
}

// deinterleave collects the even bits of v.
func deinterleave(v uint64) uint32 {
	v &= evenMask
	v = (v | v>>1) & 0x3333333333333333
	v = (v | v>>2) & 0x0f0f0f0f0f0f0f0f
	v = (v | v>>4) & 0x00ff00ff00ff00ff
	v = (v | v>>8) & 0x0000ffff0000ffff
	v = (v | v>>16) & 0x00000000ffffffff
	return uint32(v)
}

// Spread16 returns the spread form of a 16-bit limb.
func Spread16(x uint16) uint32 {
	return uint32(interleave(uint32(x)))
}

// Compact32 recovers the dense limb from its spread form. Odd bits are
// ignored.
func Compact32(s uint32) uint16 {
	return uint16(deinterleave(uint64(s)))
}

// Spread64 returns the 128-bit spread form of x.
func Spread64(x uint64) uint256.Int {
	return uint256.Int{interleave(uint32(x)), interleave(uint32(x >> 32)), 0, 0}
}

// Compact128 recovers the dense word from the even bits of a 128-bit value.
func Compact128(s *uint256.Int) uint64 {
	return uint64(deinterleave(s[0])) | uint64(deinterleave(s[1]))<<32
}

// sum adds the spread forms of the operands. Up to three operands fit in
// 128 bits.
func sum(words ...uint64) uint256.Int {
	var acc uint256.Int
	for _, w := range words {
		s := Spread64(w)
		acc.Add(&acc, &s)
	}
	return acc
}

// split returns the dense words read from the even and odd bit positions of
// a spread sum.
func split(s *uint256.Int) (even, odd uint64) {
	even = Compact128(s)
	odd = uint64(deinterleave(s[0]>>1)) | uint64(deinterleave(s[1]>>1))<<32
	return even, odd
}

// SpreadOddFromXor returns the spread form of the odd bits of
// spread(a)+spread(b), i.e. spread(a & b).
func SpreadOddFromXor(a, b uint64) uint256.Int {
	s := sum(a, b)
	_, odd := split(&s)
	return Spread64(odd)
}

// SpreadEvenFromXor returns the spread form of the even bits of
// spread(a)+spread(b), i.e. spread(a ^ b), cut at bit 2*rotate: lo holds
// the low 2*rotate spread bits and hi the remaining ones shifted down.
// Rotating a^b right by rotate is then hi + lo * 2^(128-2*rotate).
func SpreadEvenFromXor(a, b uint64, rotate uint) (lo, hi uint256.Int) {
	s := sum(a, b)
	even, _ := split(&s)
	return cut(even, rotate)
}

// SpreadOddFromThreeXor returns spread(maj(a, b, c)), the odd bits of
// spread(a)+spread(b)+spread(c).
func SpreadOddFromThreeXor(a, b, c uint64) uint256.Int {
	s := sum(a, b, c)
	_, odd := split(&s)
	return Spread64(odd)
}

// SpreadEvenFromThreeXor returns spread(a ^ b ^ c), the even bits of
// spread(a)+spread(b)+spread(c).
func SpreadEvenFromThreeXor(a, b, c uint64) uint256.Int {
	s := sum(a, b, c)
	even, _ := split(&s)
	return Spread64(even)
}

func cut(x uint64, rotate uint) (lo, hi uint256.Int) {
	if rotate >= 64 {
		panic("spread: rotation out of range")
	}
	return Spread64(x & (1<<rotate - 1)), Spread64(x >> rotate)
}

// Rotate recombines a split produced by SpreadEvenFromXor into the spread
// form of the rotated word.
func Rotate(lo, hi *uint256.Int, rotate uint) uint256.Int {
	var out uint256.Int
	out.Lsh(lo, 128-2*rotate)
	out.Add(&out, hi)
	return out
}

// Join recombines a split into the spread form of the unrotated word.
func Join(lo, hi *uint256.Int, rotate uint) uint256.Int {
	var out uint256.Int
	out.Lsh(hi, 2*rotate)
	out.Add(&out, lo)
	return out
}
