// Package precompile exposes the BLAKE2F precompile (EIP-152, address 0x09)
// backed by the arithmetized compression function: every call synthesizes
// the trace, checks it and returns the digest it commits to.
package precompile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/eth2030/blake2f/blake2f"
)

const (
	// InputLength is the size of an EIP-152 call:
	// rounds(4) | h(64) | m(128) | t0(8) | t1(8) | f(1).
	InputLength = 213
	// DigestLength is the size of the returned state vector.
	DigestLength = 64
)

var (
	ErrInputLength = errors.New("precompile: invalid blake2f input length")
	ErrFinalFlag   = errors.New("precompile: invalid blake2f final block indicator")
)

// ParseInput decodes a 213-byte call. The round count is big endian; every
// other word is little endian. The final byte must be 0 or 1.
func ParseInput(input []byte) (blake2f.Input, error) {
	var in blake2f.Input
	if len(input) != InputLength {
		return in, fmt.Errorf("%w: %d bytes, want %d", ErrInputLength, len(input), InputLength)
	}
	switch input[212] {
	case 0:
	case 1:
		in.Final = true
	default:
		return in, fmt.Errorf("%w: %#x", ErrFinalFlag, input[212])
	}
	in.Rounds = binary.BigEndian.Uint32(input[:4])
	for i := range in.H {
		in.H[i] = binary.LittleEndian.Uint64(input[4+8*i:])
	}
	for i := range in.M {
		in.M[i] = binary.LittleEndian.Uint64(input[68+8*i:])
	}
	in.T[0] = binary.LittleEndian.Uint64(input[196:])
	in.T[1] = binary.LittleEndian.Uint64(input[204:])
	return in, nil
}

// EncodeInput is the inverse of ParseInput.
func EncodeInput(in blake2f.Input) []byte {
	out := make([]byte, InputLength)
	binary.BigEndian.PutUint32(out, in.Rounds)
	for i, h := range in.H {
		binary.LittleEndian.PutUint64(out[4+8*i:], h)
	}
	for i, m := range in.M {
		binary.LittleEndian.PutUint64(out[68+8*i:], m)
	}
	binary.LittleEndian.PutUint64(out[196:], in.T[0])
	binary.LittleEndian.PutUint64(out[204:], in.T[1])
	if in.Final {
		out[212] = 1
	}
	return out
}

// EncodeDigest writes the eight output words little endian.
func EncodeDigest(words [8]uint64) []byte {
	out := make([]byte, DigestLength)
	for i, w := range words {
		binary.LittleEndian.PutUint64(out[8*i:], w)
	}
	return out
}
