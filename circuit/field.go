// Package circuit provides the trace substrate the BLAKE2f arithmetization
// is written against: advice/fixed/selector/table columns over the BN254
// scalar field, polynomial gates with row rotations, lookup arguments,
// copy constraints, and a layouter that threads a single row cursor through
// region assignment. Verify is a mock checker that evaluates every
// constraint against a concrete trace; proving proper is left to an
// external backend.
package circuit

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/holiman/uint256"
)

// NewElement returns v as a field element.
func NewElement(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// ElementFromUint256 embeds v into the field. Values at or above the
// modulus are reduced.
func ElementFromUint256(v *uint256.Int) fr.Element {
	b := v.Bytes32()
	var e fr.Element
	e.SetBytes(b[:])
	return e
}

// Pow2 returns 2^n as a field element for n < 256.
func Pow2(n uint) fr.Element {
	var v uint256.Int
	v.Lsh(uint256.NewInt(1), n)
	return ElementFromUint256(&v)
}
