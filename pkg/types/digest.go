// Package types defines the core data model of the block-producer: the
// cryptographic primitives (Digest, AccountId, Nullifier) and the
// transaction/batch/block records that flow through the pipeline.
package types

import (
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Digest is a fixed-width cryptographic hash: four elements of the bn254
// curve's scalar field, mirroring the "four field elements"
// commitment representation the block kernel operates on. Digest is a
// comparable array type so it can be used directly as a map key.
type Digest [4]fr.Element

// ZeroDigest returns the distinguished "absent/new account" digest.
func ZeroDigest() Digest {
	return Digest{}
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == ZeroDigest()
}

// DigestFromUint64s builds a Digest from four raw uint64 values, treating
// each as an element of the bn254 scalar field.
func DigestFromUint64s(a, b, c, d uint64) Digest {
	var out Digest
	out[0].SetUint64(a)
	out[1].SetUint64(b)
	out[2].SetUint64(c)
	out[3].SetUint64(d)
	return out
}

// DigestFromBytes decodes the 128-byte big-endian encoding Bytes produces
// back into a Digest. It returns an error if b is not exactly 128 bytes.
func DigestFromBytes(b []byte) (Digest, error) {
	var out Digest
	if len(b) != 128 {
		return out, fmt.Errorf("types: digest must be 128 bytes, got %d", len(b))
	}
	for i := range out {
		out[i].SetBytes(b[i*32 : (i+1)*32])
	}
	return out, nil
}

// Bytes returns the 128-byte big-endian encoding of the four elements.
func (d Digest) Bytes() []byte {
	buf := make([]byte, 0, 128)
	for _, e := range d {
		b := e.Bytes()
		buf = append(buf, b[:]...)
	}
	return buf
}

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d.Bytes())
}

// Equal reports whether two digests encode the same value.
func (d Digest) Equal(other Digest) bool {
	return d == other
}

// Format implements fmt.Formatter so Digest prints compactly in logs.
func (d Digest) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, d.String())
}
