// Package ring implements identifier arithmetic and the finger table for a
// Chord ring: a circular identifier space of size 2^m and the modular
// comparisons needed to route on it.
package ring

import (
	"crypto/sha1"
	"fmt"
	"math/big"
	"strings"
)

// Space describes a Chord identifier space of size 2^Bits and the
// fault-tolerance parameters that ride along with it.
//
// Bits is the ring width m: 5 in the small test rings, 160 for the
// SHA-1-wide production configuration. BackupCount is k, the length of each
// node's backup-successor list.
type Space struct {
	Bits        int
	BackupCount int

	mod    *big.Int // 2^Bits
	hexLen int      // canonical zero-padded width, ceil(Bits/4)
}

// NewSpace builds a Space for an m-bit ring with a k-entry backup successor
// list. Both must be positive.
func NewSpace(bits, backupCount int) (Space, error) {
	if bits <= 0 {
		return Space{}, fmt.Errorf("ring: invalid bit width %d (must be > 0)", bits)
	}
	if backupCount <= 0 {
		return Space{}, fmt.Errorf("ring: invalid backup count %d (must be > 0)", backupCount)
	}
	hexLen := bits / 4
	if bits%4 != 0 {
		hexLen++
	}
	return Space{
		Bits:        bits,
		BackupCount: backupCount,
		mod:         new(big.Int).Lsh(big.NewInt(1), uint(bits)),
		hexLen:      hexLen,
	}, nil
}

// ID is a point on the ring, held as an unbounded integer so arithmetic never
// has to think about byte widths; Hex renders it at the space's canonical
// width for wire and log use.
type ID struct {
	v *big.Int
}

// Zero returns the identifier 0.
func (sp Space) Zero() ID {
	return ID{v: big.NewInt(0)}
}

// fromBig reduces x modulo 2^Bits, adding the modulus first if x is negative.
func (sp Space) fromBig(x *big.Int) ID {
	v := new(big.Int).Mod(x, sp.mod)
	// big.Int.Mod is Euclidean, but keep the negative guard explicit.
	if v.Sign() < 0 {
		v.Add(v, sp.mod)
	}
	return ID{v: v}
}

// HashName maps an application name (or key) onto the ring:
// SHA-1(name) reduced modulo 2^Bits.
func (sp Space) HashName(name string) ID {
	sum := sha1.Sum([]byte(name))
	x := new(big.Int).SetBytes(sum[:])
	return sp.fromBig(x)
}

// FromHexString parses a hex identifier (with or without "0x"), accepting
// any amount of zero padding, rejecting values outside [0, 2^Bits).
func (sp Space) FromHexString(s string) (ID, error) {
	str := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if str == "" {
		return ID{}, fmt.Errorf("ring: empty identifier")
	}
	v, ok := new(big.Int).SetString(str, 16)
	if !ok {
		return ID{}, fmt.Errorf("ring: invalid hex identifier %q", s)
	}
	if v.Sign() < 0 || v.Cmp(sp.mod) >= 0 {
		return ID{}, fmt.Errorf("ring: identifier %q out of range for a %d-bit ring", s, sp.Bits)
	}
	return ID{v: v}, nil
}

// FromInt64 builds an identifier from a small integer, reducing modulo
// 2^Bits. Test and CLI helper; protocol code never uses it.
func (sp Space) FromInt64(x int64) ID {
	return sp.fromBig(big.NewInt(x))
}

// Hex renders the identifier as a lowercase hex string with no width
// information; Space.Hex pads it to canonical width. Only the canonical
// form is ever serialised or logged.
func (x ID) Hex() string {
	if x.v == nil {
		return "<nil>"
	}
	return x.v.Text(16)
}

func (sp Space) hex(x ID) string {
	s := x.Hex()
	if len(s) < sp.hexLen {
		s = strings.Repeat("0", sp.hexLen-len(s)) + s
	}
	return s
}

// Hex renders id at this space's canonical zero-padded width.
func (sp Space) Hex(id ID) string {
	return sp.hex(id)
}

// Add performs signed modular addition: (id + delta) mod 2^Bits. Negative
// deltas and negative intermediates wrap.
func (sp Space) Add(id ID, delta int64) ID {
	return sp.fromBig(new(big.Int).Add(id.v, big.NewInt(delta)))
}

// AddPow2 returns (id + 2^exp) mod 2^Bits — the finger-start arithmetic,
// kept in big-integer form because exp reaches Bits-1 (159 in the SHA-1-wide
// configuration) and does not fit a machine word.
func (sp Space) AddPow2(id ID, exp int) ID {
	return sp.fromBig(new(big.Int).Add(id.v, new(big.Int).Lsh(big.NewInt(1), uint(exp))))
}

// Cmp compares two identifiers as unbounded integers: -1, 0, or 1.
func (sp Space) Cmp(a, b ID) int {
	return a.v.Cmp(b.v)
}

// Equal reports whether a and b denote the same identifier. An unset ID is
// equal only to another unset ID.
func (sp Space) Equal(a, b ID) bool {
	if a.v == nil || b.v == nil {
		return a.v == nil && b.v == nil
	}
	return a.v.Cmp(b.v) == 0
}

// IsZeroID reports whether id is the uninitialized zero value (not on the
// ring — used to detect "no node" sentinel values distinct from identifier 0).
func (x ID) IsZeroID() bool {
	return x.v == nil
}

