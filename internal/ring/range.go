package ring

import "math/big"

// The three arc-membership predicates are the only primitives the rest of
// the engine uses to compare identifiers. Direct integer comparison is
// wrong everywhere else: every comparison on the ring is modular, and the
// three interval kinds have distinct empty-arc rules.

// InRangeIE reports whether n is in [s, e), handling wrap-around when s > e.
// The interval is empty (always false) when s == e.
func (sp Space) InRangeIE(n, s, e ID) bool {
	if n.v == nil || s.v == nil || e.v == nil {
		return false
	}
	c := sp.Cmp(s, e)
	if c == 0 {
		return false
	}
	if c > 0 {
		return sp.Cmp(s, n) <= 0 || sp.Cmp(n, e) < 0
	}
	return sp.Cmp(s, n) <= 0 && sp.Cmp(n, e) < 0
}

// InRangeEI reports whether n is in (s, e], handling wrap-around when s > e.
// The interval is empty (always false) when s == e.
func (sp Space) InRangeEI(n, s, e ID) bool {
	if n.v == nil || s.v == nil || e.v == nil {
		return false
	}
	c := sp.Cmp(s, e)
	if c == 0 {
		return false
	}
	if c > 0 {
		return sp.Cmp(s, n) < 0 || sp.Cmp(n, e) <= 0
	}
	return sp.Cmp(s, n) < 0 && sp.Cmp(n, e) <= 0
}

// InRangeEE reports whether n is in (s, e), handling wrap-around when s > e.
// The interval is empty (always false) when e == s or e == s+1 (mod 2^Bits) —
// there is no integer strictly between two adjacent identifiers.
func (sp Space) InRangeEE(n, s, e ID) bool {
	if n.v == nil || s.v == nil || e.v == nil {
		return false
	}
	c := sp.Cmp(s, e)
	if c > 0 {
		return sp.Cmp(s, n) < 0 || sp.Cmp(n, e) < 0
	}
	// e - s <= 1 (mod 2^Bits, taken without wrap since e >= s here) means the
	// open interval (s, e) contains no integer.
	diff := new(big.Int).Sub(e.v, s.v)
	if diff.Cmp(big.NewInt(1)) <= 0 {
		return false
	}
	return sp.Cmp(s, n) < 0 && sp.Cmp(n, e) < 0
}
