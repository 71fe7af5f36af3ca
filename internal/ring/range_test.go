package ring

import "testing"

// All cases run on a 5-bit ring (identifiers 0..31), small enough to reason
// about wrap-around arcs by hand.

func TestInRangeIE(t *testing.T) {
	sp := mustSpace(t, 5, 2)
	id := func(x int64) ID { return sp.FromInt64(x) }

	cases := []struct {
		name    string
		n, s, e int64
		want    bool
	}{
		{"inside no wrap", 5, 2, 10, true},
		{"equal to start is inside", 2, 2, 10, true},
		{"equal to end is outside", 10, 2, 10, false},
		{"outside no wrap", 15, 2, 10, false},
		{"empty interval when s == e", 5, 7, 7, false},
		{"wrap, n above start", 30, 20, 5, true},
		{"wrap, n below end", 2, 20, 5, true},
		{"wrap, n outside both arcs", 10, 20, 5, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := sp.InRangeIE(id(c.n), id(c.s), id(c.e))
			if got != c.want {
				t.Errorf("InRangeIE(%d, %d, %d) = %v, want %v", c.n, c.s, c.e, got, c.want)
			}
		})
	}
}

func TestInRangeEI(t *testing.T) {
	sp := mustSpace(t, 5, 2)
	id := func(x int64) ID { return sp.FromInt64(x) }

	cases := []struct {
		name    string
		n, s, e int64
		want    bool
	}{
		{"inside no wrap", 5, 2, 10, true},
		{"equal to start is outside", 2, 2, 10, false},
		{"equal to end is inside", 10, 2, 10, true},
		{"outside no wrap", 15, 2, 10, false},
		{"empty interval when s == e", 5, 7, 7, false},
		{"wrap, n above start", 30, 20, 5, true},
		{"wrap, n equals end", 5, 20, 5, true},
		{"wrap, n outside both arcs", 10, 20, 5, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := sp.InRangeEI(id(c.n), id(c.s), id(c.e))
			if got != c.want {
				t.Errorf("InRangeEI(%d, %d, %d) = %v, want %v", c.n, c.s, c.e, got, c.want)
			}
		})
	}
}

func TestInRangeEE(t *testing.T) {
	sp := mustSpace(t, 5, 2)
	id := func(x int64) ID { return sp.FromInt64(x) }

	cases := []struct {
		name    string
		n, s, e int64
		want    bool
	}{
		{"strictly inside no wrap", 5, 2, 10, true},
		{"equal to start is outside", 2, 2, 10, false},
		{"equal to end is outside", 10, 2, 10, false},
		{"adjacent endpoints is empty", 5, 7, 8, false},
		{"equal endpoints is empty", 5, 7, 7, false},
		{"two apart has exactly one member", 8, 7, 9, true},
		{"wrap, n above start", 30, 20, 5, true},
		{"wrap, n below end", 2, 20, 5, true},
		{"wrap, n equals end is outside", 5, 20, 5, false},
		{"wrap, n outside both arcs", 10, 20, 5, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := sp.InRangeEE(id(c.n), id(c.s), id(c.e))
			if got != c.want {
				t.Errorf("InRangeEE(%d, %d, %d) = %v, want %v", c.n, c.s, c.e, got, c.want)
			}
		})
	}
}

func TestInRangeHandlesUnsetIdentifiers(t *testing.T) {
	sp := mustSpace(t, 5, 2)
	zero := ID{}
	valid := sp.FromInt64(3)

	if sp.InRangeIE(zero, valid, valid) {
		t.Error("InRangeIE with unset n should be false")
	}
	if sp.InRangeEI(valid, zero, valid) {
		t.Error("InRangeEI with unset s should be false")
	}
	if sp.InRangeEE(valid, valid, zero) {
		t.Error("InRangeEE with unset e should be false")
	}
}
