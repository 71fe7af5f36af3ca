package ring

import "testing"

func mustSpace(t *testing.T, bits, backups int) Space {
	t.Helper()
	sp, err := NewSpace(bits, backups)
	if err != nil {
		t.Fatalf("NewSpace(%d, %d): %v", bits, backups, err)
	}
	return sp
}

func TestNewSpaceRejectsBadInputs(t *testing.T) {
	if _, err := NewSpace(0, 2); err == nil {
		t.Error("expected error for bits = 0")
	}
	if _, err := NewSpace(5, 0); err == nil {
		t.Error("expected error for backupCount = 0")
	}
	if _, err := NewSpace(-1, 2); err == nil {
		t.Error("expected error for negative bits")
	}
}

func TestAddWraps(t *testing.T) {
	sp := mustSpace(t, 5, 2) // ring size 32

	got := sp.Add(sp.FromInt64(30), 5)
	want := sp.FromInt64(3) // (30+5) mod 32 = 3
	if !sp.Equal(got, want) {
		t.Errorf("Add(30, 5) = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestAddNegativeDelta(t *testing.T) {
	sp := mustSpace(t, 5, 2)

	got := sp.Add(sp.FromInt64(2), -5)
	want := sp.FromInt64(29) // (2-5) mod 32 = 29
	if !sp.Equal(got, want) {
		t.Errorf("Add(2, -5) = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestHexRoundTrip(t *testing.T) {
	sp := mustSpace(t, 8, 2)
	id := sp.FromInt64(0x5)

	s := sp.Hex(id)
	if s != "05" {
		t.Errorf("Hex(5) = %q, want %q", s, "05")
	}

	back, err := sp.FromHexString(s)
	if err != nil {
		t.Fatalf("FromHexString(%q): %v", s, err)
	}
	if !sp.Equal(back, id) {
		t.Errorf("round trip mismatch: got %s, want %s", back.Hex(), id.Hex())
	}
}

func TestFromHexStringRejectsOutOfRange(t *testing.T) {
	sp := mustSpace(t, 5, 2) // ring size 32, max id 0x1f
	if _, err := sp.FromHexString("20"); err == nil {
		t.Error("expected error for id >= 2^Bits")
	}
	if _, err := sp.FromHexString("not-hex"); err == nil {
		t.Error("expected error for malformed hex")
	}
	if _, err := sp.FromHexString(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestAddPow2WideRing(t *testing.T) {
	// The SHA-1-wide configuration: exponents well past machine-word range.
	sp := mustSpace(t, 160, 2)

	id := sp.FromInt64(1)
	got := sp.AddPow2(id, 159)
	want, err := sp.FromHexString("8000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("FromHexString: %v", err)
	}
	if !sp.Equal(got, want) {
		t.Errorf("AddPow2(1, 159) = %s, want %s", sp.Hex(got), sp.Hex(want))
	}
	if len(sp.Hex(got)) != 40 {
		t.Errorf("canonical width = %d, want 40", len(sp.Hex(got)))
	}

	// One step past the top of the ring wraps to the starting point.
	wrapped := sp.AddPow2(sp.AddPow2(id, 159), 159)
	if !sp.Equal(wrapped, id) {
		t.Errorf("adding 2^159 twice should wrap back to 1, got %s", sp.Hex(wrapped))
	}
}

func TestAddRoundTrips(t *testing.T) {
	sp := mustSpace(t, 5, 2)
	for _, k := range []int64{0, 1, 7, 31, 32, -1, -31, 100} {
		id := sp.FromInt64(11)
		back := sp.Add(sp.Add(id, k), -k)
		if !sp.Equal(back, id) {
			t.Errorf("Add(Add(11, %d), %d) = %s, want 11", k, -k, back.Hex())
		}
	}
}

func TestHashNameIsDeterministicAndInRange(t *testing.T) {
	sp := mustSpace(t, 16, 2)
	a := sp.HashName("node-1")
	b := sp.HashName("node-1")
	if !sp.Equal(a, b) {
		t.Error("HashName is not deterministic")
	}
	if sp.Cmp(a, sp.Zero()) < 0 {
		t.Error("HashName produced a negative identifier")
	}
}
