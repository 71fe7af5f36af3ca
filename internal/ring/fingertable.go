package ring

// FingerEntry is one row of a node's finger table: Start = (own_id +
// 2^(i-1)) mod 2^Bits is fixed at construction; Node is the best known peer
// at or after Start, refined continuously by fix_fingers. Node carries an
// address, not just an identifier, so closest_preceding_finger can hand
// callers something dialable without a second resolution RPC.
type FingerEntry struct {
	Start ID
	Node  Peer
}

// FingerTable is the ordered, 1-indexed (to match the Chord paper's
// notation) sequence of m finger entries. It is never sparse: every entry
// holds some peer, even if that is only the owner itself before the table
// has converged.
type FingerTable struct {
	space Space
	rows  []FingerEntry // rows[i-1] is finger i
}

// NewFingerTable builds the m finger entries for a node with identity self:
// start_i = (self.ID + 2^(i-1)) mod 2^Bits. Node entries start pointing at
// self; Join/fix_fingers refine them afterwards.
func NewFingerTable(sp Space, self Peer) *FingerTable {
	rows := make([]FingerEntry, sp.Bits)
	for i := 1; i <= sp.Bits; i++ {
		rows[i-1] = FingerEntry{
			Start: sp.AddPow2(self.ID, i-1),
			Node:  self,
		}
	}
	return &FingerTable{space: sp, rows: rows}
}

func (ft *FingerTable) valid(i int) bool {
	return i >= 1 && i <= len(ft.rows)
}

// GetStart returns finger[i].start. ok is false when i is out of [1, m].
func (ft *FingerTable) GetStart(i int) (id ID, ok bool) {
	if !ft.valid(i) {
		return ID{}, false
	}
	return ft.rows[i-1].Start, true
}

// GetNode returns finger[i].node. ok is false when i is out of [1, m].
func (ft *FingerTable) GetNode(i int) (node Peer, ok bool) {
	if !ft.valid(i) {
		return Peer{}, false
	}
	return ft.rows[i-1].Node, true
}

// SetNode sets finger[i].node. It reports false when i is out of [1, m].
func (ft *FingerTable) SetNode(i int, node Peer) bool {
	if !ft.valid(i) {
		return false
	}
	ft.rows[i-1].Node = node
	return true
}

// Len returns m, the number of finger entries (== space.Bits).
func (ft *FingerTable) Len() int {
	return len(ft.rows)
}

// Nodes returns the finger[1..m].node column, in order — used by
// display_finger_table.
func (ft *FingerTable) Nodes() []Peer {
	out := make([]Peer, len(ft.rows))
	for i, row := range ft.rows {
		out[i] = row.Node
	}
	return out
}
