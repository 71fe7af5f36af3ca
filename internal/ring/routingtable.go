package ring

import "sync"

// Peer is the address a node is reachable at: its identifier plus the
// transport-level address transport.Client dials. RoutingTable only ever
// stores Peer values, never bare IDs, because every remote call needs
// somewhere to dial.
type Peer struct {
	ID   ID
	Addr string
}

// IsZero reports whether p is the unset sentinel (no known predecessor, no
// known successor yet).
func (p Peer) IsZero() bool {
	return p.ID.IsZeroID() && p.Addr == ""
}

// RoutingTable is the node's mutable routing state: predecessor, finger
// table, and backup-successor list, all protected by one RWMutex. Every
// method takes and releases the lock itself; chordnode.Node never holds
// rt.mu across an RPC call.
//
// The primary successor is finger[1]; backups holds the k successors after
// it, used only when the primary is unreachable.
type RoutingTable struct {
	space Space
	self  Peer

	mu          sync.RWMutex
	predecessor Peer
	fingers     *FingerTable
	backups     []Peer
}

// NewRoutingTable builds the routing table for self, with an empty
// predecessor and every finger/backup pointing at self until Join or
// CreateNewDHT populate them.
func NewRoutingTable(sp Space, self Peer) *RoutingTable {
	rt := &RoutingTable{
		space:   sp,
		self:    self,
		fingers: NewFingerTable(sp, self),
		backups: make([]Peer, sp.BackupCount),
	}
	for i := range rt.backups {
		rt.backups[i] = self
	}
	return rt
}

// Self returns the owning node's own Peer value. Immutable, needs no lock.
func (rt *RoutingTable) Self() Peer {
	return rt.self
}

// Space returns the identifier space this table was built for.
func (rt *RoutingTable) Space() Space {
	return rt.space
}

// Predecessor returns the current predecessor, or the zero Peer if none is
// known yet.
func (rt *RoutingTable) Predecessor() Peer {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.predecessor
}

// SetPredecessor overwrites the predecessor.
func (rt *RoutingTable) SetPredecessor(p Peer) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.predecessor = p
}

// ClearPredecessor resets the predecessor to unknown.
func (rt *RoutingTable) ClearPredecessor() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.predecessor = Peer{}
}

// Successor returns the node's current successor: finger[1].node.
func (rt *RoutingTable) Successor() Peer {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	node, _ := rt.fingers.GetNode(1)
	return node
}

// SetSuccessor overwrites finger[1], the primary successor.
func (rt *RoutingTable) SetSuccessor(p Peer) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.fingers.SetNode(1, p)
}

// BackupSuccessors returns a copy of the full backup-successor list.
func (rt *RoutingTable) BackupSuccessors() []Peer {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]Peer, len(rt.backups))
	copy(out, rt.backups)
	return out
}

// SetBackupSuccessors replaces the whole backup-successor list wholesale —
// used after each stabilize round's refresh walk.
func (rt *RoutingTable) SetBackupSuccessors(list []Peer) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.backups = make([]Peer, len(list))
	copy(rt.backups, list)
}

// ReplaceDeadFingers rewrites every finger entry (index 1..m, so the
// successor slot included) whose node equals dead with the replacement.
// Returns how many entries were rewritten.
func (rt *RoutingTable) ReplaceDeadFingers(dead ID, with Peer) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	replaced := 0
	for i := 1; i <= rt.fingers.Len(); i++ {
		node, ok := rt.fingers.GetNode(i)
		if ok && rt.space.Equal(node.ID, dead) {
			rt.fingers.SetNode(i, with)
			replaced++
		}
	}
	return replaced
}

// FingerEntryNode returns finger[i].node.
func (rt *RoutingTable) FingerEntryNode(i int) (Peer, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.fingers.GetNode(i)
}

// FingerEntryStart returns finger[i].start.
func (rt *RoutingTable) FingerEntryStart(i int) (ID, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.fingers.GetStart(i)
}

// SetFingerNode sets finger[i].node.
func (rt *RoutingTable) SetFingerNode(i int, node Peer) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.fingers.SetNode(i, node)
}

// FingerNodes returns the finger[1..m].node column, in order.
func (rt *RoutingTable) FingerNodes() []Peer {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.fingers.Nodes()
}

// ClosestPrecedingFinger scans the finger table from the farthest entry down
// to the nearest, returning the first finger that is strictly between self
// and id. Falls back to self when no finger qualifies (id's successor is
// reached in at most one more hop).
func (rt *RoutingTable) ClosestPrecedingFinger(id ID) Peer {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for i := rt.fingers.Len(); i >= 1; i-- {
		node, ok := rt.fingers.GetNode(i)
		if !ok || node.IsZero() {
			continue
		}
		if rt.space.InRangeEE(node.ID, rt.self.ID, id) {
			return node
		}
	}
	return rt.self
}
