// Package chordnode implements the per-node Chord engine: identifier
// lookup, join/bootstrap, the stabilize/notify/fix_fingers maintenance
// loop, and the backup-successor fault-tolerance layer.
package chordnode

import (
	"context"
	"fmt"

	"github.com/feng-zhe/zhechord/internal/bootstrap"
	"github.com/feng-zhe/zhechord/internal/logger"
	"github.com/feng-zhe/zhechord/internal/ring"
	"github.com/feng-zhe/zhechord/internal/store"
)

// Caller issues one RPC to a peer: transport.Client in production, an
// in-process fake network in tests. Implementations must report exhausted
// retries as transport.ErrUnreachable so the maintenance layer can tell a
// dead peer from a malformed response.
type Caller interface {
	Call(ctx context.Context, addr, path string, body, out any) error
}

// Node owns one routing table, one local store, and a transport client.
// Every exported method is safe for concurrent use; RoutingTable does its
// own locking, and the lock is never held across a remote call — state is
// read under the lock, the RPC issued lock-free, the result committed
// under the lock again.
type Node struct {
	sp     ring.Space
	rt     *ring.RoutingTable
	store  *store.Store
	client Caller
	lgr    logger.Logger
	addrOf func(ring.ID) string
}

// New builds a Node for self, ready to Join or CreateNewDHT.
func New(sp ring.Space, self ring.Peer, client Caller, st *store.Store, opts ...Option) *Node {
	n := &Node{
		sp:     sp,
		rt:     ring.NewRoutingTable(sp, self),
		store:  st,
		client: client,
		lgr:    logger.NopLogger{},
		addrOf: func(id ring.ID) string { return bootstrap.ContainerAddr(sp, id) },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Self returns this node's own identity.
func (n *Node) Self() ring.Peer {
	return n.rt.Self()
}

// Space returns the identifier space this node was built for.
func (n *Node) Space() ring.Space {
	return n.sp
}

// PeerFor resolves a bare identifier into a dialable Peer via the node's
// configured address resolver — the way a caller turns a hex identifier
// argument into something Join can dial.
func (n *Node) PeerFor(id ring.ID) ring.Peer {
	return n.peerFor(id)
}

// peerFor resolves a bare identifier into a dialable Peer.
func (n *Node) peerFor(id ring.ID) ring.Peer {
	if n.sp.Equal(id, n.rt.Self().ID) {
		return n.rt.Self()
	}
	return ring.Peer{ID: id, Addr: n.addrOf(id)}
}

// isSelf reports whether target denotes this node — the condition every
// remote wrapper short-circuits on.
func (n *Node) isSelf(target ring.Peer) bool {
	return n.sp.Equal(target.ID, n.rt.Self().ID)
}

// CreateNewDHT founds a brand-new ring: predecessor stays unset, every
// finger and every backup successor points at self.
func (n *Node) CreateNewDHT() {
	self := n.rt.Self()
	n.rt.ClearPredecessor()
	for i := 1; i <= n.sp.Bits; i++ {
		n.rt.SetFingerNode(i, self)
	}
	backups := make([]ring.Peer, n.sp.BackupCount)
	for i := range backups {
		backups[i] = self
	}
	n.rt.SetBackupSuccessors(backups)
	n.lgr.Info("founded new ring", logger.F("self", n.sp.Hex(self.ID)))
}

// Join connects this node to an existing ring through seed. seed only needs
// a dialable Addr; its ID may be unknown until the first RPC response names
// it, which lets a caller seed a join purely from an address
// bootstrap.Discoverer resolved, not just from a hex identifier.
func (n *Node) Join(ctx context.Context, seed ring.Peer) error {
	self := n.rt.Self()
	n.rt.ClearPredecessor()

	succ, err := n.remoteFindSuccessor(ctx, seed, self.ID)
	if err != nil {
		return fmt.Errorf("chordnode: join via seed %s: %w", seed.Addr, err)
	}
	if n.sp.Equal(succ.ID, self.ID) {
		return fmt.Errorf("chordnode: join: a node with id %s already exists", n.sp.Hex(self.ID))
	}
	n.rt.SetSuccessor(succ)

	// Bootstrap a singleton founder out of its degenerate self-loop: if our
	// new successor still points at itself, tell it its successor is now us.
	// Probing succ rather than seed also covers address-only seeds, whose
	// identifier is unknown until an RPC response names it — a singleton
	// seed always returns itself as our successor.
	succSucc, err := n.remoteGetSuccessor(ctx, succ)
	if err == nil && n.sp.Equal(succSucc.ID, succ.ID) {
		if err := n.remoteSetSuccessor(ctx, succ, self.ID); err != nil {
			n.lgr.Warn("join: failed to bootstrap singleton seed out of self-loop",
				logger.F("seed", n.sp.Hex(succ.ID)), logger.F("err", err))
		}
	}

	backups := make([]ring.Peer, n.sp.BackupCount)
	t := succ
	for i := 0; i < n.sp.BackupCount; i++ {
		next, err := n.FindSuccessor(ctx, n.sp.Add(t.ID, 1))
		if err != nil {
			n.lgr.Warn("join: failed to seed backup successor list",
				logger.F("index", i), logger.F("err", err))
			next = t
		}
		backups[i] = next
		t = next
	}
	n.rt.SetBackupSuccessors(backups)

	n.lgr.Info("joined ring", logger.F("self", n.sp.Hex(self.ID)), logger.F("successor", n.sp.Hex(succ.ID)))
	return nil
}
