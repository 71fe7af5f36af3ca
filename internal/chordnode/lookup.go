package chordnode

import (
	"context"
	"fmt"

	"github.com/feng-zhe/zhechord/internal/ring"
)

// FindSuccessor resolves id to the node responsible for it: the first live
// node clockwise from id, inclusive.
func (n *Node) FindSuccessor(ctx context.Context, id ring.ID) (ring.Peer, error) {
	p, err := n.findPredecessor(ctx, id)
	if err != nil {
		return ring.Peer{}, err
	}
	return n.remoteGetSuccessor(ctx, p)
}

// findPredecessor walks the ring towards id, one closest-preceding-finger
// hop at a time, until it finds the node immediately before id.
//
// Deliberate deviation from the Chord paper: the paper's loop can spin
// forever while the ring is inconsistent (mid-join, mid-failure). If
// closest_preceding_finger reports the same node twice running, that node
// is as close as the ring currently knows how to get, and we stop there.
func (n *Node) findPredecessor(ctx context.Context, id ring.ID) (ring.Peer, error) {
	self := n.rt.Self()
	cur := self
	succ, err := n.remoteGetSuccessor(ctx, cur)
	if err != nil {
		return ring.Peer{}, fmt.Errorf("chordnode: findPredecessor: get successor of self: %w", err)
	}

	for !n.sp.InRangeEI(id, cur.ID, succ.ID) {
		c, err := n.remoteClosestPrecedingFinger(ctx, cur, id)
		if err != nil {
			return ring.Peer{}, fmt.Errorf("chordnode: findPredecessor: closest_preceding_finger on %s: %w", n.sp.Hex(cur.ID), err)
		}
		if n.sp.Equal(c.ID, cur.ID) {
			break
		}
		cur = c
		succ, err = n.remoteGetSuccessor(ctx, cur)
		if err != nil {
			return ring.Peer{}, fmt.Errorf("chordnode: findPredecessor: get successor of %s: %w", n.sp.Hex(cur.ID), err)
		}
	}
	return cur, nil
}

// closestPrecedingFinger answers a closest_preceding_finger request
// locally; the scan itself lives on RoutingTable, which owns the lock.
func (n *Node) closestPrecedingFinger(id ring.ID) ring.Peer {
	return n.rt.ClosestPrecedingFinger(id)
}
