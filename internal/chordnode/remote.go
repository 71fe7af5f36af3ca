package chordnode

import (
	"context"

	"github.com/feng-zhe/zhechord/internal/ring"
	"github.com/feng-zhe/zhechord/internal/transport"
)

// Every remote wrapper here takes the peer it targets and, when that peer
// is this node itself, invokes the in-process operation instead of issuing
// an HTTP call.

func (n *Node) remoteFindPredecessor(ctx context.Context, target ring.Peer, id ring.ID) (ring.Peer, error) {
	if n.isSelf(target) {
		return n.findPredecessor(ctx, id)
	}
	return n.postIDtoID(ctx, target.Addr, transport.PathFindPredecessor, id)
}

func (n *Node) remoteFindSuccessor(ctx context.Context, target ring.Peer, id ring.ID) (ring.Peer, error) {
	if n.isSelf(target) {
		return n.FindSuccessor(ctx, id)
	}
	return n.postIDtoID(ctx, target.Addr, transport.PathFindSuccessor, id)
}

func (n *Node) remoteGetPredecessor(ctx context.Context, target ring.Peer) (ring.Peer, error) {
	if n.isSelf(target) {
		return n.rt.Predecessor(), nil
	}
	return n.postNoArgToOptionalID(ctx, target.Addr, transport.PathGetPredecessor)
}

func (n *Node) remoteSetPredecessor(ctx context.Context, target ring.Peer, candidate ring.ID) error {
	if n.isSelf(target) {
		n.rt.SetPredecessor(n.peerFor(candidate))
		return nil
	}
	return n.postIDtoNothing(ctx, target.Addr, transport.PathSetPredecessor, candidate)
}

func (n *Node) remoteGetSuccessor(ctx context.Context, target ring.Peer) (ring.Peer, error) {
	if n.isSelf(target) {
		return n.rt.Successor(), nil
	}
	return n.postNoArgToID(ctx, target.Addr, transport.PathGetSuccessor)
}

func (n *Node) remoteSetSuccessor(ctx context.Context, target ring.Peer, candidate ring.ID) error {
	if n.isSelf(target) {
		n.rt.SetSuccessor(n.peerFor(candidate))
		return nil
	}
	return n.postIDtoNothing(ctx, target.Addr, transport.PathSetSuccessor, candidate)
}

func (n *Node) remoteClosestPrecedingFinger(ctx context.Context, target ring.Peer, id ring.ID) (ring.Peer, error) {
	if n.isSelf(target) {
		return n.rt.ClosestPrecedingFinger(id), nil
	}
	return n.postIDtoID(ctx, target.Addr, transport.PathClosestPrecedingFinger, id)
}

// remoteNotify is the one exception to the short-circuit rule: a node must
// never notify itself, so when target is self this is a no-op rather than
// a local Notify call.
func (n *Node) remoteNotify(ctx context.Context, target ring.Peer, candidate ring.ID) error {
	if n.isSelf(target) {
		n.lgr.Debug("notify: refusing to notify self")
		return nil
	}
	return n.postIDtoNothing(ctx, target.Addr, transport.PathNotify, candidate)
}

func (n *Node) remotePut(ctx context.Context, target ring.Peer, key, value string) error {
	if n.isSelf(target) {
		n.store.Put(key, value)
		return nil
	}
	return n.client.Call(ctx, target.Addr, transport.PathPut, transport.PutRequest{Key: key, Value: value}, nil)
}

func (n *Node) remoteGet(ctx context.Context, target ring.Peer, key string) (string, error) {
	if n.isSelf(target) {
		v, _ := n.store.Get(key)
		return v, nil
	}
	var resp transport.GetResponse
	if err := n.client.Call(ctx, target.Addr, transport.PathGet, transport.GetRequest{Key: key}, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

func (n *Node) remoteDisplayBackupSucc(ctx context.Context, target ring.Peer) ([]string, error) {
	if n.isSelf(target) {
		return n.hexBackups(), nil
	}
	return n.postListQuery(ctx, target.Addr, transport.PathDisplayBackupSucc)
}

func (n *Node) hexBackups() []string {
	backups := n.rt.BackupSuccessors()
	out := make([]string, len(backups))
	for i, b := range backups {
		out[i] = n.sp.Hex(b.ID)
	}
	return out
}
