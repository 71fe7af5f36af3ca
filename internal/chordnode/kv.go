package chordnode

import (
	"context"
	"fmt"

	"github.com/feng-zhe/zhechord/internal/logger"
	"github.com/feng-zhe/zhechord/internal/ring"
)

// Put stores key/value on the node responsible for key: hash the key into
// the identifier space, resolve its successor, and store there. The
// node-local put/get RPCs never route; this is the routing layer.
func (n *Node) Put(ctx context.Context, key, value string) error {
	h := n.sp.HashName(key)
	target, err := n.FindSuccessor(ctx, h)
	if err != nil {
		return fmt.Errorf("chordnode: put %q: locate owner of %s: %w", key, n.sp.Hex(h), err)
	}
	if err := n.remotePut(ctx, target, key, value); err != nil {
		return fmt.Errorf("chordnode: put %q on %s: %w", key, n.sp.Hex(target.ID), err)
	}
	n.lgr.Debug("put routed",
		logger.F("key", key), logger.F("hash", n.sp.Hex(h)), logger.F("owner", n.sp.Hex(target.ID)))
	return nil
}

// Get fetches key from the node responsible for it, routing the same way
// Put does. A key the owner has never seen comes back as the empty string.
func (n *Node) Get(ctx context.Context, key string) (string, error) {
	h := n.sp.HashName(key)
	target, err := n.FindSuccessor(ctx, h)
	if err != nil {
		return "", fmt.Errorf("chordnode: get %q: locate owner of %s: %w", key, n.sp.Hex(h), err)
	}
	value, err := n.remoteGet(ctx, target, key)
	if err != nil {
		return "", fmt.Errorf("chordnode: get %q from %s: %w", key, n.sp.Hex(target.ID), err)
	}
	return value, nil
}

// Owner resolves the node currently responsible for key without touching it.
func (n *Node) Owner(ctx context.Context, key string) (ring.Peer, error) {
	return n.FindSuccessor(ctx, n.sp.HashName(key))
}
