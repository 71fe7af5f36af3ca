package chordnode

import (
	"context"
	"fmt"

	"github.com/feng-zhe/zhechord/internal/ring"
)

// RPCHandler adapts a Node's ring.ID-typed engine methods to the
// string-keyed transport.Handler interface. Keeping the translation in one
// wrapper type — rather than letting Node carry two same-named methods, one
// hex-string (wire) and one ring.ID (engine) — means every RPC path's hex
// parsing and formatting happens exactly once, here.
type RPCHandler struct {
	n *Node
}

// NewRPCHandler wraps n for serving over transport.Server.
func NewRPCHandler(n *Node) *RPCHandler {
	return &RPCHandler{n: n}
}

func (h *RPCHandler) parseID(s string) (ring.ID, error) {
	id, err := h.n.sp.FromHexString(s)
	if err != nil {
		return ring.ID{}, fmt.Errorf("chordnode: %w", err)
	}
	return id, nil
}

// FindPredecessor answers POST /find_predecessor.
func (h *RPCHandler) FindPredecessor(ctx context.Context, idHex string) (string, error) {
	id, err := h.parseID(idHex)
	if err != nil {
		return "", err
	}
	p, err := h.n.findPredecessor(ctx, id)
	if err != nil {
		return "", err
	}
	return h.n.sp.Hex(p.ID), nil
}

// FindSuccessor answers POST /find_successor.
func (h *RPCHandler) FindSuccessor(ctx context.Context, idHex string) (string, error) {
	id, err := h.parseID(idHex)
	if err != nil {
		return "", err
	}
	p, err := h.n.FindSuccessor(ctx, id)
	if err != nil {
		return "", err
	}
	return h.n.sp.Hex(p.ID), nil
}

// GetPredecessor answers POST /get_predecessor. An unset predecessor is
// reported as the empty string; transport.IDResponse carries it as "".
func (h *RPCHandler) GetPredecessor(ctx context.Context) (string, error) {
	pred := h.n.rt.Predecessor()
	if pred.IsZero() {
		return "", nil
	}
	return h.n.sp.Hex(pred.ID), nil
}

// SetPredecessor answers POST /set_predecessor.
func (h *RPCHandler) SetPredecessor(ctx context.Context, idHex string) error {
	id, err := h.parseID(idHex)
	if err != nil {
		return err
	}
	h.n.rt.SetPredecessor(h.n.peerFor(id))
	return nil
}

// GetSuccessor answers POST /get_successor.
func (h *RPCHandler) GetSuccessor(ctx context.Context) (string, error) {
	return h.n.sp.Hex(h.n.rt.Successor().ID), nil
}

// SetSuccessor answers POST /set_successor.
func (h *RPCHandler) SetSuccessor(ctx context.Context, idHex string) error {
	id, err := h.parseID(idHex)
	if err != nil {
		return err
	}
	h.n.rt.SetSuccessor(h.n.peerFor(id))
	return nil
}

// ClosestPrecedingFinger answers POST /closest_preceding_finger.
func (h *RPCHandler) ClosestPrecedingFinger(ctx context.Context, idHex string) (string, error) {
	id, err := h.parseID(idHex)
	if err != nil {
		return "", err
	}
	return h.n.sp.Hex(h.n.closestPrecedingFinger(id).ID), nil
}

// Notify answers POST /notify. A node must never accept itself as its own
// predecessor through this path.
func (h *RPCHandler) Notify(ctx context.Context, idHex string) error {
	id, err := h.parseID(idHex)
	if err != nil {
		return err
	}
	if h.n.sp.Equal(id, h.n.rt.Self().ID) {
		h.n.lgr.Debug("notify: refusing to accept self as predecessor")
		return nil
	}
	h.n.Notify(h.n.peerFor(id))
	return nil
}

// Put answers POST /put: a purely local store. Routing (hashing the key and
// finding its owner) is the caller's responsibility, not this node's.
func (h *RPCHandler) Put(ctx context.Context, key, value string) error {
	h.n.store.Put(key, value)
	return nil
}

// Get answers POST /get from the local store only.
func (h *RPCHandler) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := h.n.store.Get(key)
	return v, ok, nil
}

// DisplayFingerTable answers POST /display_finger_table: [predecessor,
// finger[1].node, ..., finger[m].node].
func (h *RPCHandler) DisplayFingerTable(ctx context.Context) ([]string, error) {
	out := make([]string, 0, h.n.sp.Bits+1)
	pred := h.n.rt.Predecessor()
	if pred.IsZero() {
		out = append(out, "")
	} else {
		out = append(out, h.n.sp.Hex(pred.ID))
	}
	for _, node := range h.n.rt.FingerNodes() {
		out = append(out, h.n.sp.Hex(node.ID))
	}
	return out, nil
}

// DisplayData answers POST /display_data with the local data map.
func (h *RPCHandler) DisplayData(ctx context.Context) (map[string]string, error) {
	return h.n.store.Snapshot(), nil
}

// DisplayBackupSucc answers POST /display_backup_succ.
func (h *RPCHandler) DisplayBackupSucc(ctx context.Context) ([]string, error) {
	return h.n.hexBackups(), nil
}
