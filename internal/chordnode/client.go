package chordnode

import (
	"context"

	"github.com/feng-zhe/zhechord/internal/ring"
	"github.com/feng-zhe/zhechord/internal/transport"
)

// The helpers below are the thin typed layer over transport.Client.Call:
// marshal/unmarshal the hex identifier, nothing more. remote.go builds the
// self-call-aware remote_* wrappers on top of these.

func (n *Node) postIDtoID(ctx context.Context, addr, path string, id ring.ID) (ring.Peer, error) {
	var resp transport.IDResponse
	if err := n.client.Call(ctx, addr, path, transport.IDRequest{ID: n.sp.Hex(id)}, &resp); err != nil {
		return ring.Peer{}, err
	}
	got, err := n.sp.FromHexString(resp.ID)
	if err != nil {
		return ring.Peer{}, err
	}
	return n.peerFor(got), nil
}

func (n *Node) postNoArgToID(ctx context.Context, addr, path string) (ring.Peer, error) {
	var resp transport.IDResponse
	if err := n.client.Call(ctx, addr, path, struct{}{}, &resp); err != nil {
		return ring.Peer{}, err
	}
	got, err := n.sp.FromHexString(resp.ID)
	if err != nil {
		return ring.Peer{}, err
	}
	return n.peerFor(got), nil
}

// postNoArgToOptionalID is postNoArgToID for the one response that may
// legitimately be empty: get_predecessor on a node that has none yet. An
// empty id maps to the zero Peer, not an error.
func (n *Node) postNoArgToOptionalID(ctx context.Context, addr, path string) (ring.Peer, error) {
	var resp transport.IDResponse
	if err := n.client.Call(ctx, addr, path, struct{}{}, &resp); err != nil {
		return ring.Peer{}, err
	}
	if resp.ID == "" {
		return ring.Peer{}, nil
	}
	got, err := n.sp.FromHexString(resp.ID)
	if err != nil {
		return ring.Peer{}, err
	}
	return n.peerFor(got), nil
}

func (n *Node) postIDtoNothing(ctx context.Context, addr, path string, id ring.ID) error {
	return n.client.Call(ctx, addr, path, transport.IDRequest{ID: n.sp.Hex(id)}, nil)
}

func (n *Node) postListQuery(ctx context.Context, addr, path string) ([]string, error) {
	var resp transport.ListResponse
	if err := n.client.Call(ctx, addr, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}
