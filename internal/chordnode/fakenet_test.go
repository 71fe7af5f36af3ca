package chordnode

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/feng-zhe/zhechord/internal/ring"
	"github.com/feng-zhe/zhechord/internal/store"
	"github.com/feng-zhe/zhechord/internal/transport"
)

// fakeNetwork is an in-process stand-in for the HTTP transport: every node
// in a test ring registers its RPCHandler under its fake address, and Call
// dispatches request/response JSON exactly the way transport.Server does.
// Killing an address makes every call to it fail with ErrUnreachable, which
// is how the failure-drill tests simulate a crashed node.
type fakeNetwork struct {
	mu       sync.Mutex
	handlers map[string]*RPCHandler
	dead     map[string]bool
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		handlers: make(map[string]*RPCHandler),
		dead:     make(map[string]bool),
	}
}

func (f *fakeNetwork) register(addr string, h *RPCHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[addr] = h
}

func (f *fakeNetwork) kill(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead[addr] = true
}

func (f *fakeNetwork) lookup(addr string) (*RPCHandler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead[addr] || f.handlers[addr] == nil {
		return nil, fmt.Errorf("%w: %s", transport.ErrUnreachable, addr)
	}
	return f.handlers[addr], nil
}

// Call implements the Caller interface. The handler is invoked outside the
// network lock because Chord RPCs re-enter the network (find_predecessor on
// one node issues closest_preceding_finger calls to others).
func (f *fakeNetwork) Call(ctx context.Context, addr, path string, body, out any) error {
	h, err := f.lookup(addr)
	if err != nil {
		return err
	}

	var resp any
	switch path {
	case transport.PathFindPredecessor:
		req, err := reqAs[transport.IDRequest](body)
		if err != nil {
			return err
		}
		id, err := h.FindPredecessor(ctx, req.ID)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.IDResponse{ID: id}
	case transport.PathFindSuccessor:
		req, err := reqAs[transport.IDRequest](body)
		if err != nil {
			return err
		}
		id, err := h.FindSuccessor(ctx, req.ID)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.IDResponse{ID: id}
	case transport.PathClosestPrecedingFinger:
		req, err := reqAs[transport.IDRequest](body)
		if err != nil {
			return err
		}
		id, err := h.ClosestPrecedingFinger(ctx, req.ID)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.IDResponse{ID: id}
	case transport.PathGetPredecessor:
		id, err := h.GetPredecessor(ctx)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.IDResponse{ID: id}
	case transport.PathGetSuccessor:
		id, err := h.GetSuccessor(ctx)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.IDResponse{ID: id}
	case transport.PathSetPredecessor:
		req, err := reqAs[transport.IDRequest](body)
		if err != nil {
			return err
		}
		if err := h.SetPredecessor(ctx, req.ID); err != nil {
			return handlerErr(addr, path, err)
		}
	case transport.PathSetSuccessor:
		req, err := reqAs[transport.IDRequest](body)
		if err != nil {
			return err
		}
		if err := h.SetSuccessor(ctx, req.ID); err != nil {
			return handlerErr(addr, path, err)
		}
	case transport.PathNotify:
		req, err := reqAs[transport.IDRequest](body)
		if err != nil {
			return err
		}
		if err := h.Notify(ctx, req.ID); err != nil {
			return handlerErr(addr, path, err)
		}
	case transport.PathPut:
		req, err := reqAs[transport.PutRequest](body)
		if err != nil {
			return err
		}
		if err := h.Put(ctx, req.Key, req.Value); err != nil {
			return handlerErr(addr, path, err)
		}
	case transport.PathGet:
		req, err := reqAs[transport.GetRequest](body)
		if err != nil {
			return err
		}
		value, _, err := h.Get(ctx, req.Key)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.GetResponse{Value: value}
	case transport.PathDisplayFingerTable:
		result, err := h.DisplayFingerTable(ctx)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.ListResponse{Result: result}
	case transport.PathDisplayBackupSucc:
		result, err := h.DisplayBackupSucc(ctx)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.ListResponse{Result: result}
	case transport.PathDisplayData:
		result, err := h.DisplayData(ctx)
		if err != nil {
			return handlerErr(addr, path, err)
		}
		resp = transport.MapResponse{Result: result}
	default:
		return fmt.Errorf("fakenet: unknown path %s", path)
	}

	if out == nil || resp == nil {
		return nil
	}
	return roundTrip(resp, out)
}

// handlerErr mirrors a real 400 response: a plain error that does NOT wrap
// ErrUnreachable, since the peer itself answered.
func handlerErr(addr, path string, err error) error {
	return fmt.Errorf("fakenet: %s%s returned error: %v", addr, path, err)
}

// reqAs re-encodes the request body the way the wire would, so the fake
// exercises the same JSON shapes the HTTP transport ships.
func reqAs[T any](body any) (T, error) {
	var req T
	if err := roundTrip(body, &req); err != nil {
		return req, fmt.Errorf("fakenet: decode request: %w", err)
	}
	return req, nil
}

func roundTrip(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// testRing wires nodes with a shared fake network and an address resolver
// that maps identifiers to fake addresses.
type testRing struct {
	t    *testing.T
	sp   ring.Space
	net  *fakeNetwork
	byID map[string]*Node
}

func newTestRing(t *testing.T, bits, backups int) *testRing {
	t.Helper()
	sp, err := ring.NewSpace(bits, backups)
	if err != nil {
		t.Fatalf("NewSpace(%d, %d): %v", bits, backups, err)
	}
	return &testRing{
		t:    t,
		sp:   sp,
		net:  newFakeNetwork(),
		byID: make(map[string]*Node),
	}
}

func (r *testRing) addr(id ring.ID) string {
	return "node-" + r.sp.Hex(id)
}

// node creates a node with the given identifier and registers it on the
// fake network. It does not join; callers drive CreateNewDHT/Join.
func (r *testRing) node(idVal int64) *Node {
	r.t.Helper()
	id := r.sp.FromInt64(idVal)
	self := ring.Peer{ID: id, Addr: r.addr(id)}
	n := New(r.sp, self, r.net, store.New(),
		WithAddressResolver(func(target ring.ID) string { return r.addr(target) }),
	)
	r.net.register(self.Addr, NewRPCHandler(n))
	r.byID[r.sp.Hex(id)] = n
	return n
}

// kill crashes a node: every subsequent call to it fails as unreachable.
func (r *testRing) kill(n *Node) {
	r.net.kill(n.Self().Addr)
}

// rounds runs count full maintenance rounds (stabilize then fix_fingers)
// over the given nodes, in order.
func (r *testRing) rounds(ctx context.Context, count int, nodes ...*Node) {
	for i := 0; i < count; i++ {
		for _, n := range nodes {
			n.Stabilize(ctx)
			n.FixFingers(ctx, true)
		}
	}
}

// fingerIDs returns the finger[1..m].node identifiers as int64s, for
// compact assertions on small rings.
func (r *testRing) fingerIDs(n *Node) []int64 {
	var out []int64
	for i := 1; i <= r.sp.Bits; i++ {
		node, ok := n.rt.FingerEntryNode(i)
		if !ok {
			r.t.Fatalf("finger %d missing", i)
		}
		out = append(out, idToInt64(r.t, r.sp, node.ID))
	}
	return out
}

func idToInt64(t *testing.T, sp ring.Space, id ring.ID) int64 {
	t.Helper()
	var v int64
	if _, err := fmt.Sscanf(sp.Hex(id), "%x", &v); err != nil {
		t.Fatalf("parse id %s: %v", sp.Hex(id), err)
	}
	return v
}
