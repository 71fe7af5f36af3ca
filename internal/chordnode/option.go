package chordnode

import (
	"github.com/feng-zhe/zhechord/internal/logger"
	"github.com/feng-zhe/zhechord/internal/ring"
)

// Option configures a Node at construction.
type Option func(*Node)

// WithLogger overrides the default no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) {
		n.lgr = l
	}
}

// WithRoutingTable supplies a pre-built routing table, e.g. one that has
// already been given a self identity distinct from the default deriver.
func WithRoutingTable(rt *ring.RoutingTable) Option {
	return func(n *Node) {
		n.rt = rt
	}
}

// WithAddressResolver overrides how a bare identifier is turned into a
// dialable address. The default is the container naming convention
// (bootstrap.ContainerAddr: prefix + hex id, fixed port).
func WithAddressResolver(resolve func(ring.ID) string) Option {
	return func(n *Node) {
		n.addrOf = resolve
	}
}
