package bootstrap

import (
	"fmt"

	"github.com/feng-zhe/zhechord/internal/ring"
)

// ContainerPrefix and FixedPort define the container naming convention: a
// node's dialable address is derived purely from its identifier, so an RPC
// response carrying only a bare id is enough to keep talking to that node
// without a side-channel address exchange. cmd/clusterctl is what actually
// makes a container named cr_<id> reachable on a shared network.
const (
	ContainerPrefix = "cr_"
	FixedPort       = 8000
)

// ContainerAddr returns the dialable address for a node identified by id,
// under the fixed container-naming convention.
func ContainerAddr(sp ring.Space, id ring.ID) string {
	return fmt.Sprintf("%s%s:%d", ContainerPrefix, sp.Hex(id), FixedPort)
}
