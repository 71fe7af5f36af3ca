package chordnode

import (
	"context"
	"errors"
	"math/rand"

	"github.com/feng-zhe/zhechord/internal/logger"
	"github.com/feng-zhe/zhechord/internal/ring"
	"github.com/feng-zhe/zhechord/internal/transport"
)

// Stabilize is the periodic ring-repair procedure: verify predecessor
// liveness, recover from a dead successor, pull in a better successor if
// one surfaced, notify the successor, and refresh the backup list.
// Connection errors are swallowed and logged per step — one bad peer must
// never kill the maintenance loop.
func (n *Node) Stabilize(ctx context.Context) {
	n.checkPredecessorLiveness(ctx)

	succ, err := n.stabilizeSuccessor(ctx)
	if err != nil {
		n.lgr.Warn("stabilize: no live successor found", logger.F("err", err))
		return
	}

	x, err := n.remoteGetPredecessor(ctx, succ)
	if err == nil && !x.IsZero() {
		if _, aliveErr := n.remoteGetSuccessor(ctx, x); aliveErr == nil {
			if n.sp.InRangeEE(x.ID, n.rt.Self().ID, succ.ID) {
				n.rt.SetSuccessor(x)
				succ = x
			}
		}
	}

	if err := n.remoteNotify(ctx, succ, n.rt.Self().ID); err != nil {
		n.lgr.Debug("stabilize: notify failed, will be rediscovered next round",
			logger.F("successor", n.sp.Hex(succ.ID)), logger.F("err", err))
	}

	n.refreshBackupSuccessors(ctx)
}

// checkPredecessorLiveness probes the current predecessor and, on
// connection failure, fails over to the first live backup successor. The
// next notify round corrects the pointer if the backup is on the wrong
// side of the ring.
func (n *Node) checkPredecessorLiveness(ctx context.Context) {
	pred := n.rt.Predecessor()
	if pred.IsZero() {
		return
	}
	if _, err := n.remoteGetSuccessor(ctx, pred); err != nil {
		if !errors.Is(err, transport.ErrUnreachable) {
			n.lgr.Warn("stabilize: predecessor liveness check failed with a non-connection error",
				logger.F("predecessor", n.sp.Hex(pred.ID)), logger.F("err", err))
			return
		}
		backup, bErr := n.aliveBackupSuccessor(ctx)
		if bErr != nil {
			n.lgr.Warn("stabilize: predecessor dead and no alive backup to replace it with",
				logger.F("predecessor", n.sp.Hex(pred.ID)), logger.F("err", bErr))
			return
		}
		n.lgr.Info("stabilize: predecessor unreachable, failing over",
			logger.F("dead", n.sp.Hex(pred.ID)), logger.F("replacement", n.sp.Hex(backup.ID)))
		n.rt.SetPredecessor(backup)
	}
}

// stabilizeSuccessor probes the successor's predecessor, and if the
// successor itself is unreachable, declares it dead and retries against the
// next backup until one probe succeeds.
func (n *Node) stabilizeSuccessor(ctx context.Context) (ring.Peer, error) {
	for {
		succ := n.rt.Successor()
		_, err := n.remoteGetPredecessor(ctx, succ)
		if err == nil {
			return succ, nil
		}
		if !errors.Is(err, transport.ErrUnreachable) {
			// A malformed response is a protocol violation, not proof of
			// death; give up on this round instead of removing the peer.
			return ring.Peer{}, err
		}
		n.lgr.Info("stabilize: successor unreachable, removing",
			logger.F("dead", n.sp.Hex(succ.ID)))
		if err := n.removeDead(ctx, succ.ID); err != nil {
			return ring.Peer{}, err
		}
	}
}

// Notify handles the advisory "I believe I am your predecessor" call.
// Accepted only if we have no predecessor, or candidate is strictly between
// the current predecessor and self. Idempotent; stale duplicates lose.
func (n *Node) Notify(candidate ring.Peer) {
	pred := n.rt.Predecessor()
	if pred.IsZero() || n.sp.InRangeEE(candidate.ID, pred.ID, n.rt.Self().ID) {
		n.rt.SetPredecessor(candidate)
		n.lgr.Debug("notify: accepted new predecessor", logger.F("predecessor", n.sp.Hex(candidate.ID)))
	}
}

// FixFingers refreshes finger-table entries. loop=true walks every index in
// order (the maintenance round does this once per cycle); loop=false
// samples a single random index, for callers that want cheaper,
// higher-frequency refresh ticks.
func (n *Node) FixFingers(ctx context.Context, loop bool) {
	m := n.sp.Bits
	if loop {
		for i := 1; i <= m; i++ {
			n.fixFinger(ctx, i)
		}
		return
	}
	n.fixFinger(ctx, 1+rand.Intn(m))
}

func (n *Node) fixFinger(ctx context.Context, i int) {
	start, ok := n.rt.FingerEntryStart(i)
	if !ok {
		return
	}
	succ, err := n.FindSuccessor(ctx, start)
	if err != nil {
		n.lgr.Debug("fix_fingers: lookup failed", logger.F("index", i), logger.F("err", err))
		return
	}
	if _, err := n.remoteGetSuccessor(ctx, succ); err != nil {
		if !errors.Is(err, transport.ErrUnreachable) {
			n.lgr.Warn("fix_fingers: liveness probe returned a non-connection error",
				logger.F("index", i), logger.F("err", err))
			return
		}
		backup, bErr := n.aliveBackupSuccessor(ctx)
		if bErr != nil {
			n.lgr.Warn("fix_fingers: candidate dead and no alive backup", logger.F("index", i), logger.F("err", bErr))
			return
		}
		succ = backup
	}
	n.rt.SetFingerNode(i, succ)
}

// CheckPredecessor runs the predecessor liveness probe on its own, for
// callers (e.g. a faster-cadence ticker) that want to detect a dead
// predecessor without a whole stabilize round.
func (n *Node) CheckPredecessor(ctx context.Context) {
	n.checkPredecessorLiveness(ctx)
}

// refreshBackupSuccessors rebuilds the backup-successor list by walking the
// ring forward k steps from the current successor. A step that fails keeps
// its previous entry — the list is retried wholesale next round.
func (n *Node) refreshBackupSuccessors(ctx context.Context) {
	k := n.sp.BackupCount
	backups := n.rt.BackupSuccessors()
	next := make([]ring.Peer, k)
	t := n.rt.Successor()
	for i := 0; i < k; i++ {
		cand, err := n.FindSuccessor(ctx, n.sp.Add(t.ID, 1))
		if err != nil {
			if i < len(backups) {
				next[i] = backups[i]
			} else {
				next[i] = t
			}
			continue
		}
		if _, err := n.remoteGetSuccessor(ctx, cand); err != nil {
			if i < len(backups) {
				next[i] = backups[i]
			} else {
				next[i] = t
			}
			continue
		}
		next[i] = cand
		t = cand
	}
	n.rt.SetBackupSuccessors(next)
}

// aliveBackupSuccessor scans the backup list in order and returns the first
// entry that answers a liveness probe. No alive backup at all means the
// node is partitioned from the ring: callers log and carry on, and the node
// is repaired only when a peer next calls notify.
func (n *Node) aliveBackupSuccessor(ctx context.Context) (ring.Peer, error) {
	for _, b := range n.rt.BackupSuccessors() {
		if b.IsZero() {
			continue
		}
		if _, err := n.remoteGetSuccessor(ctx, b); err == nil {
			return b, nil
		}
	}
	return ring.Peer{}, errors.New("chordnode: no alive backup successor, node is partitioned from the ring")
}

// removeDead obtains one alive backup and replaces every finger-table entry
// equal to dead with it. The successor slot is finger[1], so a dead
// successor is replaced by the same sweep.
func (n *Node) removeDead(ctx context.Context, dead ring.ID) error {
	backup, err := n.aliveBackupSuccessor(ctx)
	if err != nil {
		return err
	}
	replaced := n.rt.ReplaceDeadFingers(dead, backup)
	n.lgr.Info("removed dead node from finger table",
		logger.F("dead", n.sp.Hex(dead)),
		logger.F("replacement", n.sp.Hex(backup.ID)),
		logger.F("entries", replaced))
	return nil
}
