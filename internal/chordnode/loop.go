package chordnode

import (
	"context"
	"math/rand"
	"time"

	"github.com/feng-zhe/zhechord/internal/logger"
	"github.com/feng-zhe/zhechord/internal/telemetry"
)

// MaintenanceLoop is the single periodic worker: stabilize, then
// fix_fingers over every index, then sleep a randomised interval in
// [min,max] before repeating — until ctx is cancelled. The interval is
// randomised so rounds never synchronise into storms across the ring. A
// panic recovered from either step is logged and the loop continues.
//
// Predecessor liveness is part of stabilize's first step; there is no
// separate check-predecessor ticker.
func (n *Node) MaintenanceLoop(ctx context.Context, minInterval, maxInterval time.Duration) {
	for {
		n.runRoundSafely(ctx)

		interval := minInterval
		if maxInterval > minInterval {
			interval += time.Duration(rand.Int63n(int64(maxInterval - minInterval)))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (n *Node) runRoundSafely(ctx context.Context) {
	ctx, span := telemetry.Tracer().Start(ctx, "maintenance.round")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			n.lgr.Error("maintenance round panicked, continuing", logger.F("recovered", r))
		}
	}()
	n.Stabilize(ctx)
	n.FixFingers(ctx, true)
}
