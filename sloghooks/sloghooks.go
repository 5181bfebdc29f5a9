package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/clusterstore"
)

type Options struct {
	// Sampling to avoid floods on bulk stores; 0/1 = log all.
	FieldDroppedEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	droppedCtr atomic.Uint64
}

var _ clusterstore.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) FieldDropped(cluster clusterstore.ClusterID, field string) {
	if h.l == nil || !sample(h.opts.FieldDroppedEvery, &h.droppedCtr) {
		return
	}
	h.l.Debug("clusterstore.field_dropped",
		"cluster", int(cluster),
		"field", field)
}

func (h *Hooks) TierMismatch(volatile, persistent []clusterstore.ClusterID) {
	if h.l == nil {
		return
	}
	h.l.Error("clusterstore.tier_mismatch",
		"volatile", volatile,
		"persistent", persistent)
}
