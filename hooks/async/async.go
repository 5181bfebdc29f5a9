// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/clusterstore"
//	"github.com/unkn0wn-root/clusterstore/hooks/async"
//	"github.com/unkn0wn-root/clusterstore/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    FieldDroppedEvery: 10, // sample logs: ~every 10th dropped field
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	store, _ := clusterstore.NewStore(clusterstore.StoreOptions{
//	    Directory: dir,
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/clusterstore"
)

type Hooks struct {
	inner clusterstore.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ clusterstore.Hooks = (*Hooks)(nil)

func New(inner clusterstore.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) FieldDropped(c clusterstore.ClusterID, field string) {
	h.try(func() { h.inner.FieldDropped(c, field) })
}

func (h *Hooks) TierMismatch(volatile, persistent []clusterstore.ClusterID) {
	h.try(func() { h.inner.TierMismatch(volatile, persistent) })
}
