package workerpool

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// Table is the fixed-capacity worker fleet: every live Worker indexed by
// ID, plus an idle free-list kept as a FIFO so load is spread round-robin
// (§4.5). Generation tracks the "recycle all workers" epoch (SIGUSR1 /
// canary-file deletion): workers spawned before a RecycleAll call are
// routed away from as soon as they go idle, satisfying "new requests are
// routed only to freshly spawned workers."
type Table struct {
	mu         sync.Mutex
	workers    map[uint64]*Worker
	idle       *queue.Queue
	nextID     uint64
	generation int

	MaxWorkers      int
	MinWorkers      int
	IdleHangover    time.Duration
	MaxRequests     int
	MaxWorkerLife   time.Duration
}

// NewTable builds an empty fleet bounded by maxWorkers/minWorkers.
func NewTable(maxWorkers, minWorkers int, idleHangover time.Duration, maxRequests int, maxWorkerLife time.Duration) *Table {
	return &Table{
		workers:       make(map[uint64]*Worker),
		idle:          queue.New(),
		MaxWorkers:    maxWorkers,
		MinWorkers:    minWorkers,
		IdleHangover:  idleHangover,
		MaxRequests:   maxRequests,
		MaxWorkerLife: maxWorkerLife,
	}
}

// NextID allocates a fleet-unique worker id.
func (t *Table) NextID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return t.nextID
}

// Generation returns the current recycle epoch.
func (t *Table) Generation() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Add registers a newly spawned worker and, once it reports READY, makes
// it eligible for assignment via MarkIdleAndEnqueue.
func (t *Table) Add(w *Worker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.workers[w.ID] = w
}

// Remove drops a worker from the fleet (after it has been reaped).
func (t *Table) Remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.workers, id)
}

// Get looks up a worker by id.
func (t *Table) Get(id uint64) (*Worker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.workers[id]
	return w, ok
}

// Count returns the number of workers currently tracked, regardless of state.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.workers)
}

// Snapshot returns every tracked worker (for reaping, metrics, debug dumps).
func (t *Table) Snapshot() []*Worker {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Worker, 0, len(t.workers))
	for _, w := range t.workers {
		out = append(out, w)
	}
	return out
}

// MarkIdleAndEnqueue transitions w to Idle and appends it to the FIFO
// free-list, unless it belongs to a stale generation, in which case it is
// stopped instead (§4.3 recycle trigger: idle workers from a superseded
// generation are retired immediately, with no in-flight loss since they
// are, by definition, not serving anything right now).
func (t *Table) MarkIdleAndEnqueue(w *Worker) {
	t.mu.Lock()
	stale := w.Generation() != t.generation
	t.mu.Unlock()
	if stale {
		w.MarkStopping()
		return
	}
	w.MarkIdle()
	t.mu.Lock()
	t.idle.Add(w)
	t.mu.Unlock()
}

// AcquireIdle pops the front of the FIFO free-list, skipping any worker
// that is no longer actually idle (e.g. reaped between enqueue and pop)
// or that is stale, and returns it bound for Processing. Returns false
// when no usable idle worker is available.
func (t *Table) AcquireIdle() (*Worker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.idle.Length() > 0 {
		v := t.idle.Remove()
		w, ok := v.(*Worker)
		if !ok {
			continue
		}
		if w.State() != Idle {
			continue
		}
		if w.Generation() != t.generation {
			w.MarkStopping()
			continue
		}
		w.MarkProcessing()
		return w, true
	}
	return nil, false
}

// IdleCount reports how many workers are presently sitting in the FIFO
// free-list (an upper bound — some entries may be stale and get skipped
// by AcquireIdle).
func (t *Table) IdleCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle.Length()
}

// NeedsSpawn implements the scaling-up rule in §4.5: "if idle count = 0
// and total < maxWorkers and request queue depth > 0, spawn one."
func (t *Table) NeedsSpawn(pendingDepth int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle.Length() == 0 && len(t.workers) < t.MaxWorkers && pendingDepth > 0
}

// OverIdleWorkers returns the idle workers beyond MinWorkers, oldest
// enqueued first, for the caller to stop. It does not consult now or
// IdleHangover: a worker is returned as soon as the idle count is over
// MinWorkers, however briefly it has been idle.
func (t *Table) OverIdleWorkers(now time.Time) []*Worker {
	t.mu.Lock()
	idleN := t.idle.Length()
	over := idleN - t.MinWorkers
	if over <= 0 {
		t.mu.Unlock()
		return nil
	}
	candidates := make([]*Worker, 0, idleN)
	for i := 0; i < idleN; i++ {
		if v, ok := t.idle.Get(i).(*Worker); ok {
			candidates = append(candidates, v)
		}
	}
	t.mu.Unlock()

	var out []*Worker
	for _, w := range candidates {
		if len(out) >= over {
			break
		}
		if w.State() != Idle {
			continue
		}
		out = append(out, w)
	}
	return out
}

// RecycleAll bumps the fleet generation: every worker currently tracked
// belongs to a now-stale generation. Idle workers are retired the next
// time they're popped or re-enqueued; Processing workers finish their
// current request and are retired when MarkIdleAndEnqueue sees their
// stale generation.
func (t *Table) RecycleAll() {
	t.mu.Lock()
	t.generation++
	t.mu.Unlock()
}

// ReapDead removes workers in the Dead state from the table, returning
// the ones removed so the caller can log/emit metrics.
func (t *Table) ReapDead() []*Worker {
	t.mu.Lock()
	defer t.mu.Unlock()
	var reaped []*Worker
	for id, w := range t.workers {
		if w.State() == Dead {
			reaped = append(reaped, w)
			delete(t.workers, id)
		}
	}
	return reaped
}
