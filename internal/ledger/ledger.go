package ledger

import (
	"errors"
	"sync"
	"time"

	"DistCount/internal/types"
)

// ErrAlreadyInitialized is returned when CreateJob is called twice.
var ErrAlreadyInitialized = errors.New("job already initialized")

// NextStatus is the verdict of a task request.
type NextStatus int

const (
	// NextAssigned means a task was leased to the caller.
	NextAssigned NextStatus = iota
	// NextWait means every task of the current phase is in flight; poll again.
	NextWait
	// NextDone means the job has finished; the worker can exit.
	NextDone
)

// CompleteStatus is the verdict of a completion report.
type CompleteStatus int

const (
	// CompleteOK acknowledges the report. Reported again for duplicate
	// reports of a task the same worker already completed.
	CompleteOK CompleteStatus = iota
	// CompleteStale means the task is no longer leased to the reporting
	// worker; its output is ignored.
	CompleteStale
)

type task struct {
	kind       types.TaskKind
	index      int
	state      types.TaskState
	worker     string
	assignedAt time.Time
	files      []string
}

// Ledger is the driver's authoritative record of every task. All state lives
// behind one mutex; the scan-and-lease in Next is atomic under it, so two
// workers can never receive the same idle task.
type Ledger struct {
	mu          sync.Mutex
	initialized bool
	phase       types.Phase
	maps        []*task
	reduces     []*task
}

func New() *Ledger {
	return &Ledger{phase: types.PhaseMapping}
}

// CreateJob initializes one map task per input group and nReduce reduce
// tasks, all idle. A job with zero map tasks opens directly in the reducing
// phase. Calling CreateJob on an initialized ledger fails.
func (l *Ledger) CreateJob(groups [][]string, nReduce int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return ErrAlreadyInitialized
	}

	l.maps = make([]*task, len(groups))
	for i, files := range groups {
		l.maps[i] = &task{
			kind:  types.KindMap,
			index: i,
			state: types.StateIdle,
			files: files,
		}
	}
	l.reduces = make([]*task, nReduce)
	for i := range l.reduces {
		l.reduces[i] = &task{
			kind:  types.KindReduce,
			index: i,
			state: types.StateIdle,
		}
	}

	l.phase = types.PhaseMapping
	if len(l.maps) == 0 {
		l.phase = types.PhaseReducing
		if nReduce == 0 {
			l.phase = types.PhaseDone
		}
	}
	l.initialized = true
	return nil
}

// Next leases the first idle task of the current phase, in index order, to
// workerID.
func (l *Ledger) Next(workerID string) (*types.TaskDescriptor, NextStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase == types.PhaseDone {
		return nil, NextDone
	}

	for _, t := range l.pool() {
		if t.state != types.StateIdle {
			continue
		}
		t.state = types.StateInProgress
		t.worker = workerID
		t.assignedAt = time.Now()
		return l.describe(t), NextAssigned
	}
	return nil, NextWait
}

// Complete transitions the named task to completed, provided it is still
// leased to workerID. A report for a task the same worker already completed
// is a benign no-op; any other mismatch is stale and leaves state untouched.
// Completing the last task of the current kind advances the phase.
func (l *Ledger) Complete(workerID string, kind types.TaskKind, index int) CompleteStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.lookup(kind, index)
	if t == nil || t.worker != workerID {
		return CompleteStale
	}
	if t.state == types.StateCompleted {
		return CompleteOK
	}
	if t.state != types.StateInProgress {
		return CompleteStale
	}

	t.state = types.StateCompleted
	l.advancePhase()
	return CompleteOK
}

// Sweep returns every in-progress task whose lease is older than timeout to
// idle, making it eligible for reassignment. This is the only fault-recovery
// mechanism; there are no worker heartbeats. Returns the number of tasks
// reassigned.
func (l *Ledger) Sweep(now time.Time, timeout time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	swept := 0
	for _, t := range append(append([]*task{}, l.maps...), l.reduces...) {
		if t.state != types.StateInProgress {
			continue
		}
		if now.Sub(t.assignedAt) <= timeout {
			continue
		}
		t.state = types.StateIdle
		t.worker = ""
		t.assignedAt = time.Time{}
		swept++
	}
	return swept
}

// Phase returns the current job phase.
func (l *Ledger) Phase() types.Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Done reports whether the job has finished.
func (l *Ledger) Done() bool {
	return l.Phase() == types.PhaseDone
}

// Counts returns completed and total task counts per kind.
func (l *Ledger) Counts() (mapsDone, nMap, reducesDone, nReduce int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.maps {
		if t.state == types.StateCompleted {
			mapsDone++
		}
	}
	for _, t := range l.reduces {
		if t.state == types.StateCompleted {
			reducesDone++
		}
	}
	return mapsDone, len(l.maps), reducesDone, len(l.reduces)
}

// TaskState returns the recorded state of one task, for inspection.
func (l *Ledger) TaskState(kind types.TaskKind, index int) (types.TaskState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.lookup(kind, index)
	if t == nil {
		return "", false
	}
	return t.state, true
}

// pool returns the tasks of the current phase. Caller holds the lock.
func (l *Ledger) pool() []*task {
	if l.phase == types.PhaseReducing {
		return l.reduces
	}
	return l.maps
}

func (l *Ledger) lookup(kind types.TaskKind, index int) *task {
	pool := l.maps
	if kind == types.KindReduce {
		pool = l.reduces
	}
	if index < 0 || index >= len(pool) {
		return nil
	}
	return pool[index]
}

// advancePhase moves mapping→reducing→done when every task of the current
// kind is completed. The phase never regresses. Caller holds the lock.
func (l *Ledger) advancePhase() {
	for _, t := range l.pool() {
		if t.state != types.StateCompleted {
			return
		}
	}
	switch l.phase {
	case types.PhaseMapping:
		l.phase = types.PhaseReducing
		if len(l.reduces) == 0 {
			l.phase = types.PhaseDone
		}
	case types.PhaseReducing:
		l.phase = types.PhaseDone
	}
}

func (l *Ledger) describe(t *task) *types.TaskDescriptor {
	d := &types.TaskDescriptor{
		Kind:    t.kind,
		Index:   t.index,
		NMap:    len(l.maps),
		NReduce: len(l.reduces),
	}
	if t.kind == types.KindMap {
		d.Files = t.files
	} else {
		d.Bucket = t.index
	}
	return d
}
