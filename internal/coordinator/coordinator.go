package coordinator

import (
	"fmt"
	"sync"
	"time"

	"DistCount/internal/config"
	"DistCount/internal/discovery"
	"DistCount/internal/ledger"
	"DistCount/internal/logger"
	"DistCount/internal/storage"
	"DistCount/internal/types"
)

// Coordinator is the driver side of a job: it owns the task ledger, prepares
// the stores and input groups, and translates worker protocol calls into
// ledger transitions.
type Coordinator struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	inter  *storage.Store
	out    *storage.Store
	pool   *discovery.Pool
	logger *logger.Logger

	done     chan struct{}
	doneOnce sync.Once
}

func New(cfg *config.Config) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		ledger: ledger.New(),
		inter:  storage.NewStore(cfg.Directories.Intermediate),
		out:    storage.NewStore(cfg.Directories.Output),
		logger: logger.New("INFO"),
		done:   make(chan struct{}),
	}
}

// Start clears the intermediate and output directories, scans the input
// directory and creates the job. Calling Start twice fails.
func (c *Coordinator) Start() error {
	if err := c.inter.Reset(); err != nil {
		return err
	}
	if err := c.out.Reset(); err != nil {
		return err
	}

	inputs, err := scanInputs(c.cfg.Directories.Input)
	if err != nil {
		return err
	}
	groups := balanceGroups(inputs, c.cfg.MapReduce.NumMapTasks)

	if err := c.ledger.CreateJob(groups, c.cfg.MapReduce.NumReduceTasks); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	c.logger.Info("Job created: map_tasks=%d reduce_tasks=%d input_files=%d",
		len(groups), c.cfg.MapReduce.NumReduceTasks, len(inputs))
	c.checkDone()
	return nil
}

// SetPool attaches an optional discovery pool whose membership is surfaced
// by Status.
func (c *Coordinator) SetPool(p *discovery.Pool) {
	c.pool = p
}

// NextTask serves a worker's task request. Expired leases are swept first,
// so a dead worker's task becomes assignable on the next request that
// arrives after the timeout.
func (c *Coordinator) NextTask(workerID string) (*types.TaskDescriptor, ledger.NextStatus) {
	c.sweep()

	desc, status := c.ledger.Next(workerID)
	if status == ledger.NextAssigned {
		c.logger.Info("Task assigned: worker=%s kind=%s index=%d", workerID, desc.Kind, desc.Index)
	}
	return desc, status
}

// CompleteTask serves a worker's completion report. Stale reports are logged
// and ignored; they are not worker failures.
func (c *Coordinator) CompleteTask(workerID string, kind types.TaskKind, index int) ledger.CompleteStatus {
	c.sweep()

	verdict := c.ledger.Complete(workerID, kind, index)
	if verdict == ledger.CompleteStale {
		c.logger.Warn("Stale completion ignored: worker=%s kind=%s index=%d", workerID, kind, index)
		return verdict
	}

	c.logger.Info("Task completed: worker=%s kind=%s index=%d phase=%s", workerID, kind, index, c.ledger.Phase())
	c.checkDone()
	return verdict
}

// Status returns a snapshot for the status endpoint.
func (c *Coordinator) Status() types.StatusResponse {
	mapsDone, nMap, reducesDone, nReduce := c.ledger.Counts()
	resp := types.StatusResponse{
		Phase:                c.ledger.Phase(),
		MapTasks:             nMap,
		ReduceTasks:          nReduce,
		CompletedMapTasks:    mapsDone,
		CompletedReduceTasks: reducesDone,
		AllCompleted:         c.ledger.Done(),
	}
	if c.pool != nil {
		resp.Members = c.pool.Members()
	}
	return resp
}

// Done reports whether the job has finished.
func (c *Coordinator) Done() bool {
	return c.ledger.Done()
}

// DoneChan is closed once the job reaches the done phase.
func (c *Coordinator) DoneChan() <-chan struct{} {
	return c.done
}

// OutputStore exposes the output store for the result assembler.
func (c *Coordinator) OutputStore() *storage.Store {
	return c.out
}

// NumReduceTasks returns the configured reduce bucket count.
func (c *Coordinator) NumReduceTasks() int {
	return c.cfg.MapReduce.NumReduceTasks
}

func (c *Coordinator) sweep() {
	if swept := c.ledger.Sweep(time.Now(), c.cfg.TaskSettings.TaskTimeout.Std()); swept > 0 {
		c.logger.Warn("Reassigned %d timed-out task(s)", swept)
	}
}

func (c *Coordinator) checkDone() {
	if c.ledger.Done() {
		c.doneOnce.Do(func() {
			c.logger.Info("All tasks completed")
			close(c.done)
		})
	}
}
