package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"DistCount/internal/logger"
	"DistCount/internal/partition"
	"DistCount/internal/storage"
	"DistCount/internal/types"
	"DistCount/internal/wordcount"
)

// maxTransportRetries bounds consecutive failures reaching the driver before
// the worker gives up. Task-level failures are never retried here; the
// driver's timeout sweep owns those.
const maxTransportRetries = 5

type Opts struct {
	DriverURL    string
	Mapper       wordcount.Mapper
	Reducer      wordcount.Reducer
	Intermediate *storage.Store
	Output       *storage.Store
	PollInterval time.Duration
}

// Worker polls the driver for tasks, executes them through the stores and
// reports completions. It holds at most one task at a time.
type Worker struct {
	id     string
	opts   Opts
	client *http.Client
	logger *logger.Logger
}

func New(opts Opts) *Worker {
	return &Worker{
		id:     "worker-" + uuid.New().String()[:8],
		opts:   opts,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.New("INFO"),
	}
}

// ID returns the worker's identity as seen by the driver.
func (w *Worker) ID() string {
	return w.id
}

// Run loops request → execute → report until the driver signals job done.
// A task that fails mid-execution is abandoned without a report; the driver
// reassigns it after the lease times out.
func (w *Worker) Run() error {
	transportFailures := 0

	for {
		desc, status, err := w.requestTask()
		if err != nil {
			transportFailures++
			if transportFailures >= maxTransportRetries {
				return fmt.Errorf("driver unreachable after %d attempts: %w", transportFailures, err)
			}
			backoff := w.opts.PollInterval << transportFailures
			w.logger.Warn("[%s] Driver unreachable, retrying in %v: %v", w.id, backoff, err)
			time.Sleep(backoff)
			continue
		}
		transportFailures = 0

		switch status {
		case types.StatusDone:
			w.logger.Info("[%s] Job done, exiting", w.id)
			return nil
		case types.StatusWait:
			time.Sleep(w.opts.PollInterval)
			continue
		}

		var execErr error
		if desc.Kind == types.KindMap {
			execErr = w.runMap(desc)
		} else {
			execErr = w.runReduce(desc)
		}
		if execErr != nil {
			w.logger.Error("[%s] Abandoning %s task %d: %v", w.id, desc.Kind, desc.Index, execErr)
			continue
		}

		if err := w.report(desc); err != nil {
			w.logger.Warn("[%s] Failed to report %s task %d: %v", w.id, desc.Kind, desc.Index, err)
		}
	}
}

// runMap reads the task's input files, routes every record to its reduce
// bucket and publishes all buckets. Buckets are buffered in memory and
// published atomically, so a timed-out re-execution can never observe a
// partial file.
func (w *Worker) runMap(t *types.TaskDescriptor) error {
	buckets := make([][]types.KeyValue, t.NReduce)

	for _, name := range t.Files {
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read input %s: %w", name, err)
		}
		records, err := w.opts.Mapper.Map(name, string(data))
		if err != nil {
			return fmt.Errorf("mapper failed on %s: %w", name, err)
		}
		for _, kv := range records {
			b := partition.Bucket(kv.Key, t.NReduce)
			buckets[b] = append(buckets[b], kv)
		}
	}

	for b := 0; b < t.NReduce; b++ {
		if err := w.opts.Intermediate.WriteIntermediate(t.Index, b, buckets[b]); err != nil {
			return fmt.Errorf("failed to publish bucket %d: %w", b, err)
		}
	}
	return nil
}

// runReduce reads this bucket's records from every map task, groups values
// by key and publishes one sorted output file.
func (w *Worker) runReduce(t *types.TaskDescriptor) error {
	grouped := make(map[string][]string)
	for i := 0; i < t.NMap; i++ {
		records, err := w.opts.Intermediate.ReadIntermediate(i, t.Bucket)
		if err != nil {
			return err
		}
		for _, kv := range records {
			grouped[kv.Key] = append(grouped[kv.Key], kv.Value)
		}
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		v, err := w.opts.Reducer.Reduce(k, grouped[k])
		if err != nil {
			return fmt.Errorf("reducer failed on key %q: %w", k, err)
		}
		fmt.Fprintf(&buf, "%v %v\n", k, v)
	}
	return w.opts.Output.WriteOutput(t.Bucket, buf.Bytes())
}

func (w *Worker) requestTask() (*types.TaskDescriptor, string, error) {
	u := fmt.Sprintf("%s/get_task?worker_id=%s", w.opts.DriverURL, url.QueryEscape(w.id))
	resp, err := w.client.Get(u)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, types.StatusDone, nil
	case http.StatusAccepted:
		return nil, types.StatusWait, nil
	case http.StatusOK:
		var tr types.TaskResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return nil, "", fmt.Errorf("malformed task response: %w", err)
		}
		if tr.Task == nil {
			return nil, "", fmt.Errorf("task response without a task")
		}
		return tr.Task, types.StatusOK, nil
	default:
		return nil, "", fmt.Errorf("unexpected status %d from driver", resp.StatusCode)
	}
}

// report posts the completion. A stale verdict is logged and swallowed: the
// task was reassigned while this worker held it, and the newer lease owns
// the authoritative output.
func (w *Worker) report(t *types.TaskDescriptor) error {
	body, err := json.Marshal(types.CompleteRequest{
		WorkerID: w.id,
		Kind:     t.Kind,
		Index:    t.Index,
	})
	if err != nil {
		return err
	}

	resp, err := w.client.Post(w.opts.DriverURL+"/task_completed", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var cr types.CompleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return fmt.Errorf("malformed completion response: %w", err)
	}
	if cr.Status == types.StatusStale {
		w.logger.Warn("[%s] Completion for %s task %d was stale", w.id, t.Kind, t.Index)
	}
	return nil
}
