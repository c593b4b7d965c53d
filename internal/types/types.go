package types

// TaskKind distinguishes map tasks from reduce tasks.
type TaskKind string

const (
	KindMap    TaskKind = "map"
	KindReduce TaskKind = "reduce"
)

// TaskState represents the scheduling state of a task in the ledger.
type TaskState string

const (
	StateIdle       TaskState = "idle"
	StateInProgress TaskState = "in_progress"
	StateCompleted  TaskState = "completed"
)

// Phase is the job-wide phase. It only moves forward.
type Phase string

const (
	PhaseMapping  Phase = "mapping"
	PhaseReducing Phase = "reducing"
	PhaseDone     Phase = "done"
)

// KeyValue is the intermediate key-value pair produced by mappers.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TaskDescriptor is handed to a worker when a task is assigned.
// For a map task, Files holds the input file group; for a reduce task,
// Bucket names the reduce bucket and equals Index.
type TaskDescriptor struct {
	Kind    TaskKind `json:"kind"`
	Index   int      `json:"index"`
	Files   []string `json:"files,omitempty"`
	Bucket  int      `json:"bucket"`
	NMap    int      `json:"n_map"`
	NReduce int      `json:"n_reduce"`
}

// Boundary status strings shared by the driver and workers.
const (
	StatusOK    = "ok"
	StatusWait  = "wait"
	StatusDone  = "done"
	StatusStale = "stale"
)

// TaskResponse is the body of a successful GET /get_task.
type TaskResponse struct {
	Status string          `json:"status"`
	Task   *TaskDescriptor `json:"task,omitempty"`
}

// CompleteRequest is the body of POST /task_completed.
type CompleteRequest struct {
	WorkerID string   `json:"worker_id"`
	Kind     TaskKind `json:"kind"`
	Index    int      `json:"index"`
}

// CompleteResponse acknowledges a completion report.
type CompleteResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Phase                Phase             `json:"phase"`
	MapTasks             int               `json:"map_tasks"`
	ReduceTasks          int               `json:"reduce_tasks"`
	CompletedMapTasks    int               `json:"completed_map_tasks"`
	CompletedReduceTasks int               `json:"completed_reduce_tasks"`
	AllCompleted         bool              `json:"all_completed"`
	Members              map[string]string `json:"members,omitempty"`
}
