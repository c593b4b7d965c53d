package worker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"DistCount/internal/partition"
	"DistCount/internal/storage"
	"DistCount/internal/types"
	"DistCount/internal/wordcount"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	base := t.TempDir()
	app := wordcount.New()
	return New(Opts{
		DriverURL:    "http://127.0.0.1:0", // never dialed in these tests
		Mapper:       app,
		Reducer:      app,
		Intermediate: storage.NewStore(filepath.Join(base, "intermediate")),
		Output:       storage.NewStore(filepath.Join(base, "out")),
		PollInterval: 10 * time.Millisecond,
	})
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	return path
}

func TestRunMapPartitionsRecords(t *testing.T) {
	w := newTestWorker(t)
	input := writeInput(t, "the cat sat on the mat")

	const nReduce = 3
	task := &types.TaskDescriptor{
		Kind:    types.KindMap,
		Index:   0,
		Files:   []string{input},
		NMap:    1,
		NReduce: nReduce,
	}
	if err := w.runMap(task); err != nil {
		t.Fatalf("runMap failed: %v", err)
	}

	total := 0
	for b := 0; b < nReduce; b++ {
		records, err := w.opts.Intermediate.ReadIntermediate(0, b)
		if err != nil {
			t.Fatalf("ReadIntermediate failed: %v", err)
		}
		for _, kv := range records {
			if got := partition.Bucket(kv.Key, nReduce); got != b {
				t.Fatalf("key %q landed in bucket %d, partitioner says %d", kv.Key, b, got)
			}
		}
		total += len(records)
	}
	if total != 6 {
		t.Fatalf("expected 6 records across buckets, got %d", total)
	}
}

func TestRunMapMissingInputAborts(t *testing.T) {
	w := newTestWorker(t)
	task := &types.TaskDescriptor{
		Kind:    types.KindMap,
		Index:   0,
		Files:   []string{filepath.Join(t.TempDir(), "missing.txt")},
		NMap:    1,
		NReduce: 2,
	}
	if err := w.runMap(task); err == nil {
		t.Fatal("expected error for missing input file")
	}

	// An aborted task must not publish any bucket.
	for b := 0; b < 2; b++ {
		records, err := w.opts.Intermediate.ReadIntermediate(0, b)
		if err != nil || records != nil {
			t.Fatalf("aborted map published bucket %d: %v, %v", b, records, err)
		}
	}
}

func TestRunReduceGroupsAndSorts(t *testing.T) {
	w := newTestWorker(t)

	// Two map tasks contributed to bucket 0.
	if err := w.opts.Intermediate.WriteIntermediate(0, 0, []types.KeyValue{
		{Key: "the", Value: "1"},
		{Key: "cat", Value: "1"},
	}); err != nil {
		t.Fatalf("WriteIntermediate failed: %v", err)
	}
	if err := w.opts.Intermediate.WriteIntermediate(1, 0, []types.KeyValue{
		{Key: "the", Value: "1"},
	}); err != nil {
		t.Fatalf("WriteIntermediate failed: %v", err)
	}

	task := &types.TaskDescriptor{
		Kind:    types.KindReduce,
		Index:   0,
		Bucket:  0,
		NMap:    2,
		NReduce: 1,
	}
	if err := w.runReduce(task); err != nil {
		t.Fatalf("runReduce failed: %v", err)
	}

	out, err := w.opts.Output.ReadOutput(0)
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	want := "cat 1\nthe 2\n"
	if string(out) != want {
		t.Fatalf("reduce output = %q, want %q", out, want)
	}
}

func TestMapThenReduceEndToEnd(t *testing.T) {
	w := newTestWorker(t)
	input := writeInput(t, "a b a c b a")

	const nReduce = 2
	if err := w.runMap(&types.TaskDescriptor{
		Kind: types.KindMap, Index: 0, Files: []string{input}, NMap: 1, NReduce: nReduce,
	}); err != nil {
		t.Fatalf("runMap failed: %v", err)
	}
	for b := 0; b < nReduce; b++ {
		if err := w.runReduce(&types.TaskDescriptor{
			Kind: types.KindReduce, Index: b, Bucket: b, NMap: 1, NReduce: nReduce,
		}); err != nil {
			t.Fatalf("runReduce failed: %v", err)
		}
	}

	counts := make(map[string]string)
	for b := 0; b < nReduce; b++ {
		out, err := w.opts.Output.ReadOutput(b)
		if err != nil {
			t.Fatalf("ReadOutput failed: %v", err)
		}
		for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
			if line == "" {
				continue
			}
			word, count, _ := strings.Cut(line, " ")
			counts[word] = count
		}
	}

	want := map[string]string{"a": "3", "b": "2", "c": "1"}
	for word, count := range want {
		if counts[word] != count {
			t.Fatalf("count for %q = %q, want %q (all: %v)", word, counts[word], count, counts)
		}
	}
}
