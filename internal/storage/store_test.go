package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"DistCount/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "intermediate"))
}

func TestIntermediateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	records := []types.KeyValue{
		{Key: "the", Value: "1"},
		{Key: "cat", Value: "1"},
		{Key: "the", Value: "1"},
	}
	if err := s.WriteIntermediate(2, 1, records); err != nil {
		t.Fatalf("WriteIntermediate failed: %v", err)
	}

	got, err := s.ReadIntermediate(2, 1)
	if err != nil {
		t.Fatalf("ReadIntermediate failed: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, records)
	}
}

func TestIntermediateFileNaming(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "intermediate")
	s := NewStore(dir)

	if err := s.WriteIntermediate(3, 7, nil); err != nil {
		t.Fatalf("WriteIntermediate failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mr-3-7")); err != nil {
		t.Fatalf("expected file mr-3-7 on disk: %v", err)
	}
}

func TestMissingIntermediateReadsEmpty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ReadIntermediate(9, 9)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if got != nil {
		t.Fatalf("missing file should read as empty, got %v", got)
	}
}

func TestEmptyBucketPublishes(t *testing.T) {
	s := newTestStore(t)

	if err := s.WriteIntermediate(0, 0, nil); err != nil {
		t.Fatalf("WriteIntermediate failed: %v", err)
	}
	got, err := s.ReadIntermediate(0, 0)
	if err != nil {
		t.Fatalf("ReadIntermediate failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %v", got)
	}
}

func TestResetClearsStore(t *testing.T) {
	s := newTestStore(t)

	if err := s.WriteIntermediate(0, 0, []types.KeyValue{{Key: "a", Value: "1"}}); err != nil {
		t.Fatalf("WriteIntermediate failed: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	got, err := s.ReadIntermediate(0, 0)
	if err != nil || got != nil {
		t.Fatalf("expected empty store after reset, got %v, %v", got, err)
	}

	// The store stays usable after a reset.
	if err := s.WriteIntermediate(1, 1, []types.KeyValue{{Key: "b", Value: "1"}}); err != nil {
		t.Fatalf("write after reset failed: %v", err)
	}
}

func TestOutputRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.WriteOutput(0, []byte("cat 1\nthe 2\n")); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	got, err := s.ReadOutput(0)
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	if string(got) != "cat 1\nthe 2\n" {
		t.Fatalf("output mismatch: %q", got)
	}

	if missing, err := s.ReadOutput(5); err != nil || missing != nil {
		t.Fatalf("missing output should read as nil, got %v, %v", missing, err)
	}
}
