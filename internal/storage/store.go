package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/peterbourgon/diskv"

	"DistCount/internal/types"
)

// resultsKey names the merged, globally sorted output file.
const resultsKey = "results.txt"

// IntermediateKey names the file holding map task m's records for bucket b.
func IntermediateKey(mapIndex, bucket int) string {
	return fmt.Sprintf("mr-%d-%d", mapIndex, bucket)
}

// OutputKey names the final output file of one reduce bucket.
func OutputKey(bucket int) string {
	return fmt.Sprintf("out-%d", bucket)
}

// Store is a flat file-per-key store over one directory, used for both the
// intermediate and the output side of a job. Writes land in a temp dir and
// are renamed into place, so a partially executed task never publishes a
// partial file.
type Store struct {
	base string
	d    *diskv.Diskv
}

func NewStore(dir string) *Store {
	return &Store{
		base: dir,
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			TempDir:      dir + ".tmp",
			Transform:    func(s string) []string { return []string{} },
			CacheSizeMax: 0,
		}),
	}
}

// Reset clears the store's directory, recreating it empty. Called once at
// the start of each job run.
func (s *Store) Reset() error {
	if err := s.d.EraseAll(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.base, err)
	}
	if err := os.MkdirAll(s.base, 0755); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", s.base, err)
	}
	return nil
}

// WriteIntermediate publishes one map task's records for one bucket.
// An empty record list still publishes an empty file so readers can rely on
// every (map, bucket) pair existing.
func (s *Store) WriteIntermediate(mapIndex, bucket int, records []types.KeyValue) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return s.d.Write(IntermediateKey(mapIndex, bucket), buf.Bytes())
}

// ReadIntermediate returns the records map task m produced for bucket b.
// A missing file reads as an empty record list.
func (s *Store) ReadIntermediate(mapIndex, bucket int) ([]types.KeyValue, error) {
	key := IntermediateKey(mapIndex, bucket)
	if !s.d.Has(key) {
		return nil, nil
	}
	data, err := s.d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var records []types.KeyValue
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var kv types.KeyValue
		if err := dec.Decode(&kv); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("corrupt record in %s: %w", key, err)
		}
		records = append(records, kv)
	}
	return records, nil
}

// WriteOutput publishes the final output of one reduce bucket.
func (s *Store) WriteOutput(bucket int, data []byte) error {
	return s.d.Write(OutputKey(bucket), data)
}

// ReadOutput returns one reduce bucket's output, or nil if absent.
func (s *Store) ReadOutput(bucket int) ([]byte, error) {
	key := OutputKey(bucket)
	if !s.d.Has(key) {
		return nil, nil
	}
	return s.d.Read(key)
}

// WriteResults publishes the merged results file.
func (s *Store) WriteResults(data []byte) error {
	return s.d.Write(resultsKey, data)
}

// ReadResults returns the merged results file, or nil if absent.
func (s *Store) ReadResults() ([]byte, error) {
	if !s.d.Has(resultsKey) {
		return nil, nil
	}
	return s.d.Read(resultsKey)
}
