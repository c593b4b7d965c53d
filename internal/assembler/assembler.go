package assembler

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/btree"

	"DistCount/internal/storage"
)

type entry struct {
	word  string
	count int64
}

func (e *entry) Less(than btree.Item) bool {
	return e.word < than.(*entry).word
}

// Merge reads every reduce bucket's output file and publishes one globally
// sorted results file aggregating all buckets. Buckets never produced (a
// vacuous job) read as empty.
func Merge(out *storage.Store, nReduce int) error {
	tr := btree.New(32)

	for b := 0; b < nReduce; b++ {
		data, err := out.ReadOutput(b)
		if err != nil {
			return fmt.Errorf("failed to read bucket %d: %w", b, err)
		}

		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			word, countStr, ok := strings.Cut(line, " ")
			if !ok {
				return fmt.Errorf("malformed line in bucket %d: %q", b, line)
			}
			count, err := strconv.ParseInt(countStr, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed count in bucket %d: %q", b, line)
			}

			if item := tr.Get(&entry{word: word}); item != nil {
				item.(*entry).count += count
			} else {
				tr.ReplaceOrInsert(&entry{word: word, count: count})
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to scan bucket %d: %w", b, err)
		}
	}

	var buf bytes.Buffer
	tr.Ascend(func(item btree.Item) bool {
		e := item.(*entry)
		fmt.Fprintf(&buf, "%s %d\n", e.word, e.count)
		return true
	})
	return out.WriteResults(buf.Bytes())
}
