package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type inputFile struct {
	path string
	size int64
}

// scanInputs lists the .txt files of the input directory with their sizes.
// Other files are ignored. An empty directory is legal and yields a job with
// no map tasks.
func scanInputs(dir string) ([]inputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", dir, err)
	}

	var inputs []inputFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		inputs = append(inputs, inputFile{
			path: filepath.Join(dir, entry.Name()),
			size: info.Size(),
		})
	}
	return inputs, nil
}

// balanceGroups distributes input files across at most n map task groups,
// keeping group byte sizes even: files are taken largest-first and each goes
// to the currently lightest group. With n >= len(inputs) every group holds
// exactly one file.
func balanceGroups(inputs []inputFile, n int) [][]string {
	if n > len(inputs) {
		n = len(inputs)
	}
	if n <= 0 {
		return nil
	}

	order := make([]int, len(inputs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return inputs[order[a]].size > inputs[order[b]].size
	})

	groups := make([][]string, n)
	sums := make([]int64, n)
	for _, idx := range order {
		lightest := 0
		for g := 1; g < n; g++ {
			if sums[g] < sums[lightest] {
				lightest = g
			}
		}
		groups[lightest] = append(groups[lightest], inputs[idx].path)
		sums[lightest] += inputs[idx].size
	}
	return groups
}
