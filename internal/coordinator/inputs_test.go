package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeInputs(t *testing.T, dir string, sizes []int) {
	t.Helper()
	for i, size := range sizes {
		data := strings.Repeat("x", size)
		name := filepath.Join(dir, fmt.Sprintf("file_%d.txt", i))
		if err := os.WriteFile(name, []byte(data), 0644); err != nil {
			t.Fatalf("failed to write input: %v", err)
		}
	}
}

func TestScanInputsFiltersNonTxt(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir, []int{10, 20, 30})
	if err := os.WriteFile(filepath.Join(dir, "ignored.pdf"), []byte("nope"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir.txt"), 0755); err != nil {
		t.Fatalf("failed to make dir: %v", err)
	}

	inputs, err := scanInputs(dir)
	if err != nil {
		t.Fatalf("scanInputs failed: %v", err)
	}
	if len(inputs) != 3 {
		t.Fatalf("expected 3 inputs, got %d", len(inputs))
	}
	for _, in := range inputs {
		if !strings.HasSuffix(in.path, ".txt") {
			t.Fatalf("non-txt input leaked through: %s", in.path)
		}
	}
}

func TestScanInputsEmptyDirectory(t *testing.T) {
	inputs, err := scanInputs(t.TempDir())
	if err != nil {
		t.Fatalf("scanInputs failed: %v", err)
	}
	if len(inputs) != 0 {
		t.Fatalf("expected no inputs, got %d", len(inputs))
	}
}

func TestBalanceGroupsFewerFilesThanTasks(t *testing.T) {
	inputs := []inputFile{
		{path: "a.txt", size: 5},
		{path: "b.txt", size: 10},
		{path: "c.txt", size: 15},
	}

	groups := balanceGroups(inputs, 6)
	if len(groups) != 3 {
		t.Fatalf("expected one group per file, got %d groups", len(groups))
	}
	for _, g := range groups {
		if len(g) != 1 {
			t.Fatalf("expected single-file groups, got %v", g)
		}
	}
}

func TestBalanceGroupsEvenCounts(t *testing.T) {
	var inputs []inputFile
	for i := 0; i < 11; i++ {
		inputs = append(inputs, inputFile{path: fmt.Sprintf("f%d.txt", i), size: 100})
	}

	groups := balanceGroups(inputs, 6)
	if len(groups) != 6 {
		t.Fatalf("expected 6 groups, got %d", len(groups))
	}

	total, minLen, maxLen := 0, len(inputs), 0
	for _, g := range groups {
		total += len(g)
		if len(g) < minLen {
			minLen = len(g)
		}
		if len(g) > maxLen {
			maxLen = len(g)
		}
	}
	if total != 11 {
		t.Fatalf("every file must be assigned exactly once, got %d assignments", total)
	}
	if maxLen-minLen > 1 {
		t.Fatalf("uneven distribution: group sizes range %d..%d", minLen, maxLen)
	}
}

func TestBalanceGroupsBalancesBySize(t *testing.T) {
	inputs := []inputFile{
		{path: "big.txt", size: 1000},
		{path: "s1.txt", size: 100},
		{path: "s2.txt", size: 100},
		{path: "s3.txt", size: 100},
	}

	groups := balanceGroups(inputs, 2)
	for _, g := range groups {
		if len(g) == 1 && g[0] != "big.txt" {
			t.Fatalf("small file isolated while big file shares a group: %v", groups)
		}
	}
}

func TestBalanceGroupsNoInputs(t *testing.T) {
	if groups := balanceGroups(nil, 4); groups != nil {
		t.Fatalf("expected nil groups for empty input, got %v", groups)
	}
}
