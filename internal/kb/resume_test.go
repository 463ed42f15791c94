package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/raphaelgruber/markerdocs/internal/models"
)

func marker(idx int, nameEN string) models.Marker {
	return models.Marker{Index: idx, NameEN: nameEN, NameCN: "中文", Category: "Cat"}
}

func writeOutput(t *testing.T, root string, m models.Marker, content string) {
	t.Helper()
	path := BuildPath(m.Index, m.NameEN, m.NameCN, m.Category, root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPartition(t *testing.T) {
	root := t.TempDir()

	m1 := marker(1, "Done")
	m2 := marker(2, "Missing")
	m3 := marker(3, "Empty")
	m4 := marker(4, "AlsoDone")

	writeOutput(t, root, m1, "# Done\n")
	writeOutput(t, root, m3, "") // zero bytes: still pending
	writeOutput(t, root, m4, "partial but non-empty")

	toProcess, skipped := Partition([]models.Marker{m1, m2, m3, m4}, root)

	if len(skipped) != 2 || skipped[0].Index != 1 || skipped[1].Index != 4 {
		t.Errorf("skipped = %v, want markers 1 and 4 in order", skipped)
	}
	if len(toProcess) != 2 || toProcess[0].Index != 2 || toProcess[1].Index != 3 {
		t.Errorf("toProcess = %v, want markers 2 and 3 in order", toProcess)
	}
}

func TestPartitionStableOrder(t *testing.T) {
	root := t.TempDir()

	var markers []models.Marker
	for i := 1; i <= 9; i++ {
		m := marker(i, "M")
		markers = append(markers, m)
		if i%3 == 0 {
			writeOutput(t, root, m, "done")
		}
	}

	toProcess, skipped := Partition(markers, root)

	prev := 0
	for _, m := range toProcess {
		if m.Index <= prev {
			t.Fatalf("toProcess order not stable: %v", toProcess)
		}
		prev = m.Index
	}
	prev = 0
	for _, m := range skipped {
		if m.Index <= prev {
			t.Fatalf("skipped order not stable: %v", skipped)
		}
		prev = m.Index
	}
	if len(toProcess)+len(skipped) != len(markers) {
		t.Errorf("partition lost markers: %d + %d != %d", len(toProcess), len(skipped), len(markers))
	}
}

func TestPartitionIgnoresDirectories(t *testing.T) {
	root := t.TempDir()

	m := marker(1, "Dir")
	path := BuildPath(m.Index, m.NameEN, m.NameCN, m.Category, root)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}

	toProcess, skipped := Partition([]models.Marker{m}, root)
	if len(skipped) != 0 || len(toProcess) != 1 {
		t.Errorf("a directory at the output path must not count as done")
	}
}

func TestLimit(t *testing.T) {
	markers := []models.Marker{marker(1, "a"), marker(2, "b"), marker(3, "c")}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"zero means unlimited", 0, 3},
		{"negative means unlimited", -1, 3},
		{"larger than input", 10, 3},
		{"truncates", 2, 2},
		{"exact", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Limit(markers, tt.n)
			if len(got) != tt.want {
				t.Fatalf("Limit(%d) returned %d markers, want %d", tt.n, len(got), tt.want)
			}
			// Relative order must survive truncation.
			for i := 1; i < len(got); i++ {
				if got[i].Index <= got[i-1].Index {
					t.Errorf("Limit reordered markers: %v", got)
				}
			}
		})
	}
}
