package kb

import (
	"os"

	"github.com/raphaelgruber/markerdocs/internal/models"
)

// Partition splits markers into the ones still needing a document and
// the ones whose output already exists non-empty. Both slices preserve
// the input order. Only filesystem metadata is read; nothing is
// created or modified.
//
// A non-empty file counts as done even if a previous run died
// mid-stream and left it truncated. That is a known limitation of the
// resume check: deciding whether a partial document is "complete
// enough" would require reading and judging content, so operators
// delete suspect files before rerunning instead.
func Partition(markers []models.Marker, outputRoot string) (toProcess, skipped []models.Marker) {
	for _, m := range markers {
		if outputDone(BuildPath(m.Index, m.NameEN, m.NameCN, m.Category, outputRoot)) {
			skipped = append(skipped, m)
		} else {
			toProcess = append(toProcess, m)
		}
	}
	return toProcess, skipped
}

// outputDone reports whether path is a regular file with size > 0.
func outputDone(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Limit truncates markers to at most n entries, preserving order.
// n <= 0 means unlimited.
func Limit(markers []models.Marker, n int) []models.Marker {
	if n <= 0 || n >= len(markers) {
		return markers
	}
	return markers[:n]
}
