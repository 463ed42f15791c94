// Package kb implements the knowledge-base build pipeline: deterministic
// output paths, resume filtering, document fetching and the concurrent
// scheduler that ties them together.
package kb

import (
	"fmt"
	"path/filepath"
	"strings"
)

// BuildPath returns the output file for a marker. The layout is
//
//	{outputRoot}/{category}/{index}|{name_en}|{name_cn}.md
//
// with the index zero-padded to three digits. Because the index leads
// the filename, two markers with different indices can never collide,
// even when names and category are identical. The function is pure:
// ResumeFilter and the fetcher rely on both sides computing the exact
// same path.
//
// Path separators in the names are replaced with "-". The vertical bar
// is the field separator inside the filename and is kept as-is in
// names; it only ever appears between fields the parser can re-split
// on the outer positions.
func BuildPath(index int, nameEN, nameCN, category, outputRoot string) string {
	filename := fmt.Sprintf("%03d|%s|%s.md", index, sanitize(nameEN), sanitize(nameCN))
	return filepath.Join(outputRoot, sanitizeCategory(category), filename)
}

// sanitize replaces path separators so a name can never escape its
// directory or split into extra path components.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	return strings.ReplaceAll(s, "\\", "-")
}

// sanitizeCategory additionally trims surrounding whitespace, which
// shows up in hand-maintained source files.
func sanitizeCategory(s string) string {
	return strings.TrimSpace(sanitize(s))
}
