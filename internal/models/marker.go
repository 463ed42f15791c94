// Package models defines the core data types shared across the pipeline.
package models

import "fmt"

// Marker is one biomarker row from the tabular source. Markers are
// read once at startup and never mutated; identity is the 1-based
// source row index, which also drives output file naming.
type Marker struct {
	// Index is the 1-based row position in the source (header excluded).
	Index int

	// NameEN is the English biomarker name.
	NameEN string

	// NameCN is the Chinese biomarker name.
	NameCN string

	// Category is the grouping label from the first source column.
	Category string
}

// String renders the marker for log and progress output.
func (m Marker) String() string {
	return fmt.Sprintf("%s (%s) #%d", m.NameEN, m.NameCN, m.Index)
}

// FetchResult is the outcome of a single document fetch. Results live
// only for the duration of a run; they are aggregated into the final
// summary and never persisted.
type FetchResult struct {
	Marker Marker

	// Success reports whether the full stream was consumed and written.
	Success bool

	// Path is the output file the document was written to. Set on
	// success; may also be set on failure if writing had started.
	Path string

	// Bytes is the number of bytes actually written, including partial
	// writes before a mid-stream failure.
	Bytes int

	// Err holds a human-readable error message when Success is false.
	Err string

	// Fatal marks failures that will hit every remaining marker too
	// (invalid credentials, exhausted quota). The scheduler stops
	// dispatching new work when it sees one.
	Fatal bool
}
