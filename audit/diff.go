// Package audit computes structured field-level diffs between two opaque
// state snapshots, for embedding in audit log records.
package audit

import (
	"reflect"
	"sort"
)

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Entry is one field-level change. Before is unset for added fields, After
// for removed ones.
type Entry struct {
	Field      string     `json:"field"`
	ChangeType ChangeType `json:"change_type"`
	Before     any        `json:"before,omitempty"`
	After      any        `json:"after,omitempty"`
}

type DiffResult struct {
	Entries    []Entry `json:"entries"`
	HasChanges bool    `json:"has_changes"`
}

// Diff compares two snapshots over the union of their keys. Fields with
// structurally equal values are omitted entirely; equality is deep, so
// nested maps and slices compare by content. Entries come back sorted by
// field name. Either snapshot may be nil.
func Diff(before, after map[string]any) *DiffResult {
	fields := make(map[string]bool, len(before)+len(after))
	for k := range before {
		fields[k] = true
	}
	for k := range after {
		fields[k] = true
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	entries := []Entry{}
	for _, field := range names {
		prev, hadPrev := before[field]
		next, hasNext := after[field]
		switch {
		case !hadPrev:
			entries = append(entries, Entry{Field: field, ChangeType: ChangeAdded, After: next})
		case !hasNext:
			entries = append(entries, Entry{Field: field, ChangeType: ChangeRemoved, Before: prev})
		case !reflect.DeepEqual(prev, next):
			entries = append(entries, Entry{Field: field, ChangeType: ChangeModified, Before: prev, After: next})
		}
	}

	return &DiffResult{
		Entries:    entries,
		HasChanges: len(entries) > 0,
	}
}
