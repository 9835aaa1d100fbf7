// Package differ computes the structural delta between two snapshots.
package differ

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"smartdocs/internal/snapshot"
)

// ChangeKind is the type of a change record.
type ChangeKind string

const (
	// Added marks a path present only in the new snapshot.
	Added ChangeKind = "added"
	// Removed marks a path present only in the old snapshot.
	Removed ChangeKind = "removed"
	// Edited marks a path present in both with unequal values.
	Edited ChangeKind = "edited"
)

// Step is one element of a Path: a mapping key or a sequence index.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns a mapping step.
func Key(k string) Step { return Step{Key: k} }

// Index returns a sequence step.
func Index(i int) Step { return Step{Index: i, IsIndex: true} }

// Path locates a node inside a snapshot tree.
type Path []Step

func (p Path) String() string {
	var sb strings.Builder
	for i, s := range p {
		if s.IsIndex {
			sb.WriteString("[" + strconv.Itoa(s.Index) + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s.Key)
	}
	return sb.String()
}

// MarshalJSON encodes the path as an array of keys (strings) and indices (numbers).
func (p Path) MarshalJSON() ([]byte, error) {
	elems := make([]any, len(p))
	for i, s := range p {
		if s.IsIndex {
			elems[i] = s.Index
		} else {
			elems[i] = s.Key
		}
	}
	return json.Marshal(elems)
}

func (p Path) with(s Step) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, s)
}

// Change is one record of a Delta.
type Change struct {
	Kind   ChangeKind     `json:"kind"`
	Path   Path           `json:"path"`
	Before *snapshot.Node `json:"before,omitempty"`
	After  *snapshot.Node `json:"after,omitempty"`
}

// Delta is the ordered list of changes between two snapshots.
type Delta []Change

// Stats counts changes by kind.
type Stats struct {
	Added   int
	Removed int
	Edited  int
}

// Total returns the number of change records.
func (s Stats) Total() int { return s.Added + s.Removed + s.Edited }

// Stats counts the changes in d.
func (d Delta) Stats() Stats {
	var s Stats
	for _, c := range d {
		switch c.Kind {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Edited:
			s.Edited++
		}
	}
	return s
}

// Empty reports whether the delta has no records.
func (d Delta) Empty() bool { return len(d) == 0 }

// MarshalJSON always encodes an array, never null.
func (d Delta) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Change(d))
}

// WriteFile writes the delta as indented JSON, replacing any previous artifact.
func (d Delta) WriteFile(path string) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode delta: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to encode delta: %w", err)
	}
	out.WriteByte('\n')
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, out.Bytes(), 0644)
}

// Diff compares old and new. A nil tree means "absent".
//
// Mapping keys are visited in old order, then keys only present in new in
// new order. Sequences are compared by position, so a reordering shows up as
// edits. An added or removed subtree is reported once at its root.
func Diff(old, new *snapshot.Node) Delta {
	var d Delta
	walk(&d, nil, old, new)
	return d
}

func walk(d *Delta, path Path, old, new *snapshot.Node) {
	switch {
	case old == nil && new == nil:
		return
	case old == nil:
		*d = append(*d, Change{Kind: Added, Path: path, After: new})
		return
	case new == nil:
		*d = append(*d, Change{Kind: Removed, Path: path, Before: old})
		return
	}

	if old.Kind() != new.Kind() {
		*d = append(*d, Change{Kind: Edited, Path: path, Before: old, After: new})
		return
	}

	switch old.Kind() {
	case snapshot.KindMapping:
		for _, k := range old.Keys() {
			ov, _ := old.Get(k)
			nv, ok := new.Get(k)
			if !ok {
				*d = append(*d, Change{Kind: Removed, Path: path.with(Key(k)), Before: orNull(ov)})
				continue
			}
			walk(d, path.with(Key(k)), orNull(ov), orNull(nv))
		}
		for _, k := range new.Keys() {
			if _, ok := old.Get(k); ok {
				continue
			}
			nv, _ := new.Get(k)
			*d = append(*d, Change{Kind: Added, Path: path.with(Key(k)), After: orNull(nv)})
		}
	case snapshot.KindSequence:
		n := old.Len()
		if new.Len() > n {
			n = new.Len()
		}
		for i := 0; i < n; i++ {
			var ov, nv *snapshot.Node
			if v, ok := old.Index(i); ok {
				ov = orNull(v)
			}
			if v, ok := new.Index(i); ok {
				nv = orNull(v)
			}
			walk(d, path.with(Index(i)), ov, nv)
		}
	default:
		if !snapshot.Equal(old, new) {
			*d = append(*d, Change{Kind: Edited, Path: path, Before: old, After: new})
		}
	}
}

// orNull turns a stored nil child into an explicit null so that a present key
// is never mistaken for an absent one.
func orNull(n *snapshot.Node) *snapshot.Node {
	if n == nil {
		return snapshot.Null()
	}
	return n
}
