// Package snapshot holds the structured representation of a parsed source tree
// and the store that persists the last accepted one.
//
// A snapshot is an opaque tree; nothing here interprets field names.
package snapshot

import (
	"encoding/json"
	"math/big"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// IsScalar reports whether k is a leaf kind.
func (k Kind) IsScalar() bool {
	return k != KindSequence && k != KindMapping
}

// Node is one value in a snapshot tree: a scalar, an ordered sequence or a
// mapping that remembers key insertion order.
type Node struct {
	kind   Kind
	b      bool
	text   string // string value, or the literal text of a number
	items  []*Node
	keys   []string
	fields map[string]*Node
}

// Null returns a null scalar.
func Null() *Node { return &Node{kind: KindNull} }

// Bool returns a boolean scalar.
func Bool(v bool) *Node { return &Node{kind: KindBool, b: v} }

// String returns a string scalar.
func String(v string) *Node { return &Node{kind: KindString, text: v} }

// Number returns a numeric scalar holding the literal text of the number.
func Number(literal string) *Node { return &Node{kind: KindNumber, text: literal} }

// Sequence returns a sequence of items.
func Sequence(items ...*Node) *Node {
	return &Node{kind: KindSequence, items: append([]*Node(nil), items...)}
}

// Mapping returns an empty mapping.
func Mapping() *Node {
	return &Node{kind: KindMapping, fields: make(map[string]*Node)}
}

// Kind returns the variant tag. A nil node reports KindNull.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// Set stores value under key. New keys are appended; existing keys keep their position.
func (n *Node) Set(key string, value *Node) *Node {
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value
	return n
}

// Get returns the child stored under key.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.kind != KindMapping {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Keys returns mapping keys in insertion order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.keys...)
}

// Len returns the number of items or keys.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.kind {
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return len(n.keys)
	}
	return 0
}

// Index returns the i-th sequence item.
func (n *Node) Index(i int) (*Node, bool) {
	if n == nil || n.kind != KindSequence || i < 0 || i >= len(n.items) {
		return nil, false
	}
	return n.items[i], true
}

// Append adds items to a sequence.
func (n *Node) Append(items ...*Node) *Node {
	n.items = append(n.items, items...)
	return n
}

// Value returns the Go value of a scalar: nil, bool, json.Number or string.
// Containers return nil.
func (n *Node) Value() any {
	switch n.Kind() {
	case KindBool:
		return n.b
	case KindNumber:
		return json.Number(n.text)
	case KindString:
		return n.text
	}
	return nil
}

// Equal reports deep structural equality. Mapping key order is not significant;
// sequence order is.
func Equal(a, b *Node) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return sameNumber(a.text, b.text)
	case KindString:
		return a.text == b.text
	case KindSequence:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for _, k := range a.keys {
			bv, ok := b.fields[k]
			if !ok || !Equal(a.fields[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}

// sameNumber compares two JSON number literals by value, so 10 and 1e1 match.
// Literals big.Float cannot read fall back to text comparison.
func sameNumber(x, y string) bool {
	if x == y {
		return true
	}
	fx, _, err := big.ParseFloat(x, 10, 256, big.ToNearestEven)
	if err != nil {
		return false
	}
	fy, _, err := big.ParseFloat(y, 10, 256, big.ToNearestEven)
	if err != nil {
		return false
	}
	return fx.Cmp(fy) == 0
}
