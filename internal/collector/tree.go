package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Kind discriminates the variants of a Node.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

// field is one key/value pair of an object node, kept in document order.
type field struct {
	key   string
	value *Node
}

// Node is one element of an untyped device tree such as the output of lshw -json.
type Node struct {
	kind   Kind
	fields []field
	items  []*Node
	scalar any
}

// ParseTree decodes a JSON document into a Node tree. Object keys keep
// their document order and numbers are kept as json.Number.
func ParseTree(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := decodeNode(dec)
	if err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode tree: trailing data after document")
	}
	return root, nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return &Node{kind: KindScalar, scalar: tok}, nil
	}

	switch delim {
	case '{':
		n := &Node{kind: KindObject}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			value, err := decodeNode(dec)
			if err != nil {
				return nil, err
			}
			n.fields = append(n.fields, field{key: key, value: value})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	case '[':
		n := &Node{kind: KindArray}
		for dec.More() {
			item, err := decodeNode(dec)
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// Kind reports which variant n is.
func (n *Node) Kind() Kind { return n.kind }

// Get returns the value stored under key when n is an object.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.kind != KindObject {
		return nil, false
	}
	for _, f := range n.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// Str returns the string value under key, or "" when it is missing or not a string.
func (n *Node) Str(key string) string {
	v, ok := n.Get(key)
	if !ok || v.kind != KindScalar {
		return ""
	}
	s, _ := v.scalar.(string)
	return s
}

// Int returns the integer value under key. Non-numeric values report false.
func (n *Node) Int(key string) (int64, bool) {
	v, ok := n.Get(key)
	if !ok || v.kind != KindScalar {
		return 0, false
	}
	num, ok := v.scalar.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := num.Int64(); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(num.String(), 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// Children returns the elements of the "children" array of an object node.
func (n *Node) Children() []*Node {
	v, ok := n.Get("children")
	if !ok || v.kind != KindArray {
		return nil
	}
	return v.items
}

// First returns the first object of an array node, or n itself when it is
// an object. lshw emits either shape for its root depending on version.
func (n *Node) First() *Node {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindObject:
		return n
	case KindArray:
		for _, item := range n.items {
			if item.kind == KindObject {
				return item
			}
		}
	}
	return nil
}

// CollectNodes walks the tree depth-first and returns every node matching pred,
// in document order. A parent is reported before its descendants.
func CollectNodes(root *Node, pred func(*Node) bool) []*Node {
	out := []*Node{}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		switch n.kind {
		case KindObject:
			if pred(n) {
				out = append(out, n)
			}
			for _, f := range n.fields {
				walk(f.value)
			}
		case KindArray:
			for _, item := range n.items {
				walk(item)
			}
		}
	}
	walk(root)
	return out
}

// FindByClass returns every object node whose "class" field equals class.
func FindByClass(root *Node, class string) []*Node {
	return CollectNodes(root, func(n *Node) bool {
		return n.Str("class") == class
	})
}
