// Copyright 2019-2025 The Liqo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ipamcore implements a binary prefix tree tracking which IPv4 ranges are allocated.
package ipamcore

import (
	"errors"
	"fmt"
	"net/netip"

	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	"github.com/liqotech/simlir/pkg/utils"
)

// RootData is the annotation of the root node of every tree.
const RootData = "Root"

var (
	// ErrConflict is wrapped by every error returned when an insertion is refused.
	ErrConflict = errors.New("conflicting insertion")
	// ErrDuplicate is returned when the target node already carries data.
	ErrDuplicate = fmt.Errorf("%w: duplicate prefix", ErrConflict)
	// ErrCoveredByUsed is returned when an ancestor of the target node is already used.
	ErrCoveredByUsed = fmt.Errorf("%w: covered by a used prefix", ErrConflict)
	// ErrMissingPath is returned when the path to the target node does not exist and creation is forbidden.
	ErrMissingPath = fmt.Errorf("%w: missing path", ErrConflict)
	// ErrNotFound is returned when a prefix is not present in the tree.
	ErrNotFound = errors.New("prefix not found")
	// ErrInvalidSize is returned when a requested prefix length is out of range.
	ErrInvalidSize = errors.New("invalid prefix length")
	// ErrForeignNode is returned when a node handle belongs to a different tree.
	ErrForeignNode = errors.New("node does not belong to this tree")
)

// Tree is a binary tree in which every node represents an IPv4 prefix.
// The path from the root encodes the prefix bits and the depth equals the prefix length.
// A Tree is not safe for concurrent use.
type Tree struct {
	nodes []node
	// unusable counts the entries recorded by SubtractCantUse.
	unusable int
}

// InsertOptions tunes the behavior of InsertWithOptions.
type InsertOptions struct {
	// MarkUsed marks the target node as used.
	MarkUsed bool
	// TestUsed refuses the insertion if an ancestor of the target is used.
	TestUsed bool
	// TestNone refuses the insertion if a node along the path does not exist.
	TestNone bool
	// TestDup refuses the insertion if the target already carries data.
	TestDup bool
}

// DefaultInsertOptions returns the options used by Insert.
func DefaultInsertOptions() InsertOptions {
	return InsertOptions{MarkUsed: true, TestDup: true}
}

// NewTree returns a tree containing only the root node, which represents 0.0.0.0/0.
func NewTree() *Tree {
	t := &Tree{nodes: make([]node, 1, 64)}
	t.nodes[rootID] = newNode(noNode, 0)
	t.nodes[rootID].data = RootData
	t.nodes[rootID].assigned = true
	return t
}

// Root returns the root node.
func (t *Tree) Root() Node {
	return Node{tree: t, id: rootID}
}

// Len returns the number of nodes, placeholders included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// UnusablePrefixCount returns how many forbidden or reserved entries were subtracted from the tree.
func (t *Tree) UnusablePrefixCount() int {
	return t.unusable
}

func (t *Tree) ensureChild(parent nodeID, s Side) nodeID {
	if id := t.nodes[parent].child(s); id != noNode {
		return id
	}
	id := nodeID(len(t.nodes))
	t.nodes = append(t.nodes, newNode(parent, t.nodes[parent].level+1))
	if s == Left {
		t.nodes[parent].left = id
	} else {
		t.nodes[parent].right = id
	}
	return id
}

func prefixSide(v uint32, level int) Side {
	return Side((v >> (cidr.MaxBits - 1 - level)) & 1)
}

// Insert adds the prefix to the tree, marks it as used and annotates it with data.
func (t *Tree) Insert(prefix netip.Prefix, data string) (Node, error) {
	return t.InsertWithOptions(prefix, data, DefaultInsertOptions())
}

// InsertWithOptions adds the prefix to the tree, creating the missing nodes along the path.
// A refused insertion returns an error wrapping ErrConflict, and leaves data and flags untouched,
// though placeholders created along the path before the refusal are kept.
func (t *Tree) InsertWithOptions(prefix netip.Prefix, data string, opts InsertOptions) (Node, error) {
	if err := cidr.CheckCanonical(prefix); err != nil {
		return Node{}, err
	}

	v := cidr.AddrToUint32(prefix.Addr())
	current := rootID
	for level := 0; level < prefix.Bits(); level++ {
		if opts.TestUsed && t.nodes[current].used {
			return Node{}, fmt.Errorf("%w: %s is inside %s", ErrCoveredByUsed, prefix, t.prefixOf(current))
		}
		s := prefixSide(v, level)
		next := t.nodes[current].child(s)
		if next == noNode {
			if opts.TestNone {
				return Node{}, fmt.Errorf("%w: no %s child below %s", ErrMissingPath, s, t.prefixOf(current))
			}
			next = t.ensureChild(current, s)
		}
		current = next
	}

	target := &t.nodes[current]
	if opts.TestDup && target.assigned {
		return Node{}, fmt.Errorf("%w: %s already holds %q", ErrDuplicate, prefix, target.data)
	}
	if opts.MarkUsed {
		target.used = true
	}
	target.data = data
	target.assigned = true

	klog.V(utils.LogTraceLevel).Infof("Inserted prefix %s (used: %t, data: %q)", prefix, target.used, data)
	return Node{tree: t, id: current}, nil
}

// Lookup returns the node representing the prefix, if it exists.
// With usedCheck, the first used node found along the path is returned instead,
// that is the used prefix covering the requested one.
func (t *Tree) Lookup(prefix netip.Prefix, usedCheck bool) (Node, bool, error) {
	if err := cidr.CheckCanonical(prefix); err != nil {
		return Node{}, false, err
	}
	id, found := t.lookup(prefix, usedCheck)
	if !found {
		return Node{}, false, nil
	}
	return Node{tree: t, id: id}, true, nil
}

func (t *Tree) lookup(prefix netip.Prefix, usedCheck bool) (nodeID, bool) {
	v := cidr.AddrToUint32(prefix.Addr())
	current := rootID
	for level := 0; level < prefix.Bits(); level++ {
		if usedCheck && t.nodes[current].used {
			return current, true
		}
		current = t.nodes[current].child(prefixSide(v, level))
		if current == noNode {
			return noNode, false
		}
	}
	return current, true
}

// Remove releases the prefix, clearing its used flag and reverting it to a placeholder.
// The node itself stays in the tree, so the shape seen by the gap search is preserved.
func (t *Tree) Remove(prefix netip.Prefix) error {
	if err := cidr.CheckCanonical(prefix); err != nil {
		return err
	}
	id, found := t.lookup(prefix, false)
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	if id == rootID {
		return fmt.Errorf("%w: the root cannot be removed", ErrConflict)
	}
	n := &t.nodes[id]
	n.used = false
	n.assigned = false
	n.data = ""
	klog.V(utils.LogTraceLevel).Infof("Removed prefix %s", prefix)
	return nil
}

func (t *Tree) owns(n Node) error {
	if !n.IsValid() || n.tree != t {
		return ErrForeignNode
	}
	return nil
}
