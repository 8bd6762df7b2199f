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

package ipamcore

import (
	"errors"
	"fmt"
	"net/netip"

	"k8s.io/apimachinery/pkg/util/runtime"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
)

// nodeID is the index of a node inside the tree arena.
type nodeID int32

const (
	noNode nodeID = -1
	rootID nodeID = 0
)

// Side identifies one of the two children of a node.
type Side uint8

const (
	// Left is the lower half of a partition (bit 0).
	Left Side = 0
	// Right is the upper half of a partition (bit 1).
	Right Side = 1
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// ErrRootSide is returned when the side bit of the root node is requested.
var ErrRootSide = errors.New("the root node is neither a left nor a right child")

// node represents a node in the binary tree.
// Children are owned by their parent through the arena indexes; the parent index is only used for navigation.
type node struct {
	parent nodeID
	left   nodeID
	right  nodeID
	level  int8

	used bool
	// assigned distinguishes a node whose data was deliberately set from a placeholder
	// created while descending towards a deeper insertion target.
	assigned bool
	data     string
}

func newNode(parent nodeID, level int8) node {
	return node{parent: parent, left: noNode, right: noNode, level: level}
}

func (n *node) child(s Side) nodeID {
	if s == Left {
		return n.left
	}
	return n.right
}

// Node is a handle to a node of a Tree. Handles stay valid for the whole lifetime of the tree,
// since nodes are never moved or freed. The zero value refers to no node.
type Node struct {
	tree *Tree
	id   nodeID
}

// IsValid returns whether the handle refers to an existing node.
func (n Node) IsValid() bool {
	return n.tree != nil && n.id >= 0 && int(n.id) < len(n.tree.nodes)
}

func (n Node) get() *node {
	if !n.IsValid() {
		runtime.Must(fmt.Errorf("access to an invalid node handle"))
	}
	return &n.tree.nodes[n.id]
}

func (n Node) handle(id nodeID) Node {
	if id == noNode {
		return Node{}
	}
	return Node{tree: n.tree, id: id}
}

// Data returns the annotation associated with the node.
func (n Node) Data() string {
	return n.get().data
}

// HasData returns whether the node data was deliberately set, as opposed to a placeholder node.
func (n Node) HasData() bool {
	return n.get().assigned
}

// SetData changes the annotation associated with the node.
func (n Node) SetData(data string) {
	nd := n.get()
	nd.data = data
	nd.assigned = true
}

// Used returns whether the partition represented by the node is allocated.
func (n Node) Used() bool {
	return n.get().used
}

// SetUsed marks the partition represented by the node as allocated or free.
func (n Node) SetUsed(used bool) {
	n.get().used = used
}

// Parent returns the parent node, or an invalid handle for the root.
func (n Node) Parent() Node {
	return n.handle(n.get().parent)
}

// Left returns the left child, or an invalid handle if absent.
func (n Node) Left() Node {
	return n.handle(n.get().left)
}

// Right returns the right child, or an invalid handle if absent.
func (n Node) Right() Node {
	return n.handle(n.get().right)
}

// Child returns the child on the given side, or an invalid handle if absent.
func (n Node) Child(s Side) Node {
	return n.handle(n.get().child(s))
}

// EnsureChild returns the child on the given side, creating an unused placeholder if absent.
func (n Node) EnsureChild(s Side) Node {
	return n.handle(n.tree.ensureChild(n.id, s))
}

// IsRoot returns whether the node is the root of its tree.
func (n Node) IsRoot() bool {
	return n.get().parent == noNode
}

// IsLeftChild returns whether the node is the left child of its parent. It is false for the root.
func (n Node) IsLeftChild() bool {
	nd := n.get()
	return nd.parent != noNode && n.tree.nodes[nd.parent].left == n.id
}

// IsRightChild returns whether the node is the right child of its parent. It is false for the root.
func (n Node) IsRightChild() bool {
	nd := n.get()
	return nd.parent != noNode && n.tree.nodes[nd.parent].right == n.id
}

// HasChildren returns whether the node has at least one child.
func (n Node) HasChildren() bool {
	nd := n.get()
	return nd.left != noNode || nd.right != noNode
}

// Level returns the depth of the node, which is also the length of the prefix it represents.
func (n Node) Level() int {
	return int(n.get().level)
}

// SideBit returns 0 for a left child and 1 for a right child.
func (n Node) SideBit() (uint8, error) {
	switch {
	case n.IsLeftChild():
		return 0, nil
	case n.IsRightChild():
		return 1, nil
	default:
		return 0, ErrRootSide
	}
}

// BitPath returns the root-to-node sequence of side bits, as a string of '0' and '1'.
func (n Node) BitPath() string {
	return n.tree.bitPath(n.id)
}

// Prefix returns the CIDR prefix represented by the node.
func (n Node) Prefix() netip.Prefix {
	return n.tree.prefixOf(n.id)
}

func (n Node) String() string {
	if !n.IsValid() {
		return "<none>"
	}
	return n.Prefix().String()
}

// bitPath walks up to the root accumulating one bit per step, then reverses the result.
func (t *Tree) bitPath(id nodeID) string {
	level := int(t.nodes[id].level)
	path := make([]byte, level)
	for current := id; level > 0; level-- {
		parent := t.nodes[current].parent
		switch current {
		case t.nodes[parent].left:
			path[level-1] = '0'
		case t.nodes[parent].right:
			path[level-1] = '1'
		default:
			runtime.Must(fmt.Errorf("node %d is not a child of its parent %d", current, parent))
		}
		current = parent
	}
	return string(path)
}

func (t *Tree) prefixOf(id nodeID) netip.Prefix {
	prefix, err := cidr.PathToPrefix(t.bitPath(id), int(t.nodes[id].level))
	runtime.Must(err)
	return prefix
}
