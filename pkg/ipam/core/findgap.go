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
	"fmt"
	"net/netip"

	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	"github.com/liqotech/simlir/pkg/utils"
)

// FindGapFromData annotates the placeholder inserted by FindGapFrom when CreateMissing is set.
const FindGapFromData = "FindGapFrom"

// GapOptions tunes the behavior of FindGapWithOptions.
type GapOptions struct {
	// Coarse returns a free block at the depth where the gap was detected
	// instead of narrowing it to the requested size.
	Coarse bool
	// TestBlank gives up as soon as the walk would step onto a missing node.
	TestBlank bool
	// StartFrom restricts the search to the subtree rooted at the given node.
	StartFrom Node
}

// FindGapFromOptions tunes the behavior of FindGapFromWithOptions.
type FindGapFromOptions struct {
	// CreateMissing inserts the starting prefix as an unused placeholder when absent.
	// Without it, a search from an absent prefix finds nothing.
	CreateMissing bool
}

// FindGap returns the lowest free block with the given prefix length.
// The boolean is false when no such block exists.
func (t *Tree) FindGap(size int) (netip.Prefix, bool, error) {
	return t.FindGapWithOptions(size, GapOptions{})
}

// FindGapFrom returns the lowest free block with the given prefix length inside prefix.
func (t *Tree) FindGapFrom(prefix netip.Prefix, size int) (netip.Prefix, bool, error) {
	return t.FindGapFromWithOptions(prefix, size, FindGapFromOptions{})
}

// FindGapFromWithOptions looks up the starting prefix and searches for a free block in its subtree.
func (t *Tree) FindGapFromWithOptions(prefix netip.Prefix, size int, opts FindGapFromOptions) (netip.Prefix, bool, error) {
	if err := cidr.CheckCanonical(prefix); err != nil {
		return netip.Prefix{}, false, err
	}
	if err := checkSize(size); err != nil {
		return netip.Prefix{}, false, err
	}

	start, found := t.lookup(prefix, false)
	if !found {
		n, err := t.InsertWithOptions(prefix, FindGapFromData, InsertOptions{
			TestUsed: true,
			TestNone: !opts.CreateMissing,
			TestDup:  true,
		})
		if err != nil {
			klog.V(utils.LogTraceLevel).Infof("FindGapFrom cannot establish %s: %v", prefix, err)
			return netip.Prefix{}, false, nil
		}
		start = n.id
	}
	return t.FindGapWithOptions(size, GapOptions{StartFrom: Node{tree: t, id: start}})
}

func checkSize(size int) error {
	if size < 0 || size > cidr.MaxBits {
		return fmt.Errorf("%w: /%d", ErrInvalidSize, size)
	}
	return nil
}

// FindGapWithOptions performs a left-first depth-first walk of the tree looking for the first missing node
// along the path to a block of the requested size. The direction of the walk is decided by the node
// we arrived from: the parent (first visit), the left child or the right child.
func (t *Tree) FindGapWithOptions(size int, opts GapOptions) (netip.Prefix, bool, error) {
	if err := checkSize(size); err != nil {
		return netip.Prefix{}, false, err
	}

	scoped := opts.StartFrom != Node{}
	var start, current, previous nodeID
	if scoped {
		if err := t.owns(opts.StartFrom); err != nil {
			return netip.Prefix{}, false, err
		}
		start = opts.StartFrom.id
		if t.nodes[start].used || t.usedAncestor(start) {
			return t.noGap("start is covered by a used prefix")
		}
		current, previous = start, t.nodes[start].parent
	} else {
		start, current, previous = rootID, rootID, rootID
	}
	boundary := t.nodes[start].parent

	gap := func(id nodeID, bit byte) (netip.Prefix, bool, error) {
		if int(t.nodes[id].level) >= size {
			found := t.prefixOf(id)
			klog.V(utils.LogTraceLevel).Infof("FindGap(/%d) found %s", size, found)
			return found, true, nil
		}
		path := t.bitPath(id) + string(bit)
		depth := size
		if opts.Coarse {
			depth = len(path)
		}
		found, err := cidr.PathToPrefix(path, depth)
		if err != nil {
			return netip.Prefix{}, false, err
		}
		klog.V(utils.LogTraceLevel).Infof("FindGap(/%d) found %s", size, found)
		return found, true, nil
	}

	for current != noNode && int(t.nodes[current].level) <= size {
		n := &t.nodes[current]
		klog.V(utils.LogTraceLevel).Infof("FindGap(/%d) examines %s", size, t.prefixOf(current))

		var next nodeID
		switch {
		case previous == n.parent || (previous == rootID && current == rootID):
			switch {
			case n.used:
				next = previous
			case int(n.level) == size && !scoped:
				next = n.parent
			case n.left == noNode && !opts.TestBlank:
				return gap(current, '0')
			case int(n.level) == size:
				next = n.parent
			case n.left == noNode:
				return t.noGap("missing left node with blank test")
			default:
				next = n.left
			}
		case previous == n.left:
			switch {
			case n.used, int(n.level) == size:
				next = previous
			case n.right == noNode && !opts.TestBlank:
				return gap(current, '1')
			case n.right == noNode:
				return t.noGap("missing right node with blank test")
			default:
				next = n.right
			}
		case previous == n.right:
			if scoped && t.nodes[n.parent].level < t.nodes[start].level {
				return t.noGap("cannot climb above the starting node")
			}
			next = n.parent
		default:
			return t.noGap("walk lost track of the previous node")
		}

		if scoped && next == boundary {
			return t.noGap("cannot climb above the starting node")
		}
		previous, current = current, next
		if current != noNode && t.nodes[current].used && t.nodes[previous].used {
			return t.noGap("stuck between used nodes")
		}
	}
	return t.noGap("walk ended")
}

func (t *Tree) usedAncestor(id nodeID) bool {
	for p := t.nodes[id].parent; p != noNode; p = t.nodes[p].parent {
		if t.nodes[p].used {
			return true
		}
	}
	return false
}

func (t *Tree) noGap(reason string) (netip.Prefix, bool, error) {
	klog.V(utils.LogTraceLevel).Infof("FindGap finds no gap: %s", reason)
	return netip.Prefix{}, false, nil
}
