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
	"iter"
	"net/netip"

	"k8s.io/apimachinery/pkg/util/runtime"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
)

// IterateNodes returns a sequence over the used prefixes of the whole tree, with their data,
// in ascending address order (a covering prefix comes before the prefixes it contains).
func (t *Tree) IterateNodes() iter.Seq2[netip.Prefix, string] {
	return t.walk(rootID, false)
}

// IterateNodesUnder returns a sequence over the used prefixes in the subtree rooted at prefix.
func (t *Tree) IterateNodesUnder(prefix netip.Prefix) (iter.Seq2[netip.Prefix, string], error) {
	id, err := t.scope(prefix)
	if err != nil {
		return nil, err
	}
	return t.walk(id, false), nil
}

// IterateNodesUnderOnlySupernets is like IterateNodesUnder, but does not descend below used prefixes.
func (t *Tree) IterateNodesUnderOnlySupernets(prefix netip.Prefix) (iter.Seq2[netip.Prefix, string], error) {
	id, err := t.scope(prefix)
	if err != nil {
		return nil, err
	}
	return t.walk(id, true), nil
}

// CountUsedNodes returns the number of used nodes in the tree.
func (t *Tree) CountUsedNodes() int {
	count := 0
	for range t.IterateNodes() {
		count++
	}
	return count
}

func (t *Tree) scope(prefix netip.Prefix) (nodeID, error) {
	if err := cidr.CheckCanonical(prefix); err != nil {
		return noNode, err
	}
	id, found := t.lookup(prefix, false)
	if !found {
		return noNode, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	return id, nil
}

// walk visits the subtree rooted at scope in pre-order, yielding each used node once.
// Node indexes are read again at every step, so the tree may grow while a walk is in progress.
func (t *Tree) walk(scope nodeID, supernetsOnly bool) iter.Seq2[netip.Prefix, string] {
	return func(yield func(netip.Prefix, string) bool) {
		stop := t.nodes[scope].parent
		previous, current := scope, scope
		for current != noNode {
			n := t.nodes[current]
			fromParent := previous == n.parent || (previous == scope && current == scope)
			if fromParent && n.used {
				if !yield(t.prefixOf(current), n.data) {
					return
				}
			}

			var next nodeID
			switch {
			case supernetsOnly && n.used:
				next = n.parent
			case fromParent && n.left != noNode:
				next = n.left
			case fromParent && n.right != noNode:
				next = n.right
			case fromParent:
				next = n.parent
			case previous == n.left && n.right != noNode:
				next = n.right
			case previous == n.left, previous == n.right:
				next = n.parent
			default:
				runtime.Must(fmt.Errorf("tree walk reached %s from an unrelated node", t.prefixOf(current)))
			}

			if next == stop {
				return
			}
			previous, current = current, next
		}
	}
}

// GenerateForPrefix returns every prefix of the given length, covering the whole address space
// in ascending order. The sequence is lazy and can be iterated more than once.
func GenerateForPrefix(depth int) (iter.Seq[netip.Prefix], error) {
	if err := checkSize(depth); err != nil {
		return nil, err
	}
	step := cidr.Span(depth)
	return func(yield func(netip.Prefix) bool) {
		for v := uint64(0); v < cidr.Span(0); v += step {
			if !yield(netip.PrefixFrom(cidr.Uint32ToAddr(uint32(v)), depth)) {
				return
			}
		}
	}, nil
}
