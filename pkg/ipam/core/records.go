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

	"github.com/liqotech/simlir/pkg/ipam/cidr"
)

// NodeRecord is the serializable form of a single node.
type NodeRecord struct {
	Prefix   string `json:"prefix"`
	Used     bool   `json:"used,omitempty"`
	Assigned bool   `json:"assigned,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Records returns every node of the tree, placeholders included, in pre-order.
func (t *Tree) Records() []NodeRecord {
	records := make([]NodeRecord, 0, len(t.nodes))
	stack := []nodeID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		records = append(records, NodeRecord{
			Prefix:   t.prefixOf(id).String(),
			Used:     n.used,
			Assigned: n.assigned,
			Data:     n.data,
		})
		if n.right != noNode {
			stack = append(stack, n.right)
		}
		if n.left != noNode {
			stack = append(stack, n.left)
		}
	}
	return records
}

// RestoreTree rebuilds a tree from its records and unusable prefix count.
func RestoreTree(records []NodeRecord, unusable int) (*Tree, error) {
	t := NewTree()
	t.unusable = unusable
	for i := range records {
		r := &records[i]
		prefix, err := cidr.ParsePrefix(r.Prefix)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		v := cidr.AddrToUint32(prefix.Addr())
		current := rootID
		for level := 0; level < prefix.Bits(); level++ {
			current = t.ensureChild(current, prefixSide(v, level))
		}
		n := &t.nodes[current]
		n.used = r.Used
		n.assigned = r.Assigned
		n.data = r.Data
	}
	return t, nil
}
