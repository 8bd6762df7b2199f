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
	"net/netip"

	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	"github.com/liqotech/simlir/pkg/utils"
)

const (
	// ForbiddenData annotates spaces that can never be deployed on the public Internet.
	ForbiddenData = "IANA FORBIDDEN"
	// ReservedData annotates spaces held back by the IANA.
	ReservedData = "IANA RESERVED"
)

var forbiddenSpaces = []string{
	"192.168.0.0/16", "10.0.0.0/8", "172.16.0.0/12",
	"224.0.0.0/8", "225.0.0.0/8", "226.0.0.0/8", "227.0.0.0/8",
	"228.0.0.0/8", "229.0.0.0/8", "230.0.0.0/8", "231.0.0.0/8",
	"232.0.0.0/8", "233.0.0.0/8", "234.0.0.0/8", "235.0.0.0/8",
	"236.0.0.0/8", "237.0.0.0/8", "238.0.0.0/8", "239.0.0.0/8",
	"169.254.0.0/16", "192.0.2.0/24", "198.18.0.0/15",
}

// reservedOctets are the first octets of the /8s listed as reserved in the IANA IPv4 address space registry.
var reservedOctets = []byte{
	0, 1, 5, 7, 23, 27, 31, 36, 37, 39, 42, 46, 49, 50, 94, 95,
	100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115,
	127, 173, 174, 175, 176, 177, 178, 179, 180, 181, 182, 183, 184, 185, 186, 187,
	197, 223, 240, 241, 242, 243, 244, 245, 246, 247, 248, 249, 250, 251, 252, 253, 254, 255,
}

// ForbiddenSpaces returns private, multicast, link-local, documentation and benchmarking ranges.
func ForbiddenSpaces() []netip.Prefix {
	spaces := make([]netip.Prefix, 0, len(forbiddenSpaces))
	for _, s := range forbiddenSpaces {
		spaces = append(spaces, cidr.MustParsePrefix(s))
	}
	return spaces
}

// ReservedSpaces returns the /8s reserved by the IANA.
func ReservedSpaces() []netip.Prefix {
	spaces := make([]netip.Prefix, 0, len(reservedOctets))
	for _, o := range reservedOctets {
		spaces = append(spaces, netip.PrefixFrom(netip.AddrFrom4([4]byte{o, 0, 0, 0}), 8))
	}
	return spaces
}

// SubtractCantUse marks the given forbidden and reserved spaces as used.
// Every entry counts as unusable, even when it overlaps a space that was already subtracted.
func (t *Tree) SubtractCantUse(forbidden, reserved []netip.Prefix) error {
	subtract := func(spaces []netip.Prefix, data string) error {
		for _, space := range spaces {
			t.unusable++
			if _, err := t.Insert(space, data); err != nil {
				if !errors.Is(err, ErrConflict) {
					return err
				}
				klog.V(utils.LogDebugLevel).Infof("Space %s not subtracted: %v", space, err)
			}
		}
		return nil
	}
	if err := subtract(forbidden, ForbiddenData); err != nil {
		return err
	}
	return subtract(reserved, ReservedData)
}
