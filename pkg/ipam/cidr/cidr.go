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

// Package cidr provides the IPv4 address arithmetic shared by the prefix trie and the simulation:
// prefix length to span conversions, bit path encodings and decomposition of arbitrary
// address counts into CIDR blocks. All the arithmetic is performed on integers.
package cidr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"net/netip"
	"strings"
)

// MaxBits is the length of an IPv4 address, in bits.
const MaxBits = 32

// ErrInvalidPrefix is returned when a prefix is malformed, not IPv4, or not in canonical form.
var ErrInvalidPrefix = errors.New("invalid prefix")

// Span returns the number of addresses covered by a prefix of the given length.
func Span(length int) uint64 {
	if length < 0 || length > MaxBits {
		panic(fmt.Sprintf("prefix length %d out of range", length))
	}
	return uint64(1) << (MaxBits - length)
}

// PrefixSpan returns the number of addresses covered by the given prefix.
func PrefixSpan(prefix netip.Prefix) uint64 {
	return Span(prefix.Bits())
}

// LengthForSpan returns the length of the smallest prefix able to hold span addresses,
// i.e. 32 - ceil(log2(span)). Spans larger than the whole address space map to 0.
func LengthForSpan(span uint64) int {
	if span <= 1 {
		return MaxBits
	}
	length := MaxBits - bits.Len64(span-1)
	if length < 0 {
		return 0
	}
	return length
}

// CheckCanonical verifies that prefix is a valid IPv4 prefix whose host bits are all zero.
func CheckCanonical(prefix netip.Prefix) error {
	if !prefix.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidPrefix, prefix)
	}
	if !prefix.Addr().Is4() {
		return fmt.Errorf("%w: %s is not an IPv4 prefix", ErrInvalidPrefix, prefix)
	}
	if prefix.Masked().Addr().Compare(prefix.Addr()) != 0 {
		return fmt.Errorf("%w: %s host bits must be zero", ErrInvalidPrefix, prefix)
	}
	return nil
}

// ParsePrefix parses s as a canonical IPv4 CIDR prefix. Non-canonical input is rejected rather than masked.
func ParsePrefix(s string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %w", ErrInvalidPrefix, err)
	}
	if err := CheckCanonical(prefix); err != nil {
		return netip.Prefix{}, err
	}
	return prefix, nil
}

// MustParsePrefix is like ParsePrefix but panics on error.
func MustParsePrefix(s string) netip.Prefix {
	prefix, err := ParsePrefix(s)
	if err != nil {
		panic(err)
	}
	return prefix
}

// AddrToUint32 returns the big-endian integer value of an IPv4 address.
func AddrToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

// Uint32ToAddr returns the IPv4 address with the given big-endian integer value.
func Uint32ToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// PathToPrefix pads the bit path (a string of '0' and '1') with zeros up to 32 bits
// and returns the resulting address with the given prefix length.
// For example, the path "1111" at depth 4 is 240.0.0.0/4.
func PathToPrefix(path string, depth int) (netip.Prefix, error) {
	if len(path) > MaxBits {
		return netip.Prefix{}, fmt.Errorf("%w: bit path %q longer than %d bits", ErrInvalidPrefix, path, MaxBits)
	}
	if depth < 0 || depth > MaxBits {
		return netip.Prefix{}, fmt.Errorf("%w: depth %d out of range", ErrInvalidPrefix, depth)
	}
	var v uint32
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '0':
		case '1':
			v |= 1 << (MaxBits - 1 - i)
		default:
			return netip.Prefix{}, fmt.Errorf("%w: bit path %q contains %q", ErrInvalidPrefix, path, path[i])
		}
	}
	return netip.PrefixFrom(Uint32ToAddr(v), depth).Masked(), nil
}

// BitPath returns the binary expansion of the prefix address truncated to the prefix length.
func BitPath(prefix netip.Prefix) (string, error) {
	if err := CheckCanonical(prefix); err != nil {
		return "", err
	}
	v := AddrToUint32(prefix.Addr())
	var sb strings.Builder
	sb.Grow(prefix.Bits())
	for i := 0; i < prefix.Bits(); i++ {
		if v&(1<<(MaxBits-1-i)) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String(), nil
}

// Contains checks if the child prefix is a child of (or equal to) the parent prefix.
func Contains(parent, child netip.Prefix) bool {
	return parent.Bits() <= child.Bits() && parent.Overlaps(child)
}

// DecomposeAmount decomposes an address count into the minimum number of power-of-two blocks,
// largest first, and returns their prefix lengths. For example, 36864 = 2^15 + 2^12 gives [17 20].
func DecomposeAmount(amount uint64) []int {
	var lengths []int
	for amount != 0 {
		power := bits.Len64(amount) - 1
		if power > MaxBits {
			power = MaxBits
		}
		lengths = append(lengths, MaxBits-power)
		amount -= uint64(1) << power
	}
	return lengths
}

// Series returns the consecutive prefixes with the given lengths starting at start.
// Each prefix begins right after the broadcast address of the previous one.
func Series(start netip.Addr, lengths []int) ([]netip.Prefix, error) {
	if !start.Is4() {
		return nil, fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidPrefix, start)
	}
	current := uint64(AddrToUint32(start))
	prefixes := make([]netip.Prefix, 0, len(lengths))
	for _, length := range lengths {
		if length < 0 || length > MaxBits {
			return nil, fmt.Errorf("%w: prefix length %d out of range", ErrInvalidPrefix, length)
		}
		if current > uint64(^uint32(0)) {
			return nil, fmt.Errorf("%w: series overflows the address space", ErrInvalidPrefix)
		}
		prefix := netip.PrefixFrom(Uint32ToAddr(uint32(current)), length)
		if err := CheckCanonical(prefix); err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
		current += Span(length)
	}
	return prefixes, nil
}
