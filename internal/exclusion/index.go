package exclusion

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/gaissmai/bart"
)

// MatchKind identifies why an address was found in the index.
type MatchKind int

const (
	MatchNone    MatchKind = iota
	MatchAddress           // exact address entry
	MatchRange             // address falls inside a range entry
)

// Match describes the index entry that contained an address.
type Match struct {
	Kind   MatchKind
	Prefix netip.Prefix // set for MatchRange
	Origin string       // source that first contributed the entry
}

// Reason returns a short, stable description used in logs and reports.
func (m Match) Reason() string {
	switch m.Kind {
	case MatchAddress:
		return "listed address"
	case MatchRange:
		return "range " + m.Prefix.String()
	default:
		return ""
	}
}

type rangeValue struct {
	prefix netip.Prefix
	origin string
}

// Index is the finalized set of excluded addresses and ranges. It is built
// once by NewIndex and is read-only afterwards, so it is safe for
// concurrent lookups.
type Index struct {
	addrs  map[netip.Addr]string // address -> origin
	table  bart.Table[rangeValue]
	ranges []netip.Prefix // unique ranges in insertion order
}

// NewIndex builds an Index from canonicalized entries. Invalid entries are
// ignored; duplicates are idempotent and keep the first origin seen.
func NewIndex(entries []Entry) *Index {
	idx := &Index{addrs: make(map[netip.Addr]string)}

	for _, e := range entries {
		switch e.Kind {
		case KindAddress:
			if _, ok := idx.addrs[e.Addr]; !ok {
				idx.addrs[e.Addr] = e.Token.Origin
			}
		case KindRange:
			for _, p := range e.Prefixes {
				idx.insertRange(p, e.Token.Origin)
			}
		}
	}

	return idx
}

func (idx *Index) insertRange(p netip.Prefix, origin string) {
	if !p.IsValid() {
		return
	}
	p = p.Masked()
	if _, ok := idx.table.Get(p); ok {
		return
	}
	idx.table.Insert(p, rangeValue{prefix: p, origin: origin})
	idx.ranges = append(idx.ranges, p)
}

// Contains reports whether addr is excluded. An exact address entry takes
// precedence over ranges; among overlapping ranges the longest prefix is
// reported.
func (idx *Index) Contains(addr netip.Addr) (bool, Match) {
	if !addr.IsValid() {
		return false, Match{}
	}
	addr = addr.Unmap()

	if origin, ok := idx.addrs[addr]; ok {
		return true, Match{Kind: MatchAddress, Origin: origin}
	}
	if v, ok := idx.table.Lookup(addr); ok {
		return true, Match{Kind: MatchRange, Prefix: v.prefix, Origin: v.origin}
	}
	return false, Match{}
}

// NumAddresses returns the number of unique address entries.
func (idx *Index) NumAddresses() int {
	return len(idx.addrs)
}

// NumRanges returns the number of unique range entries.
func (idx *Index) NumRanges() int {
	return len(idx.ranges)
}

// Addresses returns all address entries in ascending order.
func (idx *Index) Addresses() []netip.Addr {
	out := make([]netip.Addr, 0, len(idx.addrs))
	for a := range idx.addrs {
		out = append(out, a)
	}
	SortAddrs(out)
	return out
}

// Ranges returns all range entries ordered by base address, then length.
func (idx *Index) Ranges() []netip.Prefix {
	out := slices.Clone(idx.ranges)
	slices.SortFunc(out, func(a, b netip.Prefix) int {
		if c := a.Addr().Compare(b.Addr()); c != 0 {
			return c
		}
		return a.Bits() - b.Bits()
	})
	return out
}

// Summary returns a human-readable summary: "12 addresses, 3 ranges".
func (idx *Index) Summary() string {
	parts := []string{}
	if n := idx.NumAddresses(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d addresses", n))
	}
	if n := idx.NumRanges(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d ranges", n))
	}
	if len(parts) == 0 {
		return "0 entries"
	}
	return strings.Join(parts, ", ")
}

// SortAddrs sorts addresses IPv4 first, then IPv6, each ascending.
func SortAddrs(addrs []netip.Addr) {
	slices.SortFunc(addrs, func(a, b netip.Addr) int { return a.Compare(b) })
}
