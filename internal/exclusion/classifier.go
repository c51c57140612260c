package exclusion

import (
	"fmt"
	"net/netip"
	"slices"
)

// ReasonError is recorded for candidates whose lookup failed.
const ReasonError = "error"

// Decision records why one candidate was excluded.
type Decision struct {
	Addr   netip.Addr
	Match  Match
	Reason string
}

// Result is the outcome of one classification pass.
type Result struct {
	Kept     []netip.Addr // sorted, IPv4 before IPv6
	Excluded []Decision   // sorted by address
	Errors   int          // candidates excluded with ReasonError
}

// ReasonCounts tallies excluded candidates by coarse reason: "listed
// address", "range" or "error".
func (r Result) ReasonCounts() map[string]int {
	counts := make(map[string]int)
	for _, d := range r.Excluded {
		switch d.Match.Kind {
		case MatchAddress:
			counts[d.Reason]++
		case MatchRange:
			counts["range"]++
		default:
			counts[ReasonError]++
		}
	}
	return counts
}

// Classify tests every candidate against idx. A candidate whose lookup
// fails is excluded with ReasonError and reported to onError; the pass
// always completes. The index is never modified.
func Classify(idx *Index, candidates []netip.Addr, onError func(netip.Addr, error)) Result {
	var res Result

	for _, addr := range candidates {
		excluded, m, err := safeContains(idx, addr)
		if err != nil {
			res.Excluded = append(res.Excluded, Decision{Addr: addr, Reason: ReasonError})
			res.Errors++
			if onError != nil {
				onError(addr, err)
			}
			continue
		}
		if excluded {
			res.Excluded = append(res.Excluded, Decision{Addr: addr, Match: m, Reason: m.Reason()})
			continue
		}
		res.Kept = append(res.Kept, addr)
	}

	SortAddrs(res.Kept)
	sortDecisions(res.Excluded)
	return res
}

func safeContains(idx *Index, addr netip.Addr) (excluded bool, m Match, err error) {
	if !addr.IsValid() {
		return false, Match{}, fmt.Errorf("invalid candidate address")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lookup panicked: %v", r)
		}
	}()
	excluded, m = idx.Contains(addr)
	return excluded, m, nil
}

func sortDecisions(ds []Decision) {
	slices.SortFunc(ds, func(a, b Decision) int { return a.Addr.Compare(b.Addr) })
}
