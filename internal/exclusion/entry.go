// Package exclusion canonicalizes exclusion tokens (addresses and CIDR
// ranges) into an immutable index and classifies candidate addresses
// against it.
package exclusion

import (
	"fmt"
	"net/netip"
)

// Kind tags the outcome of canonicalizing one raw token.
type Kind int

const (
	KindInvalid Kind = iota // token could not be parsed
	KindAddress             // "93.184.216.34", "2606:2800:220:1::248"
	KindRange               // "10.10.10.0/24", "10.0.0.5-10.0.0.20"
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindRange:
		return "range"
	default:
		return "invalid"
	}
}

// Mode selects which parse steps a token is allowed to use.
type Mode int

const (
	// ModeAddressOrRange tries a single address first, then a range.
	// Used for the local file and the static/CLI list.
	ModeAddressOrRange Mode = iota
	// ModeAddressOnly accepts single addresses only. Used for remote feeds.
	ModeAddressOnly
)

// Token is a raw exclusion string with its provenance.
type Token struct {
	Value  string // trimmed text as read
	Origin string // source name, e.g. "tor-exit-nodes"
	Line   int    // 1-based line number, 0 for in-memory origins
	Mode   Mode
	Long   bool // Value was cut from an overlong line
}

// Where returns "origin line N" (or just the origin when Line is 0).
func (t Token) Where() string {
	if t.Line > 0 {
		return fmt.Sprintf("%s line %d", t.Origin, t.Line)
	}
	return t.Origin
}

// Entry is a canonicalized token. Exactly one of Addr or Prefixes is
// meaningful, selected by Kind.
type Entry struct {
	Kind     Kind
	Token    Token
	Addr     netip.Addr     // KindAddress
	Prefixes []netip.Prefix // KindRange; more than one for start-end ranges
	Err      error          // KindInvalid
}

// String returns a human-readable representation of the entry.
func (e Entry) String() string {
	switch e.Kind {
	case KindAddress:
		return fmt.Sprintf("ip       %s", e.Addr)
	case KindRange:
		if len(e.Prefixes) == 1 {
			return fmt.Sprintf("cidr     %s", e.Prefixes[0])
		}
		return fmt.Sprintf("range    %s (%d prefixes)", e.Token.Value, len(e.Prefixes))
	default:
		return fmt.Sprintf("invalid  %q", e.Token.Value)
	}
}
