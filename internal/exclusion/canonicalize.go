package exclusion

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

var (
	errEmpty     = errors.New("empty token")
	errZone      = errors.New("zoned addresses are not supported")
	errNotAnAddr = errors.New("not a valid IP address")
	errNotARange = errors.New("not a valid IP address, CIDR or address range")
	errTooLong   = errors.New("line too long")
)

// Canonicalize converts one raw token into an Address, Range or Invalid
// entry. It never fails; problems are reported through Entry.Err.
//
// Steps, first match wins:
//  1. single address (no prefix suffix)
//  2. CIDR prefix with host bits masked off (ModeAddressOrRange only)
//  3. inclusive "start-end" range (ModeAddressOrRange only)
func Canonicalize(tok Token) Entry {
	raw := strings.TrimSpace(tok.Value)
	tok.Value = raw
	if raw == "" {
		return Entry{Kind: KindInvalid, Token: tok, Err: errEmpty}
	}
	if tok.Long {
		return Entry{Kind: KindInvalid, Token: tok, Err: errTooLong}
	}

	addr, err := ParseAddr(raw)
	if err == nil {
		// Index entries are family-neutral: a mapped entry matches IPv4.
		return Entry{Kind: KindAddress, Token: tok, Addr: addr.Unmap()}
	}
	if tok.Mode == ModeAddressOnly {
		return Entry{Kind: KindInvalid, Token: tok, Err: err}
	}

	if strings.Contains(raw, "/") {
		prefix, err := ParsePrefix(raw)
		if err != nil {
			return Entry{Kind: KindInvalid, Token: tok, Err: err}
		}
		return Entry{Kind: KindRange, Token: tok, Prefixes: []netip.Prefix{prefix}}
	}

	if strings.Contains(raw, "-") {
		prefixes, err := parseRange(raw)
		if err != nil {
			return Entry{Kind: KindInvalid, Token: tok, Err: err}
		}
		return Entry{Kind: KindRange, Token: tok, Prefixes: prefixes}
	}

	return Entry{Kind: KindInvalid, Token: tok, Err: errNotARange}
}

// ParseAddr parses a single address in canonical form. The family is kept
// as written: "::ffff:1.2.3.4" stays a 128-bit address distinct from
// "1.2.3.4". Leading zeros in IPv4 octets are rejected.
func ParseAddr(s string) (netip.Addr, error) {
	if strings.Contains(s, "/") {
		return netip.Addr{}, errNotAnAddr
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %v", errNotAnAddr, err)
	}
	if addr.Zone() != "" {
		return netip.Addr{}, errZone
	}
	return addr, nil
}

// ParsePrefix parses a CIDR prefix non-strictly: host bits beyond the
// prefix length are cleared instead of rejected.
func ParsePrefix(s string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid CIDR: %w", err)
	}
	if p.Addr().Zone() != "" {
		return netip.Prefix{}, errZone
	}
	if p.Addr().Is4In6() && p.Bits() >= 96 {
		p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
	}
	return p.Masked(), nil
}

func parseRange(s string) ([]netip.Prefix, error) {
	r, err := netipx.ParseIPRange(s)
	if err != nil {
		return nil, fmt.Errorf("invalid address range: %w", err)
	}
	prefixes := r.Prefixes()
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("invalid address range %q", s)
	}
	return prefixes, nil
}
