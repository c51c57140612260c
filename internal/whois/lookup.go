// Package whois annotates addresses with ASN and WHOIS network data and a
// keyword verdict on whether they look residential.
package whois

import (
	"context"
	"net/netip"
	"time"

	"github.com/p4th0r/ipsift/internal/exclusion"
	"github.com/p4th0r/ipsift/internal/logging"
)

// reservedRanges are special-purpose blocks that have no meaningful WHOIS
// owner, in addition to what netip classifies as private or local.
var reservedRanges = []string{
	"0.0.0.0/8",
	"100.64.0.0/10",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"240.0.0.0/4",
	"2001:db8::/32",
	"64:ff9b::/96",
}

var reserved = func() *exclusion.Index {
	entries := make([]exclusion.Entry, 0, len(reservedRanges))
	for _, r := range reservedRanges {
		entries = append(entries, exclusion.Canonicalize(exclusion.Token{Value: r, Origin: "reserved"}))
	}
	return exclusion.NewIndex(entries)
}()

// SkipReason returns why addr should not be looked up, or "" if it should.
func SkipReason(addr netip.Addr) string {
	switch {
	case !addr.IsValid():
		return "invalid address"
	case addr.IsLoopback():
		return "loopback"
	case addr.IsPrivate():
		return "private"
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return "link-local"
	case addr.IsMulticast(), addr.IsInterfaceLocalMulticast():
		return "multicast"
	case addr.IsUnspecified():
		return "unspecified"
	}
	if ok, m := reserved.Contains(addr); ok {
		return "reserved " + m.Prefix.String()
	}
	return ""
}

// Record is the annotated result for one address.
type Record struct {
	Address    string   `json:"address"`
	Skipped    string   `json:"skipped,omitempty"`
	ASN        *ASNInfo `json:"asn,omitempty"`
	Network    *NetInfo `json:"network,omitempty"`
	Verdict    Verdict  `json:"verdict"`
	Error      string   `json:"error,omitempty"`
	WhoisError string   `json:"whois_error,omitempty"`
}

// Looker runs lookups one address at a time.
type Looker struct {
	asn       ASNResolver
	whois     *Client
	heuristic Heuristic
	delay     time.Duration
	log       *logging.StderrLogger

	sleep func(ctx context.Context, d time.Duration) error
}

// LookerConfig holds the collaborators of a Looker.
type LookerConfig struct {
	ASN       ASNResolver
	Whois     *Client // nil skips the WHOIS step
	Heuristic Heuristic
	Delay     time.Duration
	Logger    *logging.StderrLogger
}

// NewLooker creates a Looker.
func NewLooker(cfg LookerConfig) *Looker {
	return &Looker{
		asn:       cfg.ASN,
		whois:     cfg.Whois,
		heuristic: cfg.Heuristic,
		delay:     cfg.Delay,
		log:       cfg.Logger,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run looks up every address in order, waiting the configured delay
// between queries but not after the last one or after a skipped address.
// A failed lookup is recorded and the batch continues. Run stops early
// only when ctx is cancelled.
func (l *Looker) Run(ctx context.Context, addrs []netip.Addr, onRecord func(int, Record)) ([]Record, error) {
	records := make([]Record, 0, len(addrs))
	for i, addr := range addrs {
		rec := l.Lookup(ctx, addr)
		records = append(records, rec)
		if onRecord != nil {
			onRecord(i, rec)
		}

		if i < len(addrs)-1 && rec.Skipped == "" {
			l.log.Debug("Waiting %s before next query", l.delay)
			if err := l.sleep(ctx, l.delay); err != nil {
				return records, err
			}
		}
	}
	return records, nil
}

// Lookup annotates a single address.
func (l *Looker) Lookup(ctx context.Context, addr netip.Addr) Record {
	rec := Record{Address: addr.String()}
	// A mapped address is looked up as the IPv4 address it carries.
	addr = addr.Unmap()

	if reason := SkipReason(addr); reason != "" {
		rec.Skipped = reason
		l.log.Info("Skipping %s (%s)", addr, reason)
		return rec
	}

	info, err := l.asn.LookupASN(ctx, addr)
	if err != nil {
		rec.Error = err.Error()
		l.log.Error("ASN lookup failed for %s: %v", addr, err)
		return rec
	}
	rec.ASN = &info

	fields := []string{info.Description}
	if l.whois != nil {
		server := ServerFor(info.Registry)
		netInfo, err := l.whois.Lookup(ctx, server, addr)
		if err != nil {
			rec.WhoisError = err.Error()
			l.log.Warn("WHOIS lookup for %s via %s failed: %v", addr, server, err)
		} else {
			rec.Network = &netInfo
			fields = append(fields, netInfo.NetName, netInfo.Description)
		}
	}

	rec.Verdict = l.heuristic.Classify(fields...)
	return rec
}
