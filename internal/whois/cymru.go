package whois

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	cymruOrigin4 = "origin.asn.cymru.com."
	cymruOrigin6 = "origin6.asn.cymru.com."
	cymruASN     = "asn.cymru.com."

	fallbackResolver = "1.1.1.1:53"
)

// ErrNoASN is returned when an address is not announced by any AS.
var ErrNoASN = errors.New("no ASN found")

// CymruResolver resolves ASN information with Team Cymru's IP to ASN
// DNS service.
type CymruResolver struct {
	server  string
	timeout time.Duration
}

// NewCymruResolver creates a resolver that queries server (host:port). An
// empty server uses the first nameserver in /etc/resolv.conf.
func NewCymruResolver(server string, timeout time.Duration) *CymruResolver {
	if server == "" {
		server = systemResolver()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CymruResolver{server: server, timeout: timeout}
}

func systemResolver() string {
	cc, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cc.Servers) == 0 {
		return fallbackResolver
	}
	return net.JoinHostPort(cc.Servers[0], cc.Port)
}

// Server returns the resolver address in use.
func (r *CymruResolver) Server() string { return r.server }

// LookupASN queries the origin zone for addr, then the AS zone for the
// AS description.
func (r *CymruResolver) LookupASN(ctx context.Context, addr netip.Addr) (ASNInfo, error) {
	name, err := originName(addr)
	if err != nil {
		return ASNInfo{}, err
	}

	txts, err := r.queryTXT(ctx, name)
	if err != nil {
		return ASNInfo{}, fmt.Errorf("origin lookup: %w", err)
	}
	if len(txts) == 0 {
		return ASNInfo{}, ErrNoASN
	}

	info, err := parseOriginTXT(txts[0])
	if err != nil {
		return ASNInfo{}, err
	}

	asTxts, err := r.queryTXT(ctx, fmt.Sprintf("AS%d.%s", info.ASN, cymruASN))
	if err == nil && len(asTxts) > 0 {
		info.Description = parseASNameTXT(asTxts[0])
	}

	return info, nil
}

// queryTXT sends a TXT query, retrying over TCP when truncated.
func (r *CymruResolver) queryTXT(ctx context.Context, name string) ([]string, error) {
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	req.RecursionDesired = true

	client := &dns.Client{
		Timeout: r.timeout,
		Net:     "udp",
	}

	resp, _, err := client.ExchangeContext(ctx, req, r.server)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}

	// If truncated, retry over TCP
	if resp.Truncated {
		client.Net = "tcp"
		resp, _, err = client.ExchangeContext(ctx, req, r.server)
		if err != nil {
			return nil, fmt.Errorf("query %s over TCP: %w", name, err)
		}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("query %s: %s", name, dns.RcodeToString[resp.Rcode])
	}

	var out []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	return out, nil
}

// originName returns the Cymru origin query name for addr, e.g.
// "4.3.2.1.origin.asn.cymru.com." for 1.2.3.4.
func originName(addr netip.Addr) (string, error) {
	addr = addr.Unmap()
	rev, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", fmt.Errorf("reversing %s: %w", addr, err)
	}
	if addr.Is4() {
		return strings.TrimSuffix(rev, "in-addr.arpa.") + cymruOrigin4, nil
	}
	return strings.TrimSuffix(rev, "ip6.arpa.") + cymruOrigin6, nil
}

// parseOriginTXT parses "13335 | 1.1.1.0/24 | AU | apnic | 2011-08-11".
// When several ASNs announce the prefix the first is used.
func parseOriginTXT(s string) (ASNInfo, error) {
	fields := splitPipes(s)
	if len(fields) < 4 {
		return ASNInfo{}, fmt.Errorf("malformed origin record %q", s)
	}

	asField := strings.Fields(fields[0])
	if len(asField) == 0 {
		return ASNInfo{}, fmt.Errorf("malformed origin record %q", s)
	}
	asn, err := strconv.ParseUint(asField[0], 10, 32)
	if err != nil {
		return ASNInfo{}, fmt.Errorf("malformed ASN in %q: %w", s, err)
	}

	return ASNInfo{
		ASN:      uint(asn),
		Prefix:   fields[1],
		Country:  fields[2],
		Registry: strings.ToLower(fields[3]),
	}, nil
}

// parseASNameTXT returns the description from
// "13335 | US | arin | 2010-07-14 | CLOUDFLARENET, US".
func parseASNameTXT(s string) string {
	fields := splitPipes(s)
	if len(fields) < 5 {
		return ""
	}
	return strings.Join(fields[4:], " | ")
}

func splitPipes(s string) []string {
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
