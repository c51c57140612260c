package whois

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/p4th0r/ipsift/internal/lines"
)

const (
	ianaServer    = "whois.iana.org"
	whoisPort     = "43"
	maxWhoisReply = 1 << 20
)

// registryServers maps RIR names, as reported by Team Cymru, to WHOIS
// servers.
var registryServers = map[string]string{
	"arin":    "whois.arin.net",
	"ripencc": "whois.ripe.net",
	"apnic":   "whois.apnic.net",
	"lacnic":  "whois.lacnic.net",
	"afrinic": "whois.afrinic.net",
}

// ServerFor returns the WHOIS server of registry, or whois.iana.org for an
// unknown or empty registry.
func ServerFor(registry string) string {
	if s, ok := registryServers[strings.ToLower(registry)]; ok {
		return s
	}
	return ianaServer
}

// NetInfo is the subset of a WHOIS reply the heuristic uses.
type NetInfo struct {
	Server      string `json:"server"`
	NetName     string `json:"net_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Dialer opens a TCP connection. It matches net.Dialer.DialContext.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// Client queries WHOIS servers over TCP port 43.
type Client struct {
	dial    Dialer
	timeout time.Duration
}

// NewClient creates a WHOIS client. A nil dial uses net.Dialer.
func NewClient(dial Dialer, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if dial == nil {
		d := &net.Dialer{Timeout: timeout}
		dial = d.DialContext
	}
	return &Client{dial: dial, timeout: timeout}
}

// Lookup queries server for addr. A reply from whois.iana.org that names
// a "refer:" server is followed once.
func (c *Client) Lookup(ctx context.Context, server string, addr netip.Addr) (NetInfo, error) {
	reply, err := c.query(ctx, server, addr)
	if err != nil {
		return NetInfo{}, err
	}

	if server == ianaServer {
		if ref := referral(reply); ref != "" && ref != server {
			server = ref
			if reply, err = c.query(ctx, server, addr); err != nil {
				return NetInfo{}, err
			}
		}
	}

	info := parseReply(reply)
	info.Server = server
	return info, nil
}

func (c *Client) query(ctx context.Context, server string, addr netip.Addr) (string, error) {
	conn, err := c.dial(ctx, "tcp", net.JoinHostPort(server, whoisPort))
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("setting deadline: %w", err)
	}

	if _, err := io.WriteString(conn, queryString(server, addr)); err != nil {
		return "", fmt.Errorf("writing query to %s: %w", server, err)
	}

	data, err := io.ReadAll(io.LimitReader(conn, maxWhoisReply))
	if err != nil {
		return "", fmt.Errorf("reading reply from %s: %w", server, err)
	}
	return string(data), nil
}

// queryString formats the query line. ARIN needs the "n" flag to return
// network records only.
func queryString(server string, addr netip.Addr) string {
	if server == registryServers["arin"] {
		return "n + " + addr.String() + "\r\n"
	}
	return addr.String() + "\r\n"
}

// referral returns the value of the first "refer:" line.
func referral(reply string) string {
	for _, kv := range replyFields(reply) {
		if kv[0] == "refer" || kv[0] == "whois" {
			return kv[1]
		}
	}
	return ""
}

// parseReply picks the first net name and the first description-like
// attribute. Keys are matched case-insensitively.
func parseReply(reply string) NetInfo {
	var info NetInfo
	for _, kv := range replyFields(reply) {
		switch kv[0] {
		case "netname":
			if info.NetName == "" {
				info.NetName = kv[1]
			}
		case "descr", "orgname", "org-name":
			if info.Description == "" {
				info.Description = kv[1]
			}
		}
	}
	return info
}

// replyFields returns "key: value" pairs with lowercased keys. Comment
// lines (% or #), overlong lines and empty values are skipped.
func replyFields(reply string) [][2]string {
	var out [][2]string
	_ = lines.Scan(strings.NewReader(reply), func(_ int, line string, long bool) {
		line = strings.TrimSpace(line)
		if long || line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			return
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			return
		}
		out = append(out, [2]string{key, value})
	})
	return out
}
