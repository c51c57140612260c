package whois

import (
	"context"
	"net/netip"
)

// ASNInfo describes the autonomous system announcing an address.
type ASNInfo struct {
	ASN         uint   `json:"asn"`
	Prefix      string `json:"prefix,omitempty"`
	Country     string `json:"country,omitempty"`
	Registry    string `json:"registry,omitempty"` // arin, ripencc, apnic, lacnic, afrinic
	Description string `json:"description,omitempty"`
}

// ASNResolver looks up ASN information for an address.
type ASNResolver interface {
	LookupASN(ctx context.Context, addr netip.Addr) (ASNInfo, error)
}
