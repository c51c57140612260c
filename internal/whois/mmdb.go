package whois

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"
)

// MMDBResolver resolves ASN information from a local GeoLite2-ASN
// database. It performs no network I/O.
type MMDBResolver struct {
	db *geoip2.Reader
}

// OpenMMDB opens a GeoLite2-ASN (or GeoIP2-ISP) database file.
func OpenMMDB(path string) (*MMDBResolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ASN database %s: %w", path, err)
	}
	return &MMDBResolver{db: db}, nil
}

// LookupASN returns the AS number and organization for addr. The database
// carries no prefix, country or registry.
func (r *MMDBResolver) LookupASN(_ context.Context, addr netip.Addr) (ASNInfo, error) {
	rec, err := r.db.ASN(net.IP(addr.Unmap().AsSlice()))
	if err != nil {
		return ASNInfo{}, fmt.Errorf("ASN database lookup: %w", err)
	}
	if rec.AutonomousSystemNumber == 0 {
		return ASNInfo{}, ErrNoASN
	}
	return ASNInfo{
		ASN:         rec.AutonomousSystemNumber,
		Description: rec.AutonomousSystemOrganization,
	}, nil
}

// Close closes the database.
func (r *MMDBResolver) Close() error {
	return r.db.Close()
}
