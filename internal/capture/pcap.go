// Package capture harvests candidate addresses from packet captures.
package capture

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Capture file formats.
const (
	FormatPcap   = "pcap"
	FormatPcapNg = "pcapng"
)

// Result is the outcome of harvesting one capture.
type Result struct {
	Format      string
	LinkType    layers.LinkType
	Packets     int
	Undecodable int          // packets without an IPv4 or IPv6 layer
	Addrs       []netip.Addr // unique, in first-seen order
}

// packetReader is implemented by both pcapgo.Reader and pcapgo.NgReader.
type packetReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Harvest reads a pcap or pcapng stream and collects the source and
// destination address of every IP packet. Unspecified, multicast and
// limited-broadcast addresses are never candidates and are skipped.
func Harvest(r io.Reader) (*Result, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}

	res := &Result{}
	var pr packetReader
	if isNgMagic(magic) {
		res.Format = FormatPcapNg
		pr, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		res.Format = FormatPcap
		pr, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s reader: %w", res.Format, err)
	}
	res.LinkType = pr.LinkType()

	seen := make(map[netip.Addr]struct{})
	add := func(ip net.IP) {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			return
		}
		if addr.IsUnspecified() || addr.IsMulticast() || addr == limitedBroadcast {
			return
		}
		if _, dup := seen[addr]; dup {
			return
		}
		seen[addr] = struct{}{}
		res.Addrs = append(res.Addrs, addr)
	}

	src := gopacket.NewPacketSource(pr, res.LinkType)
	src.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	for {
		packet, err := src.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading packet %d: %w", res.Packets+1, err)
		}
		res.Packets++

		switch {
		case packet.Layer(layers.LayerTypeIPv4) != nil:
			ip4 := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
			add(ip4.SrcIP)
			add(ip4.DstIP)
		case packet.Layer(layers.LayerTypeIPv6) != nil:
			ip6 := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
			add(ip6.SrcIP)
			add(ip6.DstIP)
		default:
			res.Undecodable++
		}
	}

	return res, nil
}

var limitedBroadcast = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// FormatSize returns a human-readable file size string.
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
	)
	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// isNgMagic reports whether b starts with a pcapng Section Header Block.
// The block type reads the same in either byte order.
func isNgMagic(b []byte) bool {
	return len(b) >= 4 && binary.BigEndian.Uint32(b) == 0x0a0d0d0a
}
