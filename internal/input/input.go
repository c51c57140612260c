// Package input loads the candidate addresses a command operates on.
package input

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/netip"
	"os"
	"strings"

	"github.com/p4th0r/ipsift/internal/capture"
	"github.com/p4th0r/ipsift/internal/exclusion"
	"github.com/p4th0r/ipsift/internal/lines"
	"github.com/p4th0r/ipsift/internal/logging"
)

// Supported input formats.
const (
	FormatText = "text"
	FormatPcap = "pcap"
)

var (
	// ErrNoAddresses is returned when the input yields zero valid addresses.
	ErrNoAddresses = errors.New("no valid IP addresses found in input")
	// ErrNotFound is returned when the input file does not exist.
	ErrNotFound = errors.New("input file not found")

	errLineTooLong = fmt.Errorf("line longer than %d bytes", lines.MaxLen)
)

// Stats describes what was read from the input.
type Stats struct {
	Lines      int // non-blank, non-comment lines (or packets for pcap)
	Valid      int // unique valid addresses
	Invalid    int
	Duplicates int
}

// Load reads candidates from path in the given format. The returned
// addresses are unique, in first-seen order.
func Load(path, format string, log *logging.StderrLogger) ([]netip.Addr, Stats, error) {
	switch format {
	case "", FormatText:
		return LoadText(path, log)
	case FormatPcap:
		return loadPcap(path, log)
	default:
		return nil, Stats{}, fmt.Errorf("unknown input format %q", format)
	}
}

// LoadText reads one address per line. Blank lines and # comments are
// skipped; malformed lines are logged with their line number and dropped.
func LoadText(path string, log *logging.StderrLogger) ([]netip.Addr, Stats, error) {
	f, err := open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	addrs, st, err := ReadText(f, path, log)
	if err != nil {
		return nil, st, err
	}
	log.Info("Read %d valid addresses from %s (%d invalid entries skipped, %d duplicates)",
		st.Valid, path, st.Invalid, st.Duplicates)
	return addrs, st, nil
}

// ReadText is LoadText over an already open reader. name is used in
// warnings. Addresses keep their family: "::ffff:1.2.3.4" and "1.2.3.4"
// are two candidates.
func ReadText(r io.Reader, name string, log *logging.StderrLogger) ([]netip.Addr, Stats, error) {
	var st Stats
	var addrs []netip.Addr
	seen := make(map[netip.Addr]struct{})

	err := lines.Scan(r, func(num int, line string, long bool) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}
		st.Lines++

		where := fmt.Sprintf("%s line %d", name, num)
		if long {
			st.Invalid++
			log.InvalidInput(where, line, errLineTooLong)
			return
		}

		addr, err := exclusion.ParseAddr(line)
		if err != nil {
			st.Invalid++
			log.InvalidInput(where, line, err)
			return
		}
		if _, dup := seen[addr]; dup {
			st.Duplicates++
			return
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	})
	if err != nil {
		return nil, st, fmt.Errorf("reading %s: %w", name, err)
	}

	st.Valid = len(addrs)
	if st.Valid == 0 {
		return nil, st, fmt.Errorf("%s: %w", name, ErrNoAddresses)
	}
	return addrs, st, nil
}

func loadPcap(path string, log *logging.StderrLogger) ([]netip.Addr, Stats, error) {
	f, err := open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	h, err := capture.Harvest(f)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("reading capture %s: %w", path, err)
	}

	st := Stats{Lines: h.Packets, Valid: len(h.Addrs), Invalid: h.Undecodable}
	if st.Valid == 0 {
		return nil, st, fmt.Errorf("%s: %w", path, ErrNoAddresses)
	}
	size := "unknown size"
	if info, err := f.Stat(); err == nil {
		size = capture.FormatSize(info.Size())
	}
	log.Info("Harvested %d unique addresses from %d packets in %s (%s, %s, %d without an IP layer)",
		st.Valid, h.Packets, path, h.Format, size, h.Undecodable)
	return h.Addrs, st, nil
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening input %s: %w", path, err)
	}
	return f, nil
}
