package source

import (
	"context"
	"strings"

	"github.com/p4th0r/ipsift/internal/exclusion"
)

// StaticName is the origin name of the configured and command-line list.
const StaticName = "static"

// Static is an in-memory list of addresses and CIDR ranges: the configured
// built-in list followed by every --exclude-cidr value.
type Static struct {
	name   string
	values []string
}

// NewStatic concatenates lists in order.
func NewStatic(lists ...[]string) *Static {
	var values []string
	for _, l := range lists {
		values = append(values, l...)
	}
	return &Static{name: StaticName, values: values}
}

// Name returns the origin name.
func (s *Static) Name() string { return s.name }

// Location is empty for in-memory lists.
func (s *Static) Location() string { return "" }

// Tokens returns one token per non-blank value. Line is the 1-based
// position in the concatenated list.
func (s *Static) Tokens(_ context.Context) ([]exclusion.Token, error) {
	tokens := make([]exclusion.Token, 0, len(s.values))
	for i, v := range s.values {
		v = strings.TrimSpace(v)
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		tokens = append(tokens, exclusion.Token{
			Value:  v,
			Origin: s.name,
			Line:   i + 1,
			Mode:   exclusion.ModeAddressOrRange,
		})
	}
	return tokens, nil
}
