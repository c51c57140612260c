// Package source collects raw exclusion tokens from remote feeds, local
// files and static lists. A failing source never aborts a run; it simply
// contributes no tokens.
package source

import (
	"context"
	"io"
	"strings"

	"github.com/p4th0r/ipsift/internal/exclusion"
	"github.com/p4th0r/ipsift/internal/lines"
)

// Origin produces raw exclusion tokens.
type Origin interface {
	// Name returns the origin name used in warnings, reports and metrics.
	Name() string
	// Location returns the URL or path the origin reads, if any.
	Location() string
	// Tokens returns every non-blank, non-comment line as a token.
	Tokens(ctx context.Context) ([]exclusion.Token, error)
}

// scanTokens reads one token per line. Blank lines and lines starting with
// # are skipped. Line numbers are 1-based and count skipped lines. An
// overlong line becomes a Long token, which never canonicalizes.
func scanTokens(r io.Reader, origin string, mode exclusion.Mode) ([]exclusion.Token, error) {
	var tokens []exclusion.Token

	err := lines.Scan(r, func(num int, line string, long bool) {
		line = strings.TrimSpace(line)

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}

		tokens = append(tokens, exclusion.Token{
			Value:  line,
			Origin: origin,
			Line:   num,
			Mode:   mode,
			Long:   long,
		})
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
