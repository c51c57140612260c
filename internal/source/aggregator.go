package source

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/p4th0r/ipsift/internal/exclusion"
	"github.com/p4th0r/ipsift/internal/logging"
)

// Result is what one origin produced.
type Result struct {
	Origin Origin
	Tokens []exclusion.Token
	Err    error
}

// Stats summarizes one origin after canonicalization.
type Stats struct {
	Name      string
	Location  string
	Tokens    int
	Addresses int
	Ranges    int
	Invalid   int
	Err       error
}

// Aggregator collects tokens from every origin and builds the exclusion
// index. Origin failures are logged and never abort the build.
type Aggregator struct {
	origins []Origin
	log     *logging.StderrLogger
}

// NewAggregator creates an aggregator. Results are always merged in the
// order origins are given here.
func NewAggregator(log *logging.StderrLogger, origins ...Origin) *Aggregator {
	return &Aggregator{origins: origins, log: log}
}

// Collect fetches all origins concurrently. Each goroutine writes only its
// own slot, so the returned slice follows the origin order.
func (a *Aggregator) Collect(ctx context.Context) []Result {
	results := make([]Result, len(a.origins))

	var g errgroup.Group
	for i, o := range a.origins {
		i, o := i, o
		g.Go(func() error {
			tokens, err := o.Tokens(ctx)
			results[i] = Result{Origin: o, Tokens: tokens, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			a.log.SourceFailed(r.Origin.Name(), r.Err)
			continue
		}
		a.log.Debug("Source %s: %d tokens read", r.Origin.Name(), len(r.Tokens))
	}
	return results
}

// Build collects all origins, canonicalizes every token and returns the
// finished index together with per-origin stats and all valid entries.
func (a *Aggregator) Build(ctx context.Context) (*exclusion.Index, []Stats, []exclusion.Entry) {
	results := a.Collect(ctx)

	var entries []exclusion.Entry
	stats := make([]Stats, 0, len(results))

	for _, r := range results {
		st := Stats{
			Name:     r.Origin.Name(),
			Location: r.Origin.Location(),
			Tokens:   len(r.Tokens),
			Err:      r.Err,
		}

		for _, tok := range r.Tokens {
			e := exclusion.Canonicalize(tok)
			switch e.Kind {
			case exclusion.KindAddress:
				st.Addresses++
			case exclusion.KindRange:
				st.Ranges++
			default:
				st.Invalid++
				a.log.InvalidToken(tok.Where(), tok.Value, e.Err)
				continue
			}
			entries = append(entries, e)
		}

		if r.Err == nil {
			a.log.SourceLoaded(st.Name, st.Addresses, st.Ranges, st.Invalid)
		}
		stats = append(stats, st)
	}

	idx := exclusion.NewIndex(entries)
	a.log.IndexBuilt(idx.Summary())
	return idx, stats, entries
}

// ReportEntries converts stats into report rows.
func ReportEntries(stats []Stats) []logging.SourceEntry {
	out := make([]logging.SourceEntry, 0, len(stats))
	for _, st := range stats {
		e := logging.SourceEntry{
			Name:      st.Name,
			Location:  st.Location,
			Tokens:    st.Tokens,
			Addresses: st.Addresses,
			Ranges:    st.Ranges,
			Invalid:   st.Invalid,
		}
		if st.Err != nil {
			e.Error = st.Err.Error()
		}
		out = append(out, e)
	}
	return out
}
