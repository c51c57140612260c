package source

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p4th0r/ipsift/internal/exclusion"
	"github.com/p4th0r/ipsift/internal/logging"
)

func testLogger() (*logging.StderrLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewLogger(&buf, false, true), &buf
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exclude.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScanTokens(t *testing.T) {
	input := "# header\n\n  1.2.3.4  \n10.0.0.0/8\n#comment\n2001:db8::1\n"
	tokens, err := scanTokens(strings.NewReader(input), "x", exclusion.ModeAddressOrRange)
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, "1.2.3.4", tokens[0].Value)
	assert.Equal(t, 3, tokens[0].Line)
	assert.Equal(t, "10.0.0.0/8", tokens[1].Value)
	assert.Equal(t, 4, tokens[1].Line)
	assert.Equal(t, 6, tokens[2].Line)
	assert.Equal(t, "x", tokens[2].Origin)
}

func TestFeedTokens(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("1.1.1.1\n# comment\n\n2.2.2.2\n10.0.0.0/8\n"))
	}))
	defer srv.Close()

	feed, err := NewFeed(FeedConfig{URL: srv.URL + "/torbulkexitlist", UserAgent: "ipsift-test/1.0"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(feed.Name(), "-torbulkexitlist"), feed.Name())

	tokens, err := feed.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "ipsift-test/1.0", gotUA)

	for _, tok := range tokens {
		assert.Equal(t, exclusion.ModeAddressOnly, tok.Mode)
	}

	// Ranges are not accepted from a feed.
	e := exclusion.Canonicalize(tokens[2])
	assert.Equal(t, exclusion.KindInvalid, e.Kind)
}

func TestFeedOverlongLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1.1.1.1\n" + strings.Repeat("9", 70*1024) + "\n2.2.2.2\n"))
	}))
	defer srv.Close()

	feed, err := NewFeed(FeedConfig{URL: srv.URL, Name: TorFeedName})
	require.NoError(t, err)

	tokens, err := feed.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.True(t, tokens[1].Long)
	assert.Equal(t, "2.2.2.2", tokens[2].Value)
	assert.Equal(t, 3, tokens[2].Line)
}

func TestFeedNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	feed, err := NewFeed(FeedConfig{URL: srv.URL, Name: "tor"})
	require.NoError(t, err)

	tokens, err := feed.Tokens(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Empty(t, tokens)
}

func TestFeedBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := []byte("1.1.1.1\n")
		for written := 0; written <= maxFeedBody; written += len(line) {
			w.Write(line)
		}
	}))
	defer srv.Close()

	feed, err := NewFeed(FeedConfig{URL: srv.URL, Name: "big"})
	require.NoError(t, err)

	_, err = feed.Tokens(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestFeedTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	feed, err := NewFeed(FeedConfig{URL: srv.URL, Name: "slow", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = feed.Tokens(context.Background())
	require.Error(t, err)
}

func TestNewFeedInvalidURL(t *testing.T) {
	_, err := NewFeed(FeedConfig{URL: "ftp://example.com/list"})
	assert.Error(t, err)

	_, err = NewFeed(FeedConfig{URL: "://bad"})
	assert.Error(t, err)
}

func TestFeedNameDerivedFromURL(t *testing.T) {
	feed, err := NewFeed(FeedConfig{URL: DefaultTorURL})
	require.NoError(t, err)
	assert.Equal(t, "check.torproject.org-torbulkexitlist", feed.Name())
	assert.Equal(t, DefaultTorURL, feed.Location())
}

func TestFileTokens(t *testing.T) {
	path := writeFile(t, "# vpn ranges\n203.0.113.0/24\n\n198.51.100.7\n")

	f := NewFile(path)
	tokens, err := f.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, LocalFileName, tokens[0].Origin)
	assert.Equal(t, 2, tokens[0].Line)
	assert.Equal(t, exclusion.ModeAddressOrRange, tokens[0].Mode)
	assert.Equal(t, "local-file line 4", tokens[1].Where())
}

func TestFileOverlongLine(t *testing.T) {
	path := writeFile(t, "10.0.0.0/24\n"+strings.Repeat("x", 70*1024)+"\n8.8.8.8\n")

	tokens, err := NewFile(path).Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.False(t, tokens[0].Long)
	assert.True(t, tokens[1].Long)
	assert.Equal(t, "8.8.8.8", tokens[2].Value)
}

func TestFileMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.txt"))
	tokens, err := f.Tokens(context.Background())
	require.ErrorIs(t, err, ErrFileNotFound)
	assert.Empty(t, tokens)
}

func TestStaticTokens(t *testing.T) {
	s := NewStatic([]string{"192.0.2.0/24"}, []string{"", " 198.51.100.0/24 ", "# note"})
	tokens, err := s.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "198.51.100.0/24", tokens[1].Value)
	assert.Equal(t, 3, tokens[1].Line)
	assert.Equal(t, StaticName, tokens[1].Origin)
}

// failingOrigin always returns an error.
type failingOrigin struct{ name string }

func (f failingOrigin) Name() string     { return f.name }
func (f failingOrigin) Location() string { return "" }
func (f failingOrigin) Tokens(context.Context) ([]exclusion.Token, error) {
	return nil, assert.AnError
}

func TestAggregatorCollectOrderAndFailure(t *testing.T) {
	log, buf := testLogger()
	agg := NewAggregator(log,
		NewStatic([]string{"10.0.0.0/8"}),
		failingOrigin{name: "broken"},
		NewFile(writeFile(t, "1.2.3.4\n")),
	)

	results := agg.Collect(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, StaticName, results[0].Origin.Name())
	assert.Equal(t, "broken", results[1].Origin.Name())
	assert.Error(t, results[1].Err)
	assert.Equal(t, LocalFileName, results[2].Origin.Name())

	assert.Contains(t, buf.String(), "source broken unavailable")
	assert.Equal(t, 1, log.Events().Count(logging.EventSourceFailed))
}

func TestAggregatorBuild(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("185.220.101.1\n185.220.0.0/16\nbogus\n"))
	}))
	defer srv.Close()

	feed, err := NewFeed(FeedConfig{URL: srv.URL, Name: TorFeedName})
	require.NoError(t, err)

	log, buf := testLogger()
	agg := NewAggregator(log,
		NewStatic([]string{"10.0.0.0/24"}, []string{"300.1.1.1/8"}),
		feed,
		NewFile(writeFile(t, "10.0.0.7\n10.0.0.5-10.0.0.20\n")),
		NewFile(filepath.Join(t.TempDir(), "absent.txt")),
	)

	idx, stats, entries := agg.Build(context.Background())
	require.Len(t, stats, 4)

	assert.Equal(t, 1, stats[0].Ranges)
	assert.Equal(t, 1, stats[0].Invalid)

	assert.Equal(t, 1, stats[1].Addresses)
	assert.Equal(t, 2, stats[1].Invalid, "feed tokens are address-only")

	assert.Equal(t, 1, stats[2].Addresses)
	assert.Equal(t, 1, stats[2].Ranges)

	assert.ErrorIs(t, stats[3].Err, ErrFileNotFound)

	assert.Len(t, entries, 4)
	ok, m := idx.Contains(netip.MustParseAddr("185.220.101.1"))
	assert.True(t, ok)
	assert.Equal(t, TorFeedName, m.Origin)

	ok, _ = idx.Contains(netip.MustParseAddr("185.220.5.5"))
	assert.False(t, ok)

	ok, m = idx.Contains(netip.MustParseAddr("10.0.0.7"))
	assert.True(t, ok)
	assert.Equal(t, exclusion.MatchAddress, m.Kind)

	out := buf.String()
	assert.Contains(t, out, "static line 2")
	assert.Contains(t, out, "tor-exit-nodes line 2")
	assert.Contains(t, out, "Exclusion index:")

	rows := ReportEntries(stats)
	require.Len(t, rows, 4)
	assert.NotEmpty(t, rows[3].Error)
	assert.Empty(t, rows[0].Error)
}

func TestAggregatorBuildMalformedLines(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantAddresses int
		wantRanges    int
		wantInvalid   int
	}{
		{
			name:          "comment blank and garbage",
			content:       "# comment\n\nnot-an-ip\n10.0.0.0/24\n8.8.8.8\n",
			wantAddresses: 1,
			wantRanges:    1,
			wantInvalid:   1,
		},
		{
			name:          "overlong line",
			content:       "10.0.0.0/24\n" + strings.Repeat("x", 70*1024) + "\n8.8.8.8\n",
			wantAddresses: 1,
			wantRanges:    1,
			wantInvalid:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, _ := testLogger()
			agg := NewAggregator(log, NewFile(writeFile(t, tt.content)))

			idx, stats, _ := agg.Build(context.Background())
			require.Len(t, stats, 1)
			require.NoError(t, stats[0].Err)
			assert.Equal(t, tt.wantAddresses, stats[0].Addresses)
			assert.Equal(t, tt.wantRanges, stats[0].Ranges)
			assert.Equal(t, tt.wantInvalid, stats[0].Invalid)
			assert.Equal(t, tt.wantInvalid, log.Events().Count(logging.EventInvalidToken))

			ok, _ := idx.Contains(netip.MustParseAddr("8.8.8.8"))
			assert.True(t, ok)
			ok, _ = idx.Contains(netip.MustParseAddr("10.0.0.200"))
			assert.True(t, ok)
		})
	}
}
