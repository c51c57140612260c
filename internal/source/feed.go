package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/p4th0r/ipsift/internal/exclusion"
)

const (
	// DefaultTorURL is the Tor Project's bulk exit node list.
	DefaultTorURL = "https://check.torproject.org/torbulkexitlist"
	// TorFeedName is the origin name of the Tor exit list.
	TorFeedName = "tor-exit-nodes"
	// DefaultFetchTimeout bounds a single feed request.
	DefaultFetchTimeout = 30 * time.Second

	maxFeedBody = 10 << 20 // 10 MiB
)

// DefaultUserAgent returns an identifier for HTTP requests to feed
// operators, e.g. "ipsift/v0.3.0".
func DefaultUserAgent() string {
	const (
		name       = "ipsift"
		importPath = "github.com/p4th0r/ipsift"
	)
	version := "unknown"
	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Path == importPath && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			version = bi.Main.Version
		}
	}
	return name + "/" + version
}

// FeedConfig holds configuration for a remote feed origin.
type FeedConfig struct {
	URL       string        // feed URL
	Name      string        // origin name (defaults to URL hostname + last path segment)
	UserAgent string        // defaults to DefaultUserAgent()
	Timeout   time.Duration // defaults to DefaultFetchTimeout
	Client    *http.Client  // optional, overrides Timeout
}

// Feed is a remote plaintext list of single addresses, one per line.
// Its tokens are only ever parsed as addresses.
type Feed struct {
	url       string
	name      string
	userAgent string
	client    *http.Client
}

// NewFeed creates a feed origin. It does not fetch anything.
func NewFeed(cfg FeedConfig) (*Feed, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid feed URL %q: scheme must be http or https", cfg.URL)
	}

	name := cfg.Name
	if name == "" {
		name = feedName(u)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent()
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Feed{
		url:       cfg.URL,
		name:      name,
		userAgent: ua,
		client:    client,
	}, nil
}

func feedName(u *url.URL) string {
	name := strings.TrimPrefix(u.Host, "www.")
	if u.Path != "" && u.Path != "/" {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		name = name + "-" + parts[len(parts)-1]
	}
	return name
}

// Name returns the origin name.
func (f *Feed) Name() string { return f.name }

// Location returns the feed URL.
func (f *Feed) Location() string { return f.url }

// Tokens fetches the feed. Any non-2xx status, network error or oversized
// body is returned as an error; the caller decides whether it is fatal.
func (f *Feed) Tokens(ctx context.Context) ([]exclusion.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxFeedBody {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxFeedBody)
	}

	return scanTokens(bytes.NewReader(body), f.name, exclusion.ModeAddressOnly)
}
