// Package config provides the configuration structs for ipsift commands.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/p4th0r/ipsift/internal/input"
	"github.com/p4th0r/ipsift/internal/source"
)

// Environment variables that override built-in defaults. They may also be
// set in a .env file in the working directory.
const (
	EnvTorURL           = "IPSIFT_TOR_URL"
	EnvLocalExcludeFile = "IPSIFT_LOCAL_EXCLUDE_FILE"
	EnvFetchTimeout     = "IPSIFT_FETCH_TIMEOUT"
	EnvUserAgent        = "IPSIFT_USER_AGENT"
	EnvExcludeCIDRs     = "IPSIFT_EXCLUDE_CIDRS"
	EnvWhoisDelay       = "IPSIFT_WHOIS_DELAY"
)

// DefaultWhoisDelay is the pause between two WHOIS queries.
const DefaultWhoisDelay = time.Second

// Defaults holds flag defaults after environment overrides.
type Defaults struct {
	TorURL           string
	LocalExcludeFile string
	FetchTimeout     time.Duration
	UserAgent        string
	ExcludeCIDRs     []string // built-in static list
	WhoisDelay       time.Duration
}

// LoadDefaults reads .env (if present) then the environment.
func LoadDefaults() (Defaults, error) {
	// Best-effort: a missing .env is not an error
	_ = godotenv.Load()
	return DefaultsFromEnv(os.Getenv)
}

// DefaultsFromEnv builds Defaults using getenv for lookups.
func DefaultsFromEnv(getenv func(string) string) (Defaults, error) {
	d := Defaults{
		TorURL:           source.DefaultTorURL,
		LocalExcludeFile: source.DefaultLocalFile,
		FetchTimeout:     source.DefaultFetchTimeout,
		UserAgent:        source.DefaultUserAgent(),
		WhoisDelay:       DefaultWhoisDelay,
	}

	if v := strings.TrimSpace(getenv(EnvTorURL)); v != "" {
		d.TorURL = v
	}
	if v := strings.TrimSpace(getenv(EnvLocalExcludeFile)); v != "" {
		d.LocalExcludeFile = v
	}
	if v := strings.TrimSpace(getenv(EnvUserAgent)); v != "" {
		d.UserAgent = v
	}
	if v := strings.TrimSpace(getenv(EnvFetchTimeout)); v != "" {
		t, err := time.ParseDuration(v)
		if err != nil {
			return d, fmt.Errorf("invalid %s %q: %w", EnvFetchTimeout, v, err)
		}
		d.FetchTimeout = t
	}
	if v := strings.TrimSpace(getenv(EnvWhoisDelay)); v != "" {
		t, err := time.ParseDuration(v)
		if err != nil {
			return d, fmt.Errorf("invalid %s %q: %w", EnvWhoisDelay, v, err)
		}
		d.WhoisDelay = t
	}
	if v := strings.TrimSpace(getenv(EnvExcludeCIDRs)); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				d.ExcludeCIDRs = append(d.ExcludeCIDRs, c)
			}
		}
	}

	return d, nil
}

// Config holds all parsed CLI state for a filter run.
type Config struct {
	// Input and output
	Input       string
	Output      string
	InputFormat string

	// Exclusion sources
	ExcludeCIDRs     []string // repeated --exclude-cidr
	BuiltinCIDRs     []string // from IPSIFT_EXCLUDE_CIDRS
	LocalExcludeFile string
	TorURL           string
	NoTor            bool
	Feeds            []string
	FetchTimeout     time.Duration
	UserAgent        string

	// Options
	ReportPath  string
	MetricsPath string
	LogPath     string
	Quiet       bool
	Verbose     bool
	DryRun      bool

	// Derived values (set after parsing)
	RunID string
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !c.DryRun {
		if c.Input == "" {
			return fmt.Errorf("no input file specified: use -i/--input")
		}
		if c.Output == "" {
			return fmt.Errorf("no output file specified: use -o/--output")
		}
		if c.Input == c.Output {
			return fmt.Errorf("input and output must be different files (got %s)", c.Input)
		}
	}

	switch c.InputFormat {
	case input.FormatText, input.FormatPcap:
	default:
		return fmt.Errorf("invalid input format %q: must be %s or %s", c.InputFormat, input.FormatText, input.FormatPcap)
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive (got %s)", c.FetchTimeout)
	}

	if !c.NoTor {
		if err := validateURL(c.TorURL); err != nil {
			return fmt.Errorf("invalid Tor list URL: %w", err)
		}
	}
	for _, f := range c.Feeds {
		if err := validateURL(f); err != nil {
			return fmt.Errorf("invalid feed URL: %w", err)
		}
	}

	if c.Quiet && c.Verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}

	return nil
}

// StaticCIDRs returns the built-in list followed by the command-line list.
func (c *Config) StaticCIDRs() []string {
	out := make([]string, 0, len(c.BuiltinCIDRs)+len(c.ExcludeCIDRs))
	out = append(out, c.BuiltinCIDRs...)
	return append(out, c.ExcludeCIDRs...)
}

// WhoisConfig holds CLI state for the whois command.
type WhoisConfig struct {
	Input    string
	Delay    time.Duration
	ASNDB    string // GeoLite2-ASN.mmdb; Team Cymru DNS is used when empty
	Resolver string // host:port for DNS lookups; system resolver when empty
	JSONPath string
	Timeout  time.Duration
	NoWhois  bool // ASN data only, no port-43 queries
	Quiet    bool
	Verbose  bool
}

// Validate checks that the whois configuration is valid.
func (c *WhoisConfig) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("no input file specified: use -i/--input")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative (got %s)", c.Delay)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %s)", c.Timeout)
	}
	if c.Resolver != "" {
		if _, _, err := net.SplitHostPort(c.Resolver); err != nil {
			return fmt.Errorf("invalid resolver %q: want host:port", c.Resolver)
		}
	}
	if c.Quiet && c.Verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	return nil
}

// WordCountConfig holds CLI state for the wordcount command.
type WordCountConfig struct {
	Root    string
	Ext     string
	Workers int
}

// Validate checks that the wordcount configuration is valid.
func (c *WordCountConfig) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("no directory specified")
	}
	if !strings.HasPrefix(c.Ext, ".") || len(c.Ext) < 2 {
		return fmt.Errorf("invalid extension %q: must start with a dot, e.g. .md", c.Ext)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1 (got %d)", c.Workers)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}
