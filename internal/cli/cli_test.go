package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p4th0r/ipsift/internal/input"
	"github.com/p4th0r/ipsift/internal/logging"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func torServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFilterEndToEnd(t *testing.T) {
	t.Setenv("IPSIFT_EXCLUDE_CIDRS", "")
	dir := t.TempDir()
	srv := torServer(t, http.StatusOK, "# exits\n185.220.101.1\n")

	in := writeFile(t, dir, "in.txt", strings.Join([]string{
		"10.0.0.7",
		"10.0.0.8",
		"185.220.101.1",
		"203.0.113.50",
		"2001:db8::1",
		"8.8.8.8",
		"8.8.8.8",
		"::ffff:8.8.4.4",
		"::ffff:10.0.0.9",
		"bad-line",
	}, "\n"))
	local := writeFile(t, dir, "vpn.txt", "# datacenters\n10.0.0.7\n203.0.113.0/24\n")
	out := filepath.Join(dir, "out.txt")
	reports := filepath.Join(dir, "reports")
	require.NoError(t, os.Mkdir(reports, 0755))
	prom := filepath.Join(dir, "ipsift.prom")

	_, err := execute(t, "filter",
		"-i", in, "-o", out,
		"--exclude-cidr", "10.0.0.0/24",
		"--local-exclude-file", local,
		"--tor-url", srv.URL,
		"--report", reports,
		"--metrics-file", prom,
		"-q",
	)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "8.8.8.8\n::ffff:8.8.4.4\n2001:db8::1\n", string(data))

	matches, err := filepath.Glob(filepath.Join(reports, "ipsift-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var report logging.RunReport
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, 8, report.Summary.Candidates)
	assert.Equal(t, 5, report.Summary.Excluded)
	assert.Equal(t, 3, report.Summary.Kept)
	assert.Equal(t, 2, report.Summary.ByReason["listed address"])
	assert.Equal(t, 3, report.Summary.ByReason["range"])
	require.Len(t, report.Sources, 3)
	assert.Equal(t, "static", report.Sources[0].Name)
	assert.Equal(t, "tor-exit-nodes", report.Sources[1].Name)
	assert.Equal(t, "local-file", report.Sources[2].Name)
	assert.NotEmpty(t, report.Warnings, "the malformed input line is recorded")
	assert.Equal(t, 1, report.Summary.InvalidEntries)

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "ipsift_filter_kept_total 3")
}

func TestFilterSourceFailuresAreNotFatal(t *testing.T) {
	dir := t.TempDir()
	srv := torServer(t, http.StatusServiceUnavailable, "down")
	in := writeFile(t, dir, "in.txt", "192.168.1.5\n10.0.0.1\n")
	out := filepath.Join(dir, "out.txt")

	_, err := execute(t, "filter",
		"-i", in, "-o", out,
		"--local-exclude-file", filepath.Join(dir, "missing.txt"),
		"--tor-url", srv.URL,
		"-q",
	)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1\n192.168.1.5\n", string(data))
}

func TestFilterFatalInput(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		wantErr error
	}{
		{"missing input", nil, input.ErrNotFound},
		{"empty input", strPtr(""), input.ErrNoAddresses},
		{"no valid addresses", strPtr("# only\nnot-an-ip\n"), input.ErrNoAddresses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, "in.txt")
			if tt.content != nil {
				writeFile(t, dir, "in.txt", *tt.content)
			}
			out := writeFile(t, dir, "out.txt", "previous\n")

			_, err := execute(t, "filter", "-i", in, "-o", out, "--no-tor",
				"--local-exclude-file", filepath.Join(dir, "none.txt"), "-q")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, "previous\n", string(data), "output must not be touched")
		})
	}
}

func TestFilterOutputUnwritable(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "8.8.8.8\n")
	blocker := writeFile(t, dir, "blocker", "x")

	_, err := execute(t, "filter", "-i", in, "-o", filepath.Join(blocker, "out.txt"), "--no-tor",
		"--local-exclude-file", filepath.Join(dir, "none.txt"), "-q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing output")
}

func TestFilterPcapInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	_, err := execute(t, "filter", "-i", filepath.Join(dir, "none.pcap"), "-o", out,
		"--input-format", "pcap", "--no-tor", "--local-exclude-file", filepath.Join(dir, "x"), "-q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, input.ErrNotFound))
}

func TestFilterDryRun(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	_, err := execute(t, "filter", "--dry-run", "--no-tor",
		"--exclude-cidr", "192.0.2.0/24",
		"--local-exclude-file", filepath.Join(dir, "none.txt"),
		"-o", out, "-q",
	)
	require.NoError(t, err)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "dry run must not write output")
}

func TestFilterInvalidFlags(t *testing.T) {
	_, err := execute(t, "filter", "-i", "in.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output file")

	_, err = execute(t, "filter", "-i", "a", "-o", "b", "--input-format", "csv")
	require.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ipsift test")
	assert.Contains(t, out, "os/arch:")
}

func TestCompletionCmd(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "ipsift")

	_, err = execute(t, "completion", "powershell")
	assert.Error(t, err)
}

func TestWordCountCmd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "Hello, hello world")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	writeFile(t, filepath.Join(dir, "sub"), "b.md", "one_two three")

	out, err := execute(t, "wordcount", dir)
	require.NoError(t, err)
	assert.Equal(t, "Total word count in .md files: 5\n", out)

	_, err = execute(t, "wordcount", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestWhoisCmdSkipsPrivate(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "10.0.0.1\n192.168.1.1\n")
	jsonPath := filepath.Join(dir, "whois.json")

	out, err := execute(t, "whois", "-i", in, "--delay", "0s", "--resolver", "127.0.0.1:1", "--json", jsonPath, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped:      private")

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"skipped": 2`)
}

func strPtr(s string) *string { return &s }
