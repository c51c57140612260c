// ipsift vets lists of IP addresses: it filters out Tor exits, listed
// addresses and CIDR blocks, and annotates the rest with ASN and WHOIS data.
package main

import (
	"fmt"
	"os"

	"github.com/p4th0r/ipsift/internal/cli"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	rootCmd := cli.NewRootCmd(version)
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[ipsift] Error: %v\n", err)
		os.Exit(1)
	}
}
