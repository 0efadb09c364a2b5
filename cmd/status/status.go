// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmdstatus implements `net status`: collect and render the
// host's live bridges, nftables tables, and DHCP leases.
package cmdstatus

import (
	"context"
	"flag"
	"fmt"

	"grimm.is/gwarden/internal/cliutil"
	"grimm.is/gwarden/internal/state"
)

// Run parses args and executes `net status`.
func Run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("status", flag.ExitOnError)
	flags.Parse(args)

	caps := cliutil.LiveCapabilities()
	snap, err := state.Collect(ctx, caps)
	if err != nil {
		return err
	}

	fmt.Println("bridges:")
	for _, b := range snap.Bridges {
		fmt.Printf("  %s up=%v addrs=%v members=%v\n", b.Name, b.Up, b.Addresses, b.Members)
	}

	fmt.Println("nftables tables:")
	for _, t := range snap.Tables {
		fmt.Printf("  %s/%s chains=%d rules=%d\n", t.Family, t.Name, t.Chains, t.Rules)
	}

	fmt.Println("dhcp leases:")
	for _, l := range snap.Leases {
		status := "active"
		if l.Expired {
			status = "expired"
		}
		fmt.Printf("  %s %s %s expires_in=%ds (%s)\n", l.MAC, l.IP, l.Hostname, l.ExpiresInSeconds, status)
	}
	return nil
}
