// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command net is gwarden's one-shot reconciler: it reads a topology
// file and brings kernel, nftables, and dnsmasq state into line with
// it. It is not a daemon — every invocation plans, optionally applies,
// and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/gwarden/cmd/apply"
	"grimm.is/gwarden/cmd/diff"
	"grimm.is/gwarden/cmd/forward"
	"grimm.is/gwarden/cmd/plan"
	"grimm.is/gwarden/cmd/policy"
	"grimm.is/gwarden/cmd/rollback"
	"grimm.is/gwarden/cmd/status"
	"grimm.is/gwarden/internal/cliutil"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	name, args := os.Args[1], os.Args[2:]

	var err error
	switch name {
	case "plan":
		err = cmdplan.Run(args)
	case "apply":
		err = cmdapply.Run(ctx, args)
	case "diff":
		err = cmddiff.Run(ctx, args)
	case "rollback":
		err = cmdrollback.Run(ctx, args)
	case "status":
		err = cmdstatus.Run(ctx, args)
	case "forward":
		err = cmdforward.Run(args)
	case "policy":
		err = cmdpolicy.Run(args)
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cliutil.ExitCode(err))
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: net <plan|apply|diff|rollback|status|forward|policy> [flags]")
}
