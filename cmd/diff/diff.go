// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmddiff implements `net diff`: synthesise the desired
// ruleset for one or every routed network and compare it against the
// live host, printing a unified diff wherever they disagree.
package cmddiff

import (
	"context"
	"flag"
	"fmt"

	"grimm.is/gwarden/internal/cliutil"
	"grimm.is/gwarden/internal/diffengine"
	"grimm.is/gwarden/internal/ruleset"
)

// Run parses args and executes `net diff`.
func Run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("diff", flag.ExitOnError)
	file := flags.String("file", "", "topology YAML file (required)")
	table := flags.String("table", "", "limit the diff to one network's table (default: every routed network)")
	flags.Parse(args)

	if *file == "" {
		return fmt.Errorf("diff: --file is required")
	}

	top, err := cliutil.LoadTopology(*file)
	if err != nil {
		return err
	}

	caps := cliutil.LiveCapabilities()

	anyMismatch := false
	for _, name := range top.SortedNetworkNames() {
		net := top.Networks[name]
		if net.Routed == nil {
			continue
		}
		params, err := ruleset.ParamsForNetwork(top, name)
		if err != nil {
			return err
		}
		if *table != "" && params.Table != *table {
			continue
		}

		desired, err := ruleset.Synthesize(params)
		if err != nil {
			return err
		}

		result, err := diffengine.Diff(ctx, caps.Nft, params.Table, desired)
		if err != nil {
			return err
		}

		if result.Matches {
			fmt.Printf("%s: matches\n", result.Table)
			continue
		}
		anyMismatch = true
		fmt.Printf("%s: drift (current_exists=%v)\n%s\n", result.Table, result.CurrentExists, result.DiffText)
	}

	if anyMismatch {
		return fmt.Errorf("diff: drift detected")
	}
	return nil
}
