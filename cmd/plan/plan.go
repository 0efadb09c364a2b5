// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmdplan implements `net plan`: load and validate a topology
// file, lower it to a Plan, and print the resulting actions. It never
// touches the host.
package cmdplan

import (
	"flag"
	"fmt"

	"grimm.is/gwarden/internal/cliutil"
	"grimm.is/gwarden/internal/planner"
	"grimm.is/gwarden/internal/validation"
)

// Run parses args and executes `net plan`.
func Run(args []string) error {
	flags := flag.NewFlagSet("plan", flag.ExitOnError)
	file := flags.String("file", "", "topology YAML file (required)")
	flags.Parse(args)

	if *file == "" {
		return fmt.Errorf("plan: --file is required")
	}

	top, err := cliutil.LoadTopology(*file)
	if err != nil {
		return err
	}

	result := validation.Validate(top)
	for _, w := range result.Warnings {
		fmt.Println(w.String())
	}
	if result.HasErrors() {
		return fmt.Errorf("plan: topology failed validation")
	}

	plan, err := planner.FromTopology(top)
	if err != nil {
		return err
	}

	fmt.Printf("plan %s: %d action(s)\n", plan.ID, len(plan.Actions))
	for i, action := range plan.Actions {
		fmt.Printf("  %2d. %s\n", i+1, action.String())
	}
	return nil
}
