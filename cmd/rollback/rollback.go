// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmdrollback implements `net rollback`: show the persisted
// snapshot of the most recent apply, or replay its reversal against
// the live host with --execute.
package cmdrollback

import (
	"context"
	"flag"
	"fmt"
	"time"

	"grimm.is/gwarden/internal/cliutil"
	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/rollback"
)

// Run parses args and executes `net rollback`.
func Run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("rollback", flag.ExitOnError)
	execute := flags.Bool("execute", false, "replay the reversal against the live host")
	flags.Parse(args)

	record, err := rollback.Load()
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Println("rollback: no persisted record")
		return nil
	}

	fmt.Printf("rollback record for plan %s: created %s, %d action(s) completed\n",
		record.PlanID, time.Unix(record.CreatedAt, 0).Local().Format(time.RFC3339), len(record.Actions))
	for i, action := range record.Actions {
		fmt.Printf("  %2d. %s\n", i+1, action.String())
	}

	if !*execute {
		return nil
	}

	caps := cliutil.LiveCapabilities()
	rollback.Reverse(ctx, caps, *record)
	if err := rollback.Delete(); err != nil {
		return gwerrors.Wrap(err, gwerrors.KindIO, "rollback: delete persisted record")
	}
	fmt.Println("rollback: reversal complete")
	return nil
}
