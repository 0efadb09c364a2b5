// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmdapply implements `net apply`: validate, detect conflicts,
// plan, and — with --commit — execute against the live host, then
// race a confirmation window and an optional liveness probe before
// deciding whether to keep the change or roll it back.
package cmdapply

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"grimm.is/gwarden/internal/cliutil"
	"grimm.is/gwarden/internal/conflict"
	"grimm.is/gwarden/internal/executor"
	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/gwlog"
	"grimm.is/gwarden/internal/planner"
	"grimm.is/gwarden/internal/rollback"
	"grimm.is/gwarden/internal/validation"
)

var log = gwlog.New("apply")

// Run parses args and executes `net apply`.
func Run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("apply", flag.ExitOnError)
	file := flags.String("file", "", "topology YAML file (required)")
	commit := flags.Bool("commit", false, "execute the plan against the live host")
	confirmSecs := flags.Int("confirm", 30, "seconds to wait for operator confirmation before auto-rollback (0 disables)")
	probe := flags.String("probe", "", "host:port to probe for liveness before the confirmation window arms")
	probeTimeout := flags.Int("probe-timeout", 5, "seconds to wait for the liveness probe")
	force := flags.Bool("force", false, "commit even when error-severity host conflicts are detected")
	flags.Parse(args)

	if *file == "" {
		return fmt.Errorf("apply: --file is required")
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
		return gwerrors.Errorf(gwerrors.KindValidation, "apply: topology failed validation")
	}

	report := conflict.Detect(ctx)
	for _, c := range report.Conflicts {
		fmt.Printf("[%s] %s: %s (%s)\n", c.Severity, c.Service, c.Description, c.Suggestion)
	}
	if *commit && !*force && report.HasErrors() {
		return gwerrors.Errorf(gwerrors.KindConflict, "apply: error-severity host conflicts block --commit (pass --force to override)")
	}

	plan, err := planner.FromTopology(top)
	if err != nil {
		return err
	}

	if !*commit {
		fmt.Printf("plan %s: %d action(s) (dry run, pass --commit to execute)\n", plan.ID, len(plan.Actions))
		for i, action := range plan.Actions {
			fmt.Printf("  %2d. %s\n", i+1, action.String())
		}
		return nil
	}

	caps := cliutil.LiveCapabilities()
	ex := executor.New(caps, top)

	execCtx, applyErr := ex.Apply(ctx, plan)
	record := rollback.FromExecutionContext(execCtx)

	if applyErr != nil {
		log.Warnf("apply failed after %d action(s), reversing: %v", len(execCtx.ActionsCompleted), applyErr)
		rollback.Reverse(ctx, caps, record)
		return gwerrors.Wrap(applyErr, gwerrors.KindCapability, "apply failed, changes reversed")
	}

	if err := rollback.Save(record); err != nil {
		log.Warnf("persist rollback record: %v", err)
	}

	if *probe != "" {
		if !rollback.ProbeLiveness(ctx, *probe, time.Duration(*probeTimeout)*time.Second) {
			log.Warnf("liveness probe against %s failed, rolling back", *probe)
			rollback.Reverse(ctx, caps, record)
			_ = rollback.Delete()
			return gwerrors.Errorf(gwerrors.KindRollback, "apply: liveness probe failed, rollback triggered")
		}
	}

	stdinLines := make(chan struct{})
	if *confirmSecs > 0 {
		go readConfirmationLines(stdinLines)
	}

	switch rollback.AwaitConfirmation(ctx, *confirmSecs, stdinLines) {
	case rollback.ConfirmTimedOut:
		log.Warnf("confirmation window elapsed with no input, rolling back")
		rollback.Reverse(ctx, caps, record)
		_ = rollback.Delete()
		return gwerrors.Errorf(gwerrors.KindRollback, "apply: confirmation timed out, rollback triggered")
	case rollback.ConfirmInputReceived, rollback.ConfirmDisabled:
		_ = rollback.Delete()
		fmt.Printf("apply %s: committed, %d action(s)\n", plan.ID, len(execCtx.ActionsCompleted))
		return nil
	}
	return nil
}

// readConfirmationLines sends on stdinLines once, when the first line
// of operator input arrives, so AwaitConfirmation's select can race it
// against the timer.
func readConfirmationLines(stdinLines chan<- struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		stdinLines <- struct{}{}
		return
	}
}
