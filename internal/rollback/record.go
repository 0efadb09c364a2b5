// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package rollback persists the ExecutionContext of the most recent
// apply and reverses it, either automatically (confirmation timeout,
// failed liveness probe) or on operator request (`net rollback
// --execute`). Reversal is best-effort: a single failing step is
// logged and execution proceeds to the next one, because reversing
// must never itself fail the process.
package rollback

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"grimm.is/gwarden/internal/executor"
	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/planner"
)

// Record is the durable, cross-invocation form of an ExecutionContext.
type Record struct {
	CreatedAt    int64                      `json:"created_at"`
	PlanID       string                     `json:"plan_id"`
	Actions      []planner.Action           `json:"actions_completed"`
	NftSnapshots map[string]json.RawMessage `json:"nft_snapshots"`
}

// FromExecutionContext converts an in-memory ExecutionContext into its
// persisted form, stamping it with the time of conversion — called
// immediately after Executor.Apply returns (whether or not it
// succeeded), so this is the record's apply time.
func FromExecutionContext(execCtx *executor.ExecutionContext) Record {
	snapshots := make(map[string]json.RawMessage, len(execCtx.NftSnapshots))
	for table, snap := range execCtx.NftSnapshots {
		if snap == nil {
			snapshots[table] = nil
			continue
		}
		snapshots[table] = json.RawMessage(snap)
	}
	return Record{
		CreatedAt:    time.Now().Unix(),
		PlanID:       execCtx.Plan.ID,
		Actions:      execCtx.ActionsCompleted,
		NftSnapshots: snapshots,
	}
}

// StatePath returns ${XDG_STATE_HOME:-$HOME/.local/state}/gwarden/rollback.json.
func StatePath() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", gwerrors.Wrap(err, gwerrors.KindIO, "resolve home directory")
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "gwarden", "rollback.json"), nil
}

// Save writes r to the rollback state path, creating parent
// directories as needed. Called after every successful apply, before
// the confirmation timer arms, so a crash between apply and
// confirmation still leaves recoverable state on disk.
func Save(r Record) error {
	path, err := StatePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return gwerrors.Wrap(err, gwerrors.KindIO, "create rollback state directory")
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return gwerrors.Wrap(err, gwerrors.KindIO, "marshal rollback record")
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return gwerrors.Wrap(err, gwerrors.KindIO, "write rollback record")
	}
	return nil
}

// Load reads and decodes the persisted rollback record. An unrecognised
// field makes the read fail closed — a partially-understood record
// must never be silently reversed, in case a newer gwarden version
// wrote a field this build doesn't know how to walk back.
func Load() (*Record, error) {
	path, err := StatePath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, gwerrors.Wrap(err, gwerrors.KindIO, "open rollback record")
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, gwerrors.Wrap(err, gwerrors.KindRollback, "decode rollback record: refusing to reverse a record this build does not fully understand")
	}
	return &r, nil
}

// Delete removes the persisted rollback record. Called after a
// successful confirmation and after a completed reversal — in both
// cases the on-disk state no longer describes anything to reverse.
func Delete() error {
	path, err := StatePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return gwerrors.Wrap(err, gwerrors.KindIO, "delete rollback record")
	}
	return nil
}
