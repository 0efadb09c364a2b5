// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package diffengine compares a synthesised ruleset against the live
// nftables table and renders a unified diff when they disagree. The
// diff is user-facing only: it never drives partial application, and
// drift is reported rather than auto-healed.
package diffengine

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/gwerrors"
)

// Result is the outcome of comparing a table's live state against its
// desired ruleset.
type Result struct {
	Table         string
	Matches       bool
	CurrentExists bool
	DiffText      string
}

// Diff fetches table's live snapshot via nft and compares it against
// desiredJSON, both normalised by re-marshalling.
func Diff(ctx context.Context, nft capability.NftCli, table string, desiredJSON []byte) (Result, error) {
	current, err := nft.Snapshot(ctx, table)
	if err != nil {
		return Result{}, gwerrors.Wrap(err, gwerrors.KindCapability, "snapshot table "+table)
	}

	desiredNorm, err := normalize(desiredJSON)
	if err != nil {
		return Result{}, gwerrors.Wrap(err, gwerrors.KindIO, "normalize desired ruleset")
	}

	if current == nil {
		return Result{
			Table:         table,
			Matches:       false,
			CurrentExists: false,
			DiffText:      unifiedDiff(table, "", desiredNorm),
		}, nil
	}

	currentNorm, err := normalize(current)
	if err != nil {
		return Result{}, gwerrors.Wrap(err, gwerrors.KindIO, "normalize current ruleset")
	}

	if currentNorm == desiredNorm {
		return Result{Table: table, Matches: true, CurrentExists: true}, nil
	}

	return Result{
		Table:         table,
		Matches:       false,
		CurrentExists: true,
		DiffText:      unifiedDiff(table, currentNorm, desiredNorm),
	}, nil
}

// normalize parses raw as JSON and re-emits it pretty-printed, so that
// insignificant whitespace differences never show up as drift.
func normalize(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func unifiedDiff(table, current, desired string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(desired),
		FromFile: "current/" + table,
		ToFile:   "desired/" + table,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}
