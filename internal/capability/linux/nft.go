// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package linux

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/gwerrors"
)

// Nft is the real NftCli, shelling out to the nft binary's JSON front
// end rather than linking against a netlink-nftables library — gwarden
// treats nft(8) itself as the compatibility boundary, so a kernel or
// nft version skew shows up as a subprocess error, not a build break.
type Nft struct{}

func NewNft() Nft { return Nft{} }

func (Nft) Apply(ctx context.Context, rulesetJSON []byte) error {
	cmd := exec.CommandContext(ctx, "nft", "-j", "-f", "-")
	cmd.Stdin = bytes.NewReader(rulesetJSON)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "nft -j -f -: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (Nft) Snapshot(ctx context.Context, table string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "nft", "-j", "list", "table", "inet", table).CombinedOutput()
	if err != nil {
		if tableMissing(out) {
			return nil, nil
		}
		return nil, gwerrors.Wrapf(err, gwerrors.KindCapability, "nft -j list table inet %s: %s", table, strings.TrimSpace(string(out)))
	}
	return out, nil
}

func (Nft) DeleteTable(ctx context.Context, table string) error {
	out, err := exec.CommandContext(ctx, "nft", "delete", "table", "inet", table).CombinedOutput()
	if err != nil {
		if tableMissing(out) {
			return nil
		}
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "nft delete table inet %s: %s", table, strings.TrimSpace(string(out)))
	}
	return nil
}

func (Nft) ListTables(ctx context.Context) ([]capability.TableRef, error) {
	out, err := exec.CommandContext(ctx, "nft", "-j", "list", "tables").CombinedOutput()
	if err != nil {
		return nil, gwerrors.Wrapf(err, gwerrors.KindCapability, "nft -j list tables: %s", strings.TrimSpace(string(out)))
	}

	var parsed struct {
		Nftables []map[string]json.RawMessage `json:"nftables"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, gwerrors.Wrap(err, gwerrors.KindCapability, "parse nft -j list tables output")
	}

	var refs []capability.TableRef
	for _, stmt := range parsed.Nftables {
		raw, ok := stmt["table"]
		if !ok {
			continue
		}
		var t struct {
			Family string `json:"family"`
			Name   string `json:"name"`
		}
		if json.Unmarshal(raw, &t) == nil {
			refs = append(refs, capability.TableRef{Family: t.Family, Name: t.Name})
		}
	}
	return refs, nil
}

func (Nft) ListTableDetail(ctx context.Context, family, name string) (int, int, error) {
	out, err := exec.CommandContext(ctx, "nft", "-j", "list", "table", family, name).CombinedOutput()
	if err != nil {
		return 0, 0, gwerrors.Wrapf(err, gwerrors.KindCapability, "nft -j list table %s %s: %s", family, name, strings.TrimSpace(string(out)))
	}

	var parsed struct {
		Nftables []map[string]json.RawMessage `json:"nftables"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, 0, gwerrors.Wrap(err, gwerrors.KindCapability, "parse nft -j list table output")
	}

	var chains, rules int
	for _, stmt := range parsed.Nftables {
		if _, ok := stmt["chain"]; ok {
			chains++
		}
		if _, ok := stmt["rule"]; ok {
			rules++
		}
	}
	return chains, rules, nil
}

func tableMissing(nftOutput []byte) bool {
	return bytes.Contains(nftOutput, []byte("No such file or directory")) ||
		bytes.Contains(nftOutput, []byte("does not exist"))
}
