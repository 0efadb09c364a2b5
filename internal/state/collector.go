// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package state collects the host's live network state for `net
// status`: bridges and their members, nftables table/chain/rule
// counts, and DHCP leases. The three sub-collectors are independent
// reads, so Collect runs them concurrently via errgroup and merges
// their results.
package state

import (
	"context"

	"golang.org/x/sync/errgroup"

	"grimm.is/gwarden/internal/capability"
)

// Bridge is one observed bridge link.
type Bridge struct {
	Name      string
	Up        bool
	Addresses []string
	Members   []string
}

// Table is one observed nftables table's statement counts.
type Table struct {
	Family string
	Name   string
	Chains int
	Rules  int
}

// Lease is one observed DHCP lease.
type Lease = capability.Lease

// Snapshot is the merged result of every sub-collector.
type Snapshot struct {
	Bridges []Bridge
	Tables  []Table
	Leases  []Lease
}

// Collect runs the bridge, nftables, and DHCP-lease sub-collectors
// concurrently and merges their results. If any sub-collector fails,
// Collect returns the first error and no partial Snapshot.
func Collect(ctx context.Context, caps capability.Bundle) (Snapshot, error) {
	var snap Snapshot

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bridges, err := collectBridges(gctx, caps.Link)
		if err != nil {
			return err
		}
		snap.Bridges = bridges
		return nil
	})

	g.Go(func() error {
		tables, err := collectTables(gctx, caps.Nft)
		if err != nil {
			return err
		}
		snap.Tables = tables
		return nil
	})

	g.Go(func() error {
		leases, err := caps.Dhcp.ReadLeases(gctx)
		if err != nil {
			return err
		}
		snap.Leases = leases
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func collectBridges(ctx context.Context, link capability.LinkOps) ([]Bridge, error) {
	raw, err := link.ListBridges(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Bridge, len(raw))
	for i, b := range raw {
		out[i] = Bridge{Name: b.Name, Up: b.Up, Addresses: b.Addresses, Members: b.Members}
	}
	return out, nil
}

func collectTables(ctx context.Context, nft capability.NftCli) ([]Table, error) {
	refs, err := nft.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Table, 0, len(refs))
	for _, ref := range refs {
		chains, rules, err := nft.ListTableDetail(ctx, ref.Family, ref.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, Table{Family: ref.Family, Name: ref.Name, Chains: chains, Rules: rules})
	}
	return out, nil
}
