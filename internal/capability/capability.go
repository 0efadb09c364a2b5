// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package capability defines the external-world interfaces the
// reconciliation core depends on but never implements directly:
// netlink link/address manipulation, nftables apply/snapshot, and
// dnsmasq DHCP/DNS config management. Concrete adapters live in
// internal/capability/linux (real hosts) and internal/capability/fake
// (in-memory, for core package tests).
//
// Keeping these as interfaces at the package boundary is what lets
// planner, ruleset, executor, and rollback be tested without a Linux
// kernel, a running nft binary, or root.
package capability

import "context"

// LinkOps manipulates network links: bridges, VLAN subinterfaces, and
// addresses.
type LinkOps interface {
	CreateBridge(ctx context.Context, name string) error
	DeleteBridge(ctx context.Context, name string) error
	AddAddress(ctx context.Context, iface, cidr string) error
	RemoveAddress(ctx context.Context, iface, cidr string) error
	EnableForwarding(ctx context.Context, iface string) error
	CreateVlan(ctx context.Context, parent, name string, vlanID uint16) error
	DeleteVlan(ctx context.Context, name string) error
	AttachToBridge(ctx context.Context, iface, bridge string) error

	// ListBridges enumerates the host's bridge links for StateCollector.
	ListBridges(ctx context.Context) ([]BridgeStatus, error)
}

// BridgeStatus is a snapshot of one bridge link's observed state.
type BridgeStatus struct {
	Name      string
	Up        bool
	Addresses []string
	Members   []string
}

// NftCli drives nftables through its JSON front end.
type NftCli interface {
	// Apply loads a complete ruleset document via `nft -j -f -`.
	Apply(ctx context.Context, rulesetJSON []byte) error
	// Snapshot returns the current JSON listing of table, or nil if the
	// table does not exist. A tooling/permission failure is a hard
	// error, never represented as "absent".
	Snapshot(ctx context.Context, table string) ([]byte, error)
	// DeleteTable removes table entirely (used when reversing a create
	// with no prior snapshot).
	DeleteTable(ctx context.Context, table string) error

	// ListTables and ListTableDetail back StateCollector's nftables
	// sub-collector.
	ListTables(ctx context.Context) ([]TableRef, error)
	ListTableDetail(ctx context.Context, family, name string) (chains, rules int, err error)
}

// TableRef identifies one nftables table.
type TableRef struct {
	Family string
	Name   string
}

// DhcpDns manages dnsmasq configuration files and reads its lease
// database.
type DhcpDns interface {
	WriteConfig(ctx context.Context, path, contents string) error
	RemoveConfig(ctx context.Context, path string) error
	Restart(ctx context.Context) error

	// ReadLeases parses the dnsmasq leases file for StateCollector.
	ReadLeases(ctx context.Context) ([]Lease, error)
}

// Lease is one entry of dnsmasq's leases database.
type Lease struct {
	MAC      string
	IP       string
	Hostname string
	// ExpiresInSeconds is max(0, expiry-now); Expired is true once the
	// lease has elapsed.
	ExpiresInSeconds int64
	Expired          bool
}

// Bundle groups the three capabilities the reconciliation core needs,
// so callers thread one value instead of three.
type Bundle struct {
	Link LinkOps
	Nft  NftCli
	Dhcp DhcpDns
}
