// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fake provides in-memory implementations of
// internal/capability's interfaces, used by executor, rollback, and
// diffengine tests that must not touch a real kernel or nft binary.
package fake

import (
	"context"
	"sync"

	"grimm.is/gwarden/internal/capability"
)

// Link is an in-memory LinkOps. Every call is recorded in Calls for
// assertions.
type Link struct {
	mu        sync.Mutex
	Bridges   map[string]*capability.BridgeStatus
	Addresses map[string][]string
	Calls     []string

	// FailOn makes the named call fail with FailErr, for executor
	// halt-on-error tests.
	FailOn  string
	FailErr error
}

func NewLink() *Link {
	return &Link{
		Bridges:   map[string]*capability.BridgeStatus{},
		Addresses: map[string][]string{},
	}
}

func (l *Link) record(call string) error {
	l.Calls = append(l.Calls, call)
	if l.FailOn == call {
		return l.FailErr
	}
	return nil
}

func (l *Link) CreateBridge(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record("CreateBridge:" + name); err != nil {
		return err
	}
	l.Bridges[name] = &capability.BridgeStatus{Name: name, Up: true}
	return nil
}

func (l *Link) DeleteBridge(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record("DeleteBridge:" + name); err != nil {
		return err
	}
	delete(l.Bridges, name)
	delete(l.Addresses, name)
	return nil
}

func (l *Link) AddAddress(ctx context.Context, iface, cidr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record("AddAddress:" + iface + ":" + cidr); err != nil {
		return err
	}
	l.Addresses[iface] = append(l.Addresses[iface], cidr)
	if b, ok := l.Bridges[iface]; ok {
		b.Addresses = l.Addresses[iface]
	}
	return nil
}

func (l *Link) RemoveAddress(ctx context.Context, iface, cidr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record("RemoveAddress:" + iface + ":" + cidr); err != nil {
		return err
	}
	var kept []string
	for _, a := range l.Addresses[iface] {
		if a != cidr {
			kept = append(kept, a)
		}
	}
	l.Addresses[iface] = kept
	return nil
}

func (l *Link) EnableForwarding(ctx context.Context, iface string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record("EnableForwarding:" + iface)
}

func (l *Link) CreateVlan(ctx context.Context, parent, name string, vlanID uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record("CreateVlan:" + name)
}

func (l *Link) DeleteVlan(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record("DeleteVlan:" + name)
}

func (l *Link) AttachToBridge(ctx context.Context, iface, bridge string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record("AttachToBridge:" + iface + ":" + bridge); err != nil {
		return err
	}
	if b, ok := l.Bridges[bridge]; ok {
		b.Members = append(b.Members, iface)
	}
	return nil
}

func (l *Link) ListBridges(ctx context.Context) ([]capability.BridgeStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []capability.BridgeStatus
	for _, b := range l.Bridges {
		out = append(out, *b)
	}
	return out, nil
}

// Nft is an in-memory NftCli. Tables are keyed by name; Snapshot
// returns the last Apply'd document for that table unless deleted.
type Nft struct {
	mu     sync.Mutex
	Tables map[string][]byte
	Calls  []string

	FailOn  string
	FailErr error
}

func NewNft() *Nft {
	return &Nft{Tables: map[string][]byte{}}
}

func (n *Nft) record(call string) error {
	n.Calls = append(n.Calls, call)
	if n.FailOn == call {
		return n.FailErr
	}
	return nil
}

func (n *Nft) Apply(ctx context.Context, rulesetJSON []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.record("Apply"); err != nil {
		return err
	}
	table := tableNameFromRuleset(rulesetJSON)
	if table != "" {
		n.Tables[table] = rulesetJSON
	}
	return nil
}

func (n *Nft) Snapshot(ctx context.Context, table string) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.record("Snapshot:" + table); err != nil {
		return nil, err
	}
	doc, ok := n.Tables[table]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

func (n *Nft) DeleteTable(ctx context.Context, table string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.record("DeleteTable:" + table); err != nil {
		return err
	}
	delete(n.Tables, table)
	return nil
}

func (n *Nft) ListTables(ctx context.Context) ([]capability.TableRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []capability.TableRef
	for name := range n.Tables {
		out = append(out, capability.TableRef{Family: "inet", Name: name})
	}
	return out, nil
}

func (n *Nft) ListTableDetail(ctx context.Context, family, name string) (int, int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	doc, ok := n.Tables[name]
	if !ok {
		return 0, 0, nil
	}
	chains, rules := countStatements(doc)
	return chains, rules, nil
}

// Preload seeds a table's snapshot without going through Apply, for
// tests that need pre-existing host state.
func (n *Nft) Preload(table string, doc []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Tables[table] = doc
}

// Dhcp is an in-memory DhcpDns.
type Dhcp struct {
	mu      sync.Mutex
	Configs map[string]string
	Leases  []capability.Lease
	Calls   []string

	FailOn  string
	FailErr error
}

func NewDhcp() *Dhcp {
	return &Dhcp{Configs: map[string]string{}}
}

func (d *Dhcp) record(call string) error {
	d.Calls = append(d.Calls, call)
	if d.FailOn == call {
		return d.FailErr
	}
	return nil
}

func (d *Dhcp) WriteConfig(ctx context.Context, path, contents string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("WriteConfig:" + path); err != nil {
		return err
	}
	d.Configs[path] = contents
	return nil
}

func (d *Dhcp) RemoveConfig(ctx context.Context, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("RemoveConfig:" + path); err != nil {
		return err
	}
	delete(d.Configs, path)
	return nil
}

func (d *Dhcp) Restart(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record("Restart")
}

func (d *Dhcp) ReadLeases(ctx context.Context) ([]capability.Lease, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Leases, nil
}
