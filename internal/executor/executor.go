// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package executor walks a Plan and dispatches each Action to the
// capability bundle that actually touches the kernel, nftables, and
// dnsmasq. It halts on the first failing action and leaves the
// ExecutionContext populated with exactly the actions that completed,
// so RollbackEngine can reverse precisely that prefix.
package executor

import (
	"context"
	"fmt"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/planner"
	"grimm.is/gwarden/internal/ruleset"
	"grimm.is/gwarden/internal/topology"
)

// ExecutionContext is the append-only record of what has actually
// happened on the host during one apply. It is the sole input to
// RollbackEngine and the sole thing persisted across invocations.
type ExecutionContext struct {
	Plan             *planner.Plan
	ActionsCompleted []planner.Action
	NftSnapshots     map[string][]byte // table -> pre-apply snapshot, nil if table was absent
}

func newContext(plan *planner.Plan) *ExecutionContext {
	return &ExecutionContext{
		Plan:         plan,
		NftSnapshots: map[string][]byte{},
	}
}

// Executor applies a Plan's actions in order against a capability
// Bundle.
type Executor struct {
	Caps capability.Bundle
	Top  *topology.Topology
}

// New builds an Executor bound to caps and the topology the plan was
// derived from (needed to resolve policy profiles and NAT parameters
// when synthesising a table's ruleset).
func New(caps capability.Bundle, top *topology.Topology) *Executor {
	return &Executor{Caps: caps, Top: top}
}

// Apply walks plan.Actions in order. On the first failing action it
// halts and returns the error alongside the ExecutionContext populated
// with the already-completed prefix.
func (e *Executor) Apply(ctx context.Context, plan *planner.Plan) (*ExecutionContext, error) {
	execCtx := newContext(plan)

	for _, action := range plan.Actions {
		if err := e.dispatch(ctx, execCtx, action); err != nil {
			return execCtx, gwerrors.Wrapf(err, gwerrors.KindCapability, "action %q failed", action.String())
		}
		execCtx.ActionsCompleted = append(execCtx.ActionsCompleted, action)
	}

	return execCtx, nil
}

func (e *Executor) dispatch(ctx context.Context, execCtx *ExecutionContext, action planner.Action) error {
	switch action.Kind {
	case planner.ActionCreateBridge:
		return e.Caps.Link.CreateBridge(ctx, action.BridgeName)

	case planner.ActionAddAddress:
		return e.Caps.Link.AddAddress(ctx, action.Iface, action.Addr)

	case planner.ActionEnableForwarding:
		return e.Caps.Link.EnableForwarding(ctx, action.Iface)

	case planner.ActionCreateNftRuleset:
		return e.applyRuleset(ctx, execCtx, action)

	case planner.ActionStartDnsmasq:
		contents, err := e.dnsmasqConfig(action)
		if err != nil {
			return err
		}
		if err := e.Caps.Dhcp.WriteConfig(ctx, action.ConfigPath, contents); err != nil {
			return err
		}
		return e.Caps.Dhcp.Restart(ctx)

	case planner.ActionCreateVlan:
		return e.Caps.Link.CreateVlan(ctx, action.VlanParent, action.VlanName, action.VlanID)

	case planner.ActionAttachVlanToBridge:
		return e.Caps.Link.AttachToBridge(ctx, action.Vlan, action.Bridge)

	default:
		return gwerrors.Errorf(gwerrors.KindUnknown, "unhandled action kind %q", action.Kind)
	}
}

// applyRuleset synthesises the ruleset for action's network, snapshots
// the table's current state before applying (step order matters: the
// snapshot must be captured before Apply overwrites it), and records
// the snapshot; Executor.Apply records the completed action once this
// returns without error.
func (e *Executor) applyRuleset(ctx context.Context, execCtx *ExecutionContext, action planner.Action) error {
	params, err := ruleset.ParamsForNetwork(e.Top, action.NetworkName)
	if err != nil {
		return err
	}

	doc, err := ruleset.Synthesize(params)
	if err != nil {
		return err
	}

	snapshot, err := e.Caps.Nft.Snapshot(ctx, action.Table)
	if err != nil {
		return err
	}
	execCtx.NftSnapshots[action.Table] = snapshot

	return e.Caps.Nft.Apply(ctx, doc)
}

func (e *Executor) dnsmasqConfig(action planner.Action) (string, error) {
	// Find the network this dnsmasq instance serves by re-deriving the
	// config path convention from planner.FromTopology.
	for _, netName := range e.Top.SortedNetworkNames() {
		net := e.Top.Networks[netName]
		if net.Routed == nil || !net.Routed.DHCP {
			continue
		}
		if fmt.Sprintf("/etc/dnsmasq.d/gw-%s.conf", netName) != action.ConfigPath {
			continue
		}
		return renderDnsmasqConfig(netName, net.Routed), nil
	}
	return "", gwerrors.Errorf(gwerrors.KindValidation, "no DHCP-enabled network matches config path %q", action.ConfigPath)
}

func renderDnsmasqConfig(networkName string, r *topology.RoutedNetwork) string {
	bridge := planner.BridgeName(networkName)
	cfg := fmt.Sprintf("interface=%s\nbind-interfaces\ndhcp-range=%s\n", bridge, dhcpRangeFor(r.CIDR))
	if r.DNS != nil && r.DNS.Enabled {
		for _, zone := range r.DNS.Zones {
			cfg += fmt.Sprintf("local=/%s/\n", zone)
		}
	}
	return cfg
}

// dhcpRangeFor derives a conservative DHCP pool from the network CIDR:
// the ten-host block starting at .20 through .29.  The bridge's own
// gateway address and low addresses are left free for static use.
func dhcpRangeFor(cidr string) string {
	base := networkBase(cidr)
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s.20,%s.29,12h", base, base)
}

func networkBase(cidr string) string {
	for i := len(cidr) - 1; i >= 0; i-- {
		if cidr[i] == '/' {
			ip := cidr[:i]
			lastDot := -1
			for j := len(ip) - 1; j >= 0; j-- {
				if ip[j] == '.' {
					lastDot = j
					break
				}
			}
			if lastDot < 0 {
				return ""
			}
			return ip[:lastDot]
		}
	}
	return ""
}
