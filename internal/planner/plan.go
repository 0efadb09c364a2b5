// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package planner lowers a validated Topology into an ordered Plan of
// typed Actions. Planning is a pure function: no host state is read,
// no capability is called. Action ordering is part of the contract —
// dependencies always precede dependents, and networks are iterated in
// sorted-name order so two runs over the same Topology produce
// identical action sequences. Plan.ID is a fresh random UUID on every
// run and so differs between them.
package planner

import (
	"fmt"

	"github.com/google/uuid"

	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/topology"
)

// ActionKind discriminates the Action tagged union.
type ActionKind string

const (
	ActionCreateBridge       ActionKind = "create_bridge"
	ActionAddAddress         ActionKind = "add_address"
	ActionEnableForwarding   ActionKind = "enable_forwarding"
	ActionCreateNftRuleset   ActionKind = "create_nft_ruleset"
	ActionStartDnsmasq       ActionKind = "start_dnsmasq"
	ActionCreateVlan         ActionKind = "create_vlan"
	ActionAttachVlanToBridge ActionKind = "attach_vlan_to_bridge"
)

// Action is one step of a Plan. Exactly the fields relevant to Kind are
// populated; this mirrors Network's tagged-union shape.
type Action struct {
	Kind ActionKind

	// CreateBridge
	BridgeName string
	BridgeCIDR string // optional; empty means no address-bearing bridge

	// AddAddress
	Iface string
	Addr  string

	// EnableForwarding reuses Iface.

	// CreateNftRuleset
	Table         string
	PolicyProfile string // name, resolved at synthesis time; may be unknown
	NetworkName   string // the routed network this ruleset belongs to

	// StartDnsmasq
	ConfigPath string

	// CreateVlan
	VlanParent string
	VlanID     uint16
	VlanName   string

	// AttachVlanToBridge
	Vlan   string
	Bridge string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionCreateBridge:
		if a.BridgeCIDR != "" {
			return fmt.Sprintf("create bridge %s (%s)", a.BridgeName, a.BridgeCIDR)
		}
		return fmt.Sprintf("create bridge %s", a.BridgeName)
	case ActionAddAddress:
		return fmt.Sprintf("add address %s to %s", a.Addr, a.Iface)
	case ActionEnableForwarding:
		return fmt.Sprintf("enable forwarding on %s", a.Iface)
	case ActionCreateNftRuleset:
		if a.PolicyProfile != "" {
			return fmt.Sprintf("create nftables table %s (policy %s)", a.Table, a.PolicyProfile)
		}
		return fmt.Sprintf("create nftables table %s", a.Table)
	case ActionStartDnsmasq:
		return fmt.Sprintf("start dnsmasq with config %s", a.ConfigPath)
	case ActionCreateVlan:
		return fmt.Sprintf("create VLAN %s on %s (id %d)", a.VlanName, a.VlanParent, a.VlanID)
	case ActionAttachVlanToBridge:
		return fmt.Sprintf("attach VLAN %s to bridge %s", a.Vlan, a.Bridge)
	default:
		return string(a.Kind)
	}
}

// Plan is an ordered sequence of Actions derived from a Topology.
type Plan struct {
	ID      string
	Actions []Action
}

// BridgeName returns the contractual bridge name for a network: br-N.
func BridgeName(network string) string {
	return "br-" + network
}

// TableName returns the contractual nftables table name for a network:
// gw-N.
func TableName(network string) string {
	return "gw-" + network
}

// FromTopology lowers t into a Plan. It assumes t has already passed
// validation — Planner itself does not re-validate, per the
// "Validation soundness" testable property (no errors from Validator
// implies Planner never panics).
//
// VxlanNetwork lowering is not implemented: a VxlanNetwork in the
// topology makes FromTopology return a validation-kind error rather
// than silently dropping the network, per the resolved VXLAN redesign
// flag.
func FromTopology(t *topology.Topology) (*Plan, error) {
	plan := &Plan{ID: uuid.NewString()}

	for _, name := range t.SortedNetworkNames() {
		n := t.Networks[name]
		switch n.Type {
		case topology.NetworkRouted:
			appendRoutedActions(plan, name, n.Routed)
		case topology.NetworkBridge:
			appendBridgeActions(plan, t, name, n.Bridge)
		case topology.NetworkVxlan:
			return nil, gwerrors.Errorf(gwerrors.KindValidation,
				"network %q: VXLAN lowering is not supported; remove it or model it as a bridge network", name)
		default:
			return nil, gwerrors.Errorf(gwerrors.KindValidation, "network %q: unknown network type %q", name, n.Type)
		}
	}

	return plan, nil
}

func appendRoutedActions(plan *Plan, name string, r *topology.RoutedNetwork) {
	bridge := BridgeName(name)

	plan.Actions = append(plan.Actions, Action{
		Kind:       ActionCreateBridge,
		BridgeName: bridge,
		BridgeCIDR: r.CIDR,
	})
	plan.Actions = append(plan.Actions, Action{
		Kind:  ActionAddAddress,
		Iface: bridge,
		Addr:  gatewayHostAddr(r),
	})
	plan.Actions = append(plan.Actions, Action{
		Kind:  ActionEnableForwarding,
		Iface: bridge,
	})
	plan.Actions = append(plan.Actions, Action{
		Kind:          ActionCreateNftRuleset,
		Table:         TableName(name),
		PolicyProfile: r.PolicyProfile,
		NetworkName:   name,
	})
	if r.DHCP {
		plan.Actions = append(plan.Actions, Action{
			Kind:       ActionStartDnsmasq,
			ConfigPath: fmt.Sprintf("/etc/dnsmasq.d/gw-%s.conf", name),
		})
	}
}

// gatewayHostAddr renders gw_ip/prefix — the address assigned to the
// bridge, not the network address.
func gatewayHostAddr(r *topology.RoutedNetwork) string {
	prefix := "32"
	if idx := lastSlash(r.CIDR); idx >= 0 {
		prefix = r.CIDR[idx+1:]
	}
	return r.GatewayIP + "/" + prefix
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func appendBridgeActions(plan *Plan, t *topology.Topology, name string, b *topology.BridgeNetwork) {
	if b.VLAN != nil {
		if uplink, ok := t.Interfaces["uplink"]; ok && uplink != "" {
			vlanName := fmt.Sprintf("%s.%d", uplink, *b.VLAN)
			plan.Actions = append(plan.Actions, Action{
				Kind:       ActionCreateVlan,
				VlanParent: uplink,
				VlanID:     *b.VLAN,
				VlanName:   vlanName,
			})
			plan.Actions = append(plan.Actions, Action{
				Kind:   ActionAttachVlanToBridge,
				Vlan:   vlanName,
				Bridge: b.Iface,
			})
		}
	}

	plan.Actions = append(plan.Actions, Action{
		Kind:       ActionCreateBridge,
		BridgeName: b.Iface,
	})
}
