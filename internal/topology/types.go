// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package topology defines the declarative document an operator writes:
// bridges, routed (NAT) networks, VLAN trunks, port forwards, and policy
// profiles. It is the root of the reconciliation pipeline — everything
// downstream (validation, planning, synthesis) is a pure function of a
// parsed Topology.
package topology

import "sort"

// CurrentVersion is the schema version this build understands.
const CurrentVersion = 1

// Topology is the root document.
type Topology struct {
	Version    uint32                   `yaml:"version"`
	Interfaces map[string]string        `yaml:"interfaces,omitempty"`
	Networks   map[string]*Network      `yaml:"networks,omitempty"`
	Profiles   map[string]*PolicyProfile `yaml:"profiles,omitempty"`
}

// NetworkType discriminates the Network tagged union.
type NetworkType string

const (
	NetworkRouted NetworkType = "routed"
	NetworkBridge NetworkType = "bridge"
	NetworkVxlan  NetworkType = "vxlan"
)

// Network is a closed tagged union. Exactly one of Routed/Bridge/Vxlan
// is populated, matching the Type discriminator. Go has no native sum
// type, so this is the idiomatic approximation: a discriminator field
// plus one pointer per variant, enforced by UnmarshalYAML.
type Network struct {
	Type   NetworkType
	Routed *RoutedNetwork
	Bridge *BridgeNetwork
	Vxlan  *VxlanNetwork
}

// RoutedNetwork describes a NAT'd, DHCP-capable subnet behind a bridge.
type RoutedNetwork struct {
	CIDR          string        `yaml:"cidr"`
	GatewayIP     string        `yaml:"gw_ip"`
	DHCP          bool          `yaml:"dhcp,omitempty"`
	DNS           *DNSConfig    `yaml:"dns,omitempty"`
	MasqOut       string        `yaml:"masq_out,omitempty"`
	Forwards      []PortForward `yaml:"forwards,omitempty"`
	PolicyProfile string        `yaml:"policy_profile,omitempty"`
}

// DNSConfig controls whether a network gets zone-scoped DNS.
type DNSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Zones   []string `yaml:"zones,omitempty"`
}

// BridgeNetwork describes a plain L2 bridge, optionally trunked off a
// VLAN subinterface of a named uplink.
type BridgeNetwork struct {
	Iface         string `yaml:"iface"`
	VLAN          *uint16 `yaml:"vlan,omitempty"`
	PolicyProfile string `yaml:"policy_profile,omitempty"`
}

// VxlanNetwork describes a VXLAN overlay. The planner does not lower
// this today — see planner.FromTopology — and Plan construction fails
// loudly instead of silently dropping it.
type VxlanNetwork struct {
	VNI    uint32   `yaml:"vni"`
	Peers  []string `yaml:"peers,omitempty"`
	Bridge string   `yaml:"bridge"`
}

// PortForward maps a public host:port/proto to a private dst ip:port.
type PortForward struct {
	Public string `yaml:"public"`
	Dst    string `yaml:"dst"`
}

// Protocol is a PolicyProfile service's transport protocol.
type Protocol string

const (
	ProtoTCP  Protocol = "tcp"
	ProtoUDP  Protocol = "udp"
	ProtoICMP Protocol = "icmp"
)

// Action is the nftables base-chain policy a profile falls back to.
type Action string

const (
	ActionAccept Action = "accept"
	ActionDrop   Action = "drop"
	ActionReject Action = "reject"
)

// Service is one allowed ingress service within a PolicyProfile.
type Service struct {
	Protocol Protocol `yaml:"protocol"`
	Port     uint16   `yaml:"port"`
	Source   string   `yaml:"source,omitempty"`
}

// PolicyProfile is a named bundle of default-action + allow-lists +
// services that can be bound to one routed or bridge network.
type PolicyProfile struct {
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description,omitempty"`
	AllowedIngressCIDRs []string `yaml:"allowed_ingress_cidrs,omitempty"`
	AllowedEgressCIDRs  []string `yaml:"allowed_egress_cidrs,omitempty"`
	Services            []Service `yaml:"services,omitempty"`
	DefaultAction       Action   `yaml:"default_action,omitempty"`
}

// EffectiveDefaultAction returns DefaultAction, defaulting to drop when
// unset, per the data model's default.
func (p *PolicyProfile) EffectiveDefaultAction() Action {
	if p == nil || p.DefaultAction == "" {
		return ActionDrop
	}
	return p.DefaultAction
}

// New returns an empty Topology at the current schema version.
func New() *Topology {
	return &Topology{
		Version:    CurrentVersion,
		Interfaces: map[string]string{},
		Networks:   map[string]*Network{},
		Profiles:   map[string]*PolicyProfile{},
	}
}

// SortedNetworkNames returns network names in stable sorted order, so
// that every downstream consumer (planner, synthesizer) iterates the
// topology map deterministically instead of relying on Go's randomized
// map iteration order.
func (t *Topology) SortedNetworkNames() []string {
	names := make([]string, 0, len(t.Networks))
	for name := range t.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
