// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"grimm.is/gwarden/internal/gwerrors"
)

// yamlNetwork mirrors Network's on-wire shape: a "type" discriminator
// (routed|bridge|vxlan) plus the fields of whichever variant it names,
// flattened into one YAML mapping.
type yamlNetwork struct {
	Type string `yaml:"type"`

	// RoutedNetwork fields
	CIDR          string        `yaml:"cidr,omitempty"`
	GatewayIP     string        `yaml:"gw_ip,omitempty"`
	DHCP          bool          `yaml:"dhcp,omitempty"`
	DNS           *DNSConfig    `yaml:"dns,omitempty"`
	MasqOut       string        `yaml:"masq_out,omitempty"`
	Forwards      []PortForward `yaml:"forwards,omitempty"`
	PolicyProfile string        `yaml:"policy_profile,omitempty"`

	// BridgeNetwork fields
	Iface string  `yaml:"iface,omitempty"`
	VLAN  *uint16 `yaml:"vlan,omitempty"`

	// VxlanNetwork fields
	VNI    uint32   `yaml:"vni,omitempty"`
	Peers  []string `yaml:"peers,omitempty"`
	Bridge string   `yaml:"bridge,omitempty"`
}

// UnmarshalYAML decodes a Network from its flattened "type"-tagged form.
func (n *Network) UnmarshalYAML(value *yaml.Node) error {
	var raw yamlNetwork
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch NetworkType(raw.Type) {
	case NetworkRouted:
		n.Type = NetworkRouted
		n.Routed = &RoutedNetwork{
			CIDR:          raw.CIDR,
			GatewayIP:     raw.GatewayIP,
			DHCP:          raw.DHCP,
			DNS:           raw.DNS,
			MasqOut:       raw.MasqOut,
			Forwards:      raw.Forwards,
			PolicyProfile: raw.PolicyProfile,
		}
	case NetworkBridge:
		n.Type = NetworkBridge
		n.Bridge = &BridgeNetwork{
			Iface:         raw.Iface,
			VLAN:          raw.VLAN,
			PolicyProfile: raw.PolicyProfile,
		}
	case NetworkVxlan:
		n.Type = NetworkVxlan
		n.Vxlan = &VxlanNetwork{
			VNI:    raw.VNI,
			Peers:  raw.Peers,
			Bridge: raw.Bridge,
		}
	default:
		return fmt.Errorf("topology: unknown network type %q (want routed, bridge, or vxlan)", raw.Type)
	}
	return nil
}

// MarshalYAML re-flattens a Network back into its "type"-tagged form, so
// `forward add`/`policy set` can round-trip the document without
// disturbing sibling networks.
func (n Network) MarshalYAML() (any, error) {
	raw := yamlNetwork{Type: string(n.Type)}
	switch n.Type {
	case NetworkRouted:
		if n.Routed != nil {
			raw.CIDR = n.Routed.CIDR
			raw.GatewayIP = n.Routed.GatewayIP
			raw.DHCP = n.Routed.DHCP
			raw.DNS = n.Routed.DNS
			raw.MasqOut = n.Routed.MasqOut
			raw.Forwards = n.Routed.Forwards
			raw.PolicyProfile = n.Routed.PolicyProfile
		}
	case NetworkBridge:
		if n.Bridge != nil {
			raw.Iface = n.Bridge.Iface
			raw.VLAN = n.Bridge.VLAN
			raw.PolicyProfile = n.Bridge.PolicyProfile
		}
	case NetworkVxlan:
		if n.Vxlan != nil {
			raw.VNI = n.Vxlan.VNI
			raw.Peers = n.Vxlan.Peers
			raw.Bridge = n.Vxlan.Bridge
		}
	}
	return raw, nil
}

// FromYAML parses a topology document.
func FromYAML(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, gwerrors.Wrap(err, gwerrors.KindValidation, "parsing topology YAML")
	}
	if t.Networks == nil {
		t.Networks = map[string]*Network{}
	}
	if t.Interfaces == nil {
		t.Interfaces = map[string]string{}
	}
	if t.Profiles == nil {
		t.Profiles = map[string]*PolicyProfile{}
	}
	return &t, nil
}

// FromFile reads and parses a topology document from disk.
func FromFile(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gwerrors.Wrap(err, gwerrors.KindIO, "reading topology file "+path)
	}
	return FromYAML(data)
}

// ToYAML serialises a topology document back to YAML (used by the
// forward/policy CLI mutators).
func (t *Topology) ToYAML() ([]byte, error) {
	return yaml.Marshal(t)
}

// WriteFile serialises and writes the topology document to path.
func (t *Topology) WriteFile(path string) error {
	data, err := t.ToYAML()
	if err != nil {
		return gwerrors.Wrap(err, gwerrors.KindIO, "marshalling topology")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return gwerrors.Wrap(err, gwerrors.KindIO, "writing topology file "+path)
	}
	return nil
}
