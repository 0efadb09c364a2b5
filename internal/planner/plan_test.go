// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/gwarden/internal/topology"
)

// S1 — a single routed NAT network "nat_dev" lowers to exactly the
// five-action sequence: create bridge, add address, enable forwarding,
// create nft ruleset, start dnsmasq.
func TestFromTopology_RoutedNetworkFiveActions(t *testing.T) {
	top := topology.New()
	top.Networks["nat_dev"] = &topology.Network{
		Type: topology.NetworkRouted,
		Routed: &topology.RoutedNetwork{
			CIDR:          "10.50.0.0/24",
			GatewayIP:     "10.50.0.1",
			DHCP:          true,
			MasqOut:       "eth0",
			PolicyProfile: "default",
		},
	}

	plan, err := FromTopology(top)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 5)

	assert.Equal(t, ActionCreateBridge, plan.Actions[0].Kind)
	assert.Equal(t, "br-nat_dev", plan.Actions[0].BridgeName)
	assert.Equal(t, "10.50.0.0/24", plan.Actions[0].BridgeCIDR)

	assert.Equal(t, ActionAddAddress, plan.Actions[1].Kind)
	assert.Equal(t, "br-nat_dev", plan.Actions[1].Iface)
	assert.Equal(t, "10.50.0.1/24", plan.Actions[1].Addr)

	assert.Equal(t, ActionEnableForwarding, plan.Actions[2].Kind)
	assert.Equal(t, "br-nat_dev", plan.Actions[2].Iface)

	assert.Equal(t, ActionCreateNftRuleset, plan.Actions[3].Kind)
	assert.Equal(t, "gw-nat_dev", plan.Actions[3].Table)
	assert.Equal(t, "default", plan.Actions[3].PolicyProfile)

	assert.Equal(t, ActionStartDnsmasq, plan.Actions[4].Kind)

	require.NotEmpty(t, plan.ID)
}

func TestFromTopology_RoutedNetworkWithoutDhcpSkipsDnsmasq(t *testing.T) {
	top := topology.New()
	top.Networks["static"] = &topology.Network{
		Type: topology.NetworkRouted,
		Routed: &topology.RoutedNetwork{
			CIDR:      "10.60.0.0/24",
			GatewayIP: "10.60.0.1",
			DHCP:      false,
		},
	}

	plan, err := FromTopology(top)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 4)
	for _, a := range plan.Actions {
		assert.NotEqual(t, ActionStartDnsmasq, a.Kind)
	}
}

func TestFromTopology_VxlanNetworkIsRejected(t *testing.T) {
	top := topology.New()
	top.Networks["overlay"] = &topology.Network{
		Type:  topology.NetworkVxlan,
		Vxlan: &topology.VxlanNetwork{VNI: 100, Bridge: "br-overlay"},
	}

	_, err := FromTopology(top)
	require.Error(t, err)
}

func TestFromTopology_NetworksLoweredInSortedOrder(t *testing.T) {
	top := topology.New()
	top.Networks["zeta"] = &topology.Network{Type: topology.NetworkRouted, Routed: &topology.RoutedNetwork{CIDR: "10.1.0.0/24", GatewayIP: "10.1.0.1"}}
	top.Networks["alpha"] = &topology.Network{Type: topology.NetworkRouted, Routed: &topology.RoutedNetwork{CIDR: "10.2.0.0/24", GatewayIP: "10.2.0.1"}}

	plan, err := FromTopology(top)
	require.NoError(t, err)
	require.NotEmpty(t, plan.Actions)
	assert.Equal(t, "br-alpha", plan.Actions[0].BridgeName)
}

func TestFromTopology_BridgeNetworkWithVlanUplink(t *testing.T) {
	top := topology.New()
	top.Interfaces["uplink"] = "eth1"
	vlanID := uint16(200)
	top.Networks["guest"] = &topology.Network{
		Type: topology.NetworkBridge,
		Bridge: &topology.BridgeNetwork{
			Iface: "br-guest",
			VLAN:  &vlanID,
		},
	}

	plan, err := FromTopology(top)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 3)

	assert.Equal(t, ActionCreateVlan, plan.Actions[0].Kind)
	assert.Equal(t, "eth1", plan.Actions[0].VlanParent)
	assert.Equal(t, uint16(200), plan.Actions[0].VlanID)
	assert.Equal(t, "eth1.200", plan.Actions[0].VlanName)

	assert.Equal(t, ActionAttachVlanToBridge, plan.Actions[1].Kind)
	assert.Equal(t, "eth1.200", plan.Actions[1].Vlan)
	assert.Equal(t, "br-guest", plan.Actions[1].Bridge)

	assert.Equal(t, ActionCreateBridge, plan.Actions[2].Kind)
	assert.Equal(t, "br-guest", plan.Actions[2].BridgeName)
}
