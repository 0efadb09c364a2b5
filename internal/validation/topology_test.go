// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/gwarden/internal/topology"
)

func routedTopology(t *testing.T, networks map[string]*topology.RoutedNetwork) *topology.Topology {
	t.Helper()
	top := topology.New()
	for name, r := range networks {
		top.Networks[name] = &topology.Network{Type: topology.NetworkRouted, Routed: r}
	}
	return top
}

// S3 — CIDR overlap advisory: validator returns exactly one CidrOverlap
// warning, is_error() == false, and apply proceeds.
func TestValidate_CidrOverlapIsAdvisoryOnly(t *testing.T) {
	top := routedTopology(t, map[string]*topology.RoutedNetwork{
		"a": {CIDR: "10.0.0.0/24", GatewayIP: "10.0.0.1"},
		"b": {CIDR: "10.0.0.0/16", GatewayIP: "10.0.0.2"},
	})

	result := Validate(top)

	var overlaps []Warning
	for _, w := range result.Warnings {
		if w.Kind == KindCidrOverlap {
			overlaps = append(overlaps, w)
		}
	}
	require.Len(t, overlaps, 1)
	assert.False(t, overlaps[0].IsError())
	assert.False(t, result.HasErrors())
}

func TestValidate_GatewayInvariant(t *testing.T) {
	top := routedTopology(t, map[string]*topology.RoutedNetwork{
		"bad": {CIDR: "10.0.0.0/24", GatewayIP: "10.0.1.1"},
	})

	result := Validate(top)
	require.True(t, result.HasErrors())

	found := false
	for _, w := range result.Errors() {
		if w.Kind == KindGatewayNotInCidr {
			found = true
		}
	}
	assert.True(t, found, "expected a gateway_not_in_cidr error")
}

func TestValidate_DuplicateBridgeNameIsAdvisory(t *testing.T) {
	top := topology.New()
	top.Networks["a"] = &topology.Network{Type: topology.NetworkBridge, Bridge: &topology.BridgeNetwork{Iface: "br-shared"}}
	top.Networks["b"] = &topology.Network{Type: topology.NetworkBridge, Bridge: &topology.BridgeNetwork{Iface: "br-shared"}}

	result := Validate(top)
	assert.False(t, result.HasErrors())

	found := false
	for _, w := range result.Warnings {
		if w.Kind == KindDuplicateInterfaceName {
			found = true
		}
	}
	assert.True(t, found)
}
