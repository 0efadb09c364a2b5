// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/capability/fake"
	"grimm.is/gwarden/internal/planner"
	"grimm.is/gwarden/internal/topology"
)

func natDevTopology() *topology.Topology {
	top := topology.New()
	top.Networks["nat_dev"] = &topology.Network{
		Type: topology.NetworkRouted,
		Routed: &topology.RoutedNetwork{
			CIDR:      "10.33.0.0/24",
			GatewayIP: "10.33.0.1",
			DHCP:      true,
			MasqOut:   "eth0",
			Forwards: []topology.PortForward{
				{Public: ":4022/tcp", Dst: "10.33.0.10:22"},
			},
		},
	}
	return top
}

func TestApply_RunsEveryActionAndSnapshotsBeforeApply(t *testing.T) {
	top := natDevTopology()
	plan, err := planner.FromTopology(top)
	require.NoError(t, err)

	link := fake.NewLink()
	nft := fake.NewNft()
	nft.Preload("gw-nat_dev", []byte(`{"nftables":[{"table":{"family":"inet","name":"gw-nat_dev"}}]}`))
	dhcp := fake.NewDhcp()

	ex := New(capability.Bundle{Link: link, Nft: nft, Dhcp: dhcp}, top)
	execCtx, err := ex.Apply(context.Background(), plan)
	require.NoError(t, err)

	assert.Len(t, execCtx.ActionsCompleted, 5)
	assert.NotNil(t, execCtx.NftSnapshots["gw-nat_dev"])
	assert.Contains(t, link.Calls, "CreateBridge:br-nat_dev")
	assert.Contains(t, link.Calls, "EnableForwarding:br-nat_dev")
	assert.Contains(t, dhcp.Calls, "Restart")
}

func TestApply_HaltsOnFirstFailureAndPreservesCompletedPrefix(t *testing.T) {
	top := natDevTopology()
	plan, err := planner.FromTopology(top)
	require.NoError(t, err)

	link := fake.NewLink()
	link.FailOn = "EnableForwarding:br-nat_dev"
	link.FailErr = errors.New("netlink busy")
	nft := fake.NewNft()
	dhcp := fake.NewDhcp()

	ex := New(capability.Bundle{Link: link, Nft: nft, Dhcp: dhcp}, top)
	execCtx, err := ex.Apply(context.Background(), plan)

	require.Error(t, err)
	assert.Len(t, execCtx.ActionsCompleted, 2, "only CreateBridge and AddAddress should have completed")
	assert.Empty(t, execCtx.NftSnapshots, "ruleset action never ran")
}
