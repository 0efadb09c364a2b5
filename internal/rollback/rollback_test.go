// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rollback

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/capability/fake"
	"grimm.is/gwarden/internal/planner"
)

func TestReverse_RestoresPriorSnapshotWhenPresent(t *testing.T) {
	link := fake.NewLink()
	nft := fake.NewNft()
	dhcp := fake.NewDhcp()
	caps := capability.Bundle{Link: link, Nft: nft, Dhcp: dhcp}

	prior := json.RawMessage(`{"nftables":[{"table":{"family":"inet","name":"gw-x"}}]}`)
	record := Record{
		PlanID: "p1",
		Actions: []planner.Action{
			{Kind: planner.ActionCreateBridge, BridgeName: "br-x"},
			{Kind: planner.ActionCreateNftRuleset, Table: "gw-x"},
		},
		NftSnapshots: map[string]json.RawMessage{"gw-x": prior},
	}

	Reverse(context.Background(), caps, record)

	assert.Contains(t, nft.Calls, "Apply")
	assert.Contains(t, link.Calls, "DeleteBridge:br-x")
}

func TestReverse_DeletesTableWhenNoPriorSnapshot(t *testing.T) {
	link := fake.NewLink()
	nft := fake.NewNft()
	dhcp := fake.NewDhcp()
	caps := capability.Bundle{Link: link, Nft: nft, Dhcp: dhcp}

	record := Record{
		Actions: []planner.Action{
			{Kind: planner.ActionCreateNftRuleset, Table: "gw-y"},
		},
		NftSnapshots: map[string]json.RawMessage{"gw-y": nil},
	}

	Reverse(context.Background(), caps, record)
	assert.Contains(t, nft.Calls, "DeleteTable:gw-y")
}

func TestReverse_ContinuesPastAFailingStep(t *testing.T) {
	link := fake.NewLink()
	link.FailOn = "DeleteBridge:br-a"
	link.FailErr = assertErr{}
	nft := fake.NewNft()
	dhcp := fake.NewDhcp()
	caps := capability.Bundle{Link: link, Nft: nft, Dhcp: dhcp}

	record := Record{
		Actions: []planner.Action{
			{Kind: planner.ActionCreateBridge, BridgeName: "br-a"},
			{Kind: planner.ActionCreateBridge, BridgeName: "br-b"},
		},
	}

	require.NotPanics(t, func() {
		Reverse(context.Background(), caps, record)
	})
	assert.Contains(t, link.Calls, "DeleteBridge:br-a")
	assert.Contains(t, link.Calls, "DeleteBridge:br-b")
}

type assertErr struct{}

func (assertErr) Error() string { return "forced failure" }

func TestAwaitConfirmation_DisabledWhenZero(t *testing.T) {
	result := AwaitConfirmation(context.Background(), 0, make(chan struct{}))
	assert.Equal(t, ConfirmDisabled, result)
}

func TestAwaitConfirmation_InputWinsRace(t *testing.T) {
	lines := make(chan struct{}, 1)
	lines <- struct{}{}
	result := AwaitConfirmation(context.Background(), 30, lines)
	assert.Equal(t, ConfirmInputReceived, result)
}

func TestAwaitConfirmation_TimesOut(t *testing.T) {
	result := AwaitConfirmation(context.Background(), 1, make(chan struct{}))
	assert.Equal(t, ConfirmTimedOut, result)
}

func TestProbeLiveness_SucceedsAgainstOpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ok := ProbeLiveness(context.Background(), ln.Addr().String(), time.Second)
	assert.True(t, ok)
}

func TestProbeLiveness_FailsAgainstClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ok := ProbeLiveness(context.Background(), addr, 200*time.Millisecond)
	assert.False(t, ok)
}
