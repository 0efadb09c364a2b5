// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rollback

import (
	"context"
	"net"
	"time"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/gwlog"
	"grimm.is/gwarden/internal/planner"
)

var log = gwlog.New("rollback")

// Reverse walks r.Actions in reverse order, applying the inverse of
// each via caps. A single step's failure is logged and execution
// proceeds — reversal must never itself fail the process.
func Reverse(ctx context.Context, caps capability.Bundle, r Record) {
	for i := len(r.Actions) - 1; i >= 0; i-- {
		reverseOne(ctx, caps, r, r.Actions[i])
	}
}

func reverseOne(ctx context.Context, caps capability.Bundle, r Record, action planner.Action) {
	var err error
	switch action.Kind {
	case planner.ActionCreateBridge:
		err = caps.Link.DeleteBridge(ctx, action.BridgeName)

	case planner.ActionAddAddress:
		err = caps.Link.RemoveAddress(ctx, action.Iface, action.Addr)

	case planner.ActionCreateNftRuleset:
		err = reverseRuleset(ctx, caps, r, action.Table)

	case planner.ActionStartDnsmasq:
		if rmErr := caps.Dhcp.RemoveConfig(ctx, action.ConfigPath); rmErr != nil {
			log.Warnf("remove dnsmasq config %s: %v", action.ConfigPath, rmErr)
		}
		err = caps.Dhcp.Restart(ctx)

	case planner.ActionCreateVlan:
		err = caps.Link.DeleteVlan(ctx, action.VlanName)

	case planner.ActionEnableForwarding, planner.ActionAttachVlanToBridge:
		// No explicit inverse: collateral to the owning bridge's delete.
		return

	default:
		return
	}

	if err != nil {
		log.Warnf("reversing %s: %v", action.String(), err)
	}
}

func reverseRuleset(ctx context.Context, caps capability.Bundle, r Record, table string) error {
	snapshot, hadSnapshot := r.NftSnapshots[table]
	// A record reloaded from disk carries an absent table as JSON null.
	if hadSnapshot && snapshot != nil && string(snapshot) != "null" {
		return caps.Nft.Apply(ctx, snapshot)
	}
	return caps.Nft.DeleteTable(ctx, table)
}

// ConfirmResult reports which of the two confirmation-race events fired
// first.
type ConfirmResult int

const (
	ConfirmTimedOut ConfirmResult = iota
	ConfirmInputReceived
	ConfirmDisabled
)

// AwaitConfirmation races a confirm_seconds timer against a line of
// input on stdinLines. A confirmSeconds of 0 disables the timer
// entirely (ConfirmDisabled, apply is never auto-reversed).
func AwaitConfirmation(ctx context.Context, confirmSeconds int, stdinLines <-chan struct{}) ConfirmResult {
	if confirmSeconds <= 0 {
		return ConfirmDisabled
	}

	timer := time.NewTimer(time.Duration(confirmSeconds) * time.Second)
	defer timer.Stop()

	select {
	case <-stdinLines:
		return ConfirmInputReceived
	case <-timer.C:
		return ConfirmTimedOut
	case <-ctx.Done():
		return ConfirmTimedOut
	}
}

// ProbeLiveness attempts a TCP connect to hostport within timeout.
// Failure means the caller should trigger a reversal before the
// confirmation timer even arms.
func ProbeLiveness(ctx context.Context, hostport string, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
