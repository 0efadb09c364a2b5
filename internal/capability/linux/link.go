// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

// Package linux adapts internal/capability's interfaces onto a real
// Linux host: netlink for links and addresses, os/exec shelling to nft
// for the JSON nftables front end, and dnsmasq config files plus its
// lease database for DHCP/DNS.
package linux

import (
	"context"
	"fmt"

	"github.com/vishvananda/netlink"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/gwlog"
)

var linkLog = gwlog.New("link")

// Link is the real LinkOps, backed by vishvananda/netlink.
type Link struct{}

func NewLink() Link { return Link{} }

func (Link) CreateBridge(ctx context.Context, name string) error {
	if _, err := netlink.LinkByName(name); err == nil {
		linkLog.Printf("bridge %s already exists, leaving it in place", name)
		return nil
	}

	br := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := netlink.LinkAdd(br); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "create bridge %s", name)
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "lookup bridge %s after create", name)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "bring up bridge %s", name)
	}
	return nil
}

func (Link) DeleteBridge(ctx context.Context, name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		linkLog.Printf("bridge %s absent during delete, treating as already reversed", name)
		return nil
	}
	if err := netlink.LinkDel(link); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "delete bridge %s", name)
	}
	return nil
}

func (Link) AddAddress(ctx context.Context, iface, cidr string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "lookup %s for address add", iface)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindValidation, "parse address %s", cidr)
	}
	if err := netlink.AddrAdd(link, addr); err != nil {
		// Re-adding an existing address is a no-op, per the
		// determinism-under-retry contract.
		linkLog.Printf("add address %s to %s: %v (treated as idempotent no-op)", cidr, iface, err)
	}
	return nil
}

func (Link) RemoveAddress(ctx context.Context, iface, cidr string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		linkLog.Printf("interface %s absent during address removal, ignoring", iface)
		return nil
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindValidation, "parse address %s", cidr)
	}
	if err := netlink.AddrDel(link, addr); err != nil {
		linkLog.Printf("remove address %s from %s: %v (ignoring, absent address is a no-op)", cidr, iface, err)
	}
	return nil
}

func (Link) EnableForwarding(ctx context.Context, iface string) error {
	if err := writeSysctl(fmt.Sprintf("/proc/sys/net/ipv4/conf/%s/forwarding", iface), "1"); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "enable forwarding on %s", iface)
	}
	return writeSysctl("/proc/sys/net/ipv4/ip_forward", "1")
}

func (Link) CreateVlan(ctx context.Context, parent, name string, vlanID uint16) error {
	parentLink, err := netlink.LinkByName(parent)
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "lookup VLAN parent %s", parent)
	}
	if _, err := netlink.LinkByName(name); err == nil {
		linkLog.Printf("VLAN %s already exists, leaving it in place", name)
		return nil
	}

	vlan := &netlink.Vlan{
		LinkAttrs: netlink.LinkAttrs{Name: name, ParentIndex: parentLink.Attrs().Index},
		VlanId:    int(vlanID),
	}
	if err := netlink.LinkAdd(vlan); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "create VLAN %s", name)
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "lookup VLAN %s after create", name)
	}
	return wrapErr(netlink.LinkSetUp(link), "bring up VLAN "+name)
}

func (Link) DeleteVlan(ctx context.Context, name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		linkLog.Printf("VLAN %s absent during delete, treating as already reversed", name)
		return nil
	}
	if err := netlink.LinkDel(link); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "delete VLAN %s", name)
	}
	return nil
}

func (Link) AttachToBridge(ctx context.Context, iface, bridge string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "lookup %s for bridge attach", iface)
	}
	br, err := netlink.LinkByName(bridge)
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "lookup bridge %s for attach", bridge)
	}
	if err := netlink.LinkSetMaster(link, br); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "attach %s to bridge %s", iface, bridge)
	}
	return nil
}

func (Link) ListBridges(ctx context.Context) ([]capability.BridgeStatus, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, gwerrors.Wrap(err, gwerrors.KindCapability, "list links")
	}

	var out []capability.BridgeStatus
	for _, l := range links {
		_, isBridge := l.(*netlink.Bridge)
		if !isBridge && !hasBridgePrefix(l.Attrs().Name) {
			continue
		}

		addrs, err := netlink.AddrList(l, netlink.FAMILY_ALL)
		if err != nil {
			return nil, gwerrors.Wrapf(err, gwerrors.KindCapability, "list addresses on %s", l.Attrs().Name)
		}
		var addrStrs []string
		for _, a := range addrs {
			addrStrs = append(addrStrs, a.IPNet.String())
		}

		var members []string
		for _, candidate := range links {
			if candidate.Attrs().MasterIndex == l.Attrs().Index {
				members = append(members, candidate.Attrs().Name)
			}
		}

		out = append(out, capability.BridgeStatus{
			Name:      l.Attrs().Name,
			Up:        l.Attrs().OperState == netlink.OperUp,
			Addresses: addrStrs,
			Members:   members,
		})
	}
	return out, nil
}

func hasBridgePrefix(name string) bool {
	return len(name) >= 3 && name[:3] == "br-"
}

func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	return gwerrors.Wrap(err, gwerrors.KindCapability, msg)
}
