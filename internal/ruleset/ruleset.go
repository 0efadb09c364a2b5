// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ruleset renders the nftables JSON ruleset for a routed
// network: the base table/chain skeleton, stateful and loopback
// allow rules, a policy filter block, and the NAT/DNAT/hairpin-SNAT
// block for port forwards. The output is a single `{"nftables": [...]}`
// document suitable for `nft -j -f -`.
//
// Synthesis is a pure function of its inputs: identical Topology and
// PolicyProfile values must render byte-identical JSON. The only
// admissible source of variation is declared list order, never map
// iteration order — callers pass inputs already walked in a
// deterministic order (see topology.Topology.SortedNetworkNames).
package ruleset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/planner"
	"grimm.is/gwarden/internal/topology"
	"grimm.is/gwarden/internal/validation"
)

// statement is one element of the top-level "nftables" array. It holds
// an arbitrary ordered JSON object — map[string]any loses key order on
// marshal, so every statement constructor below builds an
// orderedObject instead of a plain map.
type statement = orderedObject

// Params bundles everything Synthesize needs for one network's table.
type Params struct {
	Table         string
	BridgeName    string
	BridgeCIDR    string
	GatewayIP     string
	MasqOut       string
	Forwards      []topology.PortForward
	Policy        *topology.PolicyProfile // nil means no policy block
}

// ParamsForNetwork resolves the Params Synthesize needs for networkName
// out of a Topology: the routed network's CIDR/gateway/forwards plus
// its bound PolicyProfile, if any. An unknown or missing profile name
// is not an error here: Policy is left nil and the ruleset is rendered
// without a policy block. No policy_missing warning is returned or
// printed by this function or by its callers.
func ParamsForNetwork(top *topology.Topology, networkName string) (Params, error) {
	net, ok := top.Networks[networkName]
	if !ok || net.Routed == nil {
		return Params{}, gwerrors.Errorf(gwerrors.KindValidation, "network %q has no routed definition for ruleset synthesis", networkName)
	}
	r := net.Routed

	var profile *topology.PolicyProfile
	if r.PolicyProfile != "" {
		profile = top.Profiles[r.PolicyProfile]
	}

	return Params{
		Table:      planner.TableName(networkName),
		BridgeName: planner.BridgeName(networkName),
		BridgeCIDR: r.CIDR,
		GatewayIP:  r.GatewayIP,
		MasqOut:    r.MasqOut,
		Forwards:   r.Forwards,
		Policy:     profile,
	}, nil
}

// Synthesize renders the full ruleset document for p.
func Synthesize(p Params) ([]byte, error) {
	var stmts []statement

	stmts = append(stmts, flushTable(p.Table))
	stmts = append(stmts, declareTable(p.Table))

	defaultPolicy := "accept"
	if p.Policy != nil {
		defaultPolicy = nftPolicy(p.Policy.EffectiveDefaultAction())
	}

	stmts = append(stmts,
		baseChain(p.Table, "input", "filter", "input", 0, defaultPolicy),
		baseChain(p.Table, "forward", "filter", "forward", 0, defaultPolicy),
		baseChain(p.Table, "output", "filter", "output", 0, "accept"),
		baseChain(p.Table, "postrouting", "nat", "postrouting", 100, "accept"),
		baseChain(p.Table, "prerouting", "nat", "prerouting", -100, "accept"),
	)

	stmts = append(stmts,
		statefulAllow(p.Table, "input"),
		statefulAllow(p.Table, "forward"),
		loopbackAllow(p.Table),
	)

	if p.Policy != nil {
		for _, svc := range p.Policy.Services {
			stmts = append(stmts, serviceAllow(p.Table, p.BridgeName, svc))
		}
		for _, cidr := range p.Policy.AllowedIngressCIDRs {
			stmts = append(stmts, ingressCidrAllow(p.Table, p.BridgeName, cidr))
		}
		for _, cidr := range p.Policy.AllowedEgressCIDRs {
			stmts = append(stmts, egressCidrAllow(p.Table, p.BridgeName, cidr))
		}
		if p.Policy.EffectiveDefaultAction() == topology.ActionReject {
			stmts = append(stmts, terminalReject(p.Table, "input"))
			stmts = append(stmts, terminalReject(p.Table, "forward"))
		}
	}

	if p.MasqOut != "" {
		addr, prefixLen, err := splitCIDR(p.BridgeCIDR)
		if err != nil {
			return nil, gwerrors.Wrap(err, gwerrors.KindValidation, "masquerade rule")
		}
		stmts = append(stmts, masqueradeRule(p.Table, p.MasqOut, addr, prefixLen))
	}

	for _, fwd := range p.Forwards {
		pubHost, pubPort, proto, err := parsePublic(fwd.Public)
		if err != nil {
			return nil, gwerrors.Wrap(err, gwerrors.KindValidation, "port forward "+fwd.Public)
		}
		dstAddr, dstPort, err := parseDest(fwd.Dst)
		if err != nil {
			return nil, gwerrors.Wrap(err, gwerrors.KindValidation, "port forward "+fwd.Dst)
		}

		stmts = append(stmts, dnatRule(p.Table, p.MasqOut, proto, pubHost, pubPort, dstAddr, dstPort))

		if p.BridgeName != "" && p.GatewayIP != "" {
			stmts = append(stmts, hairpinSnatRule(p.Table, p.BridgeName, proto, dstPort, p.BridgeCIDR, dstAddr, p.GatewayIP))
		}
	}

	doc := orderedObject{{"nftables", stmtsToAny(stmts)}}
	return json.MarshalIndent(doc, "", "  ")
}

func stmtsToAny(stmts []statement) []any {
	out := make([]any, len(stmts))
	for i, s := range stmts {
		out[i] = s
	}
	return out
}

func nftPolicy(a topology.Action) string {
	switch a {
	case topology.ActionAccept:
		return "accept"
	case topology.ActionReject:
		return "drop" // nftables base chains cannot carry reject as policy
	default:
		return "drop"
	}
}

func flushTable(table string) statement {
	return orderedObject{
		{"flush", orderedObject{{"table", orderedObject{{"family", "inet"}, {"name", table}}}}},
	}
}

func declareTable(table string) statement {
	return orderedObject{
		{"table", orderedObject{{"family", "inet"}, {"name", table}}},
	}
}

func baseChain(table, name, typ, hook string, prio int, policy string) statement {
	return orderedObject{
		{"chain", orderedObject{
			{"family", "inet"},
			{"table", table},
			{"name", name},
			{"type", typ},
			{"hook", hook},
			{"prio", prio},
			{"policy", policy},
		}},
	}
}

func rule(table, chain string, expr []any) statement {
	return orderedObject{
		{"rule", orderedObject{
			{"family", "inet"},
			{"table", table},
			{"chain", chain},
			{"expr", expr},
		}},
	}
}

func matchEq(left, right any) any {
	return orderedObject{{"match", orderedObject{{"left", left}, {"op", "=="}, {"right", right}}}}
}

func matchIn(left, right any) any {
	return orderedObject{{"match", orderedObject{{"left", left}, {"op", "in"}, {"right", right}}}}
}

func metaKey(key string) any {
	return orderedObject{{"meta", orderedObject{{"key", key}}}}
}

func payload(protocol, field string) any {
	return orderedObject{{"payload", orderedObject{{"protocol", protocol}, {"field", field}}}}
}

func ctKey(key string) any {
	return orderedObject{{"ct", orderedObject{{"key", key}}}}
}

func prefix(addr string, length int) any {
	return orderedObject{{"prefix", orderedObject{{"addr", addr}, {"len", length}}}}
}

func acceptExpr() any { return orderedObject{{"accept", nil}} }
func dropExpr() any   { return orderedObject{{"drop", nil}} }

// rejectExpr renders `reject with icmpx type admin-prohibited`: the
// base chain policy itself can only be accept or drop, so a
// default_action of reject is carried here instead, as an explicit
// terminal rule, to preserve the operator's intent to actively refuse
// rather than silently drop.
func rejectExpr() any {
	return orderedObject{{"reject", orderedObject{
		{"type", "icmpx"},
		{"expr", "admin-prohibited"},
	}}}
}

func masqueradeExpr() any { return orderedObject{{"masquerade", nil}} }

func dnatExpr(addr string, port int) any {
	return orderedObject{{"dnat", orderedObject{{"addr", addr}, {"port", port}}}}
}

func snatExpr(addr string) any {
	return orderedObject{{"snat", orderedObject{{"addr", addr}}}}
}

func statefulAllow(table, chain string) statement {
	return rule(table, chain, []any{
		matchIn(ctKey("state"), []string{"established", "related"}),
		acceptExpr(),
	})
}

func loopbackAllow(table string) statement {
	return rule(table, "input", []any{
		matchEq(metaKey("iifname"), "lo"),
		acceptExpr(),
	})
}

func terminalReject(table, chain string) statement {
	return rule(table, chain, []any{rejectExpr()})
}

func serviceAllow(table, bridge string, svc topology.Service) statement {
	expr := []any{matchEq(metaKey("iifname"), bridge)}

	proto := string(svc.Protocol)
	if svc.Protocol == topology.ProtoICMP {
		expr = append(expr, matchEq(metaKey("l4proto"), "icmp"))
	} else {
		expr = append(expr, matchEq(metaKey("l4proto"), proto))
		expr = append(expr, matchEq(payload(proto, "dport"), svc.Port))
	}

	if svc.Source != "" {
		expr = append(expr, matchEq(payload("ip", "saddr"), svc.Source))
	}

	expr = append(expr, acceptExpr())
	return rule(table, "input", expr)
}

func ingressCidrAllow(table, bridge, cidr string) statement {
	return rule(table, "input", []any{
		matchEq(metaKey("iifname"), bridge),
		matchIn(payload("ip", "saddr"), cidr),
		acceptExpr(),
	})
}

func egressCidrAllow(table, bridge, cidr string) statement {
	return rule(table, "forward", []any{
		matchEq(metaKey("iifname"), bridge),
		matchIn(payload("ip", "daddr"), cidr),
		acceptExpr(),
	})
}

func masqueradeRule(table, masqOut, bridgeAddr string, bridgePrefixLen int) statement {
	return rule(table, "postrouting", []any{
		matchEq(metaKey("oifname"), masqOut),
		matchIn(payload("ip", "saddr"), prefix(bridgeAddr, bridgePrefixLen)),
		masqueradeExpr(),
	})
}

func dnatRule(table, masqOut, proto, pubHost string, pubPort int, dstAddr string, dstPort int) statement {
	expr := []any{
		matchEq(metaKey("iifname"), masqOut),
		matchEq(metaKey("l4proto"), proto),
		matchEq(payload(proto, "dport"), pubPort),
	}
	if pubHost != "" {
		expr = append(expr, matchEq(payload("ip", "daddr"), pubHost))
	}
	expr = append(expr, dnatExpr(dstAddr, dstPort))
	return rule(table, "prerouting", expr)
}

func hairpinSnatRule(table, bridge, proto string, dstPort int, bridgeCIDR, dstAddr, gatewayIP string) statement {
	return rule(table, "postrouting", []any{
		matchEq(metaKey("iifname"), bridge),
		matchEq(metaKey("oifname"), bridge),
		matchEq(metaKey("l4proto"), proto),
		matchEq(payload(proto, "dport"), dstPort),
		matchIn(payload("ip", "saddr"), bridgeCIDR),
		matchEq(payload("ip", "daddr"), dstAddr),
		snatExpr(gatewayIP),
	})
}

func splitCIDR(cidr string) (addr string, prefixLen int, err error) {
	idx := strings.LastIndexByte(cidr, '/')
	if idx < 0 {
		return "", 0, fmt.Errorf("%q is not a CIDR", cidr)
	}
	n, err := strconv.Atoi(cidr[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("%q has an invalid prefix length", cidr)
	}
	return cidr[:idx], n, nil
}

// parsePublic splits a forward's public spec ":port/proto" or
// "ip:port/proto" into its host (empty when unspecified), port, and
// protocol, reusing the same host/port/proto split the validator
// uses so the two never disagree on what a public spec means.
func parsePublic(public string) (host string, port int, proto string, err error) {
	h, p, pr, err := validation.ParsePortSpec(public)
	if err != nil {
		return "", 0, "", err
	}
	return h, int(p), pr, nil
}

// parseDest splits a forward's destination "ip:port" into its address
// and port.
func parseDest(dst string) (addr string, port int, err error) {
	colon := strings.LastIndexByte(dst, ':')
	if colon < 0 {
		return "", 0, fmt.Errorf("%q is missing a port", dst)
	}
	addr = dst[:colon]
	port, err = strconv.Atoi(dst[colon+1:])
	if err != nil {
		return "", 0, fmt.Errorf("%q has an invalid port", dst)
	}
	return addr, port, nil
}
