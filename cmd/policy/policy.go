// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmdpolicy implements `policy {set|list}`: pure
// topology-file mutators for named PolicyProfiles. No kernel or
// nftables side effect — a set profile only takes effect on the next
// `net plan`/`net apply`.
package cmdpolicy

import (
	"flag"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"grimm.is/gwarden/internal/cliutil"
	"grimm.is/gwarden/internal/topology"
)

// Run dispatches `policy set|list`.
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("policy: expected a subcommand (set, list)")
	}

	switch args[0] {
	case "set":
		return runSet(args[1:])
	case "list":
		return runList(args[1:])
	default:
		return fmt.Errorf("policy: unknown subcommand %q", args[0])
	}
}

func runSet(args []string) error {
	flags := flag.NewFlagSet("policy set", flag.ExitOnError)
	file := flags.String("file", "", "topology YAML file (required)")
	name := flags.String("name", "", "profile name (required)")
	defaultAction := flags.String("default-action", "", "accept, drop, or reject")
	allowIngress := flags.String("allow-ingress-cidrs", "", "comma-separated CIDR list")
	allowEgress := flags.String("allow-egress-cidrs", "", "comma-separated CIDR list")
	bindNetwork := flags.String("bind-network", "", "bind this profile to a network's policy_profile field")
	var services cliutil.StringList
	flags.Var(&services, "service", "proto:port[:source], repeatable")
	flags.Parse(args)

	if *file == "" || *name == "" {
		return fmt.Errorf("policy set: --file and --name are required")
	}

	top, err := cliutil.LoadTopology(*file)
	if err != nil {
		return err
	}

	profile := top.Profiles[*name]
	if profile == nil {
		profile = &topology.PolicyProfile{Name: *name}
		top.Profiles[*name] = profile
	}
	if *defaultAction != "" {
		profile.DefaultAction = topology.Action(*defaultAction)
	}
	if *allowIngress != "" {
		profile.AllowedIngressCIDRs = splitNonEmpty(*allowIngress)
	}
	if *allowEgress != "" {
		profile.AllowedEgressCIDRs = splitNonEmpty(*allowEgress)
	}
	for _, raw := range services {
		svc, err := parseService(raw)
		if err != nil {
			return err
		}
		profile.Services = append(profile.Services, svc)
	}

	if *bindNetwork != "" {
		net, ok := top.Networks[*bindNetwork]
		if !ok {
			return fmt.Errorf("policy set: unknown network %q", *bindNetwork)
		}
		switch {
		case net.Routed != nil:
			net.Routed.PolicyProfile = *name
		case net.Bridge != nil:
			net.Bridge.PolicyProfile = *name
		default:
			return fmt.Errorf("policy set: network %q cannot bind a policy profile", *bindNetwork)
		}
	}

	return top.WriteFile(*file)
}

func runList(args []string) error {
	flags := flag.NewFlagSet("policy list", flag.ExitOnError)
	file := flags.String("file", "", "topology YAML file (required)")
	flags.Parse(args)

	if *file == "" {
		return fmt.Errorf("policy list: --file is required")
	}
	top, err := cliutil.LoadTopology(*file)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(top.Profiles))
	for name := range top.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := top.Profiles[name]
		fmt.Printf("%s: default_action=%s ingress=%v egress=%v services=%d\n",
			name, p.EffectiveDefaultAction(), p.AllowedIngressCIDRs, p.AllowedEgressCIDRs, len(p.Services))
	}
	return nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseService(raw string) (topology.Service, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return topology.Service{}, fmt.Errorf("policy set: --service %q must be proto:port[:source]", raw)
	}
	port, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return topology.Service{}, fmt.Errorf("policy set: --service %q has an invalid port", raw)
	}
	svc := topology.Service{Protocol: topology.Protocol(parts[0]), Port: uint16(port)}
	if len(parts) == 3 {
		svc.Source = parts[2]
	}
	return svc, nil
}
