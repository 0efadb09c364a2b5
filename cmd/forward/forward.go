// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmdforward implements `forward {add|remove|list}`: pure
// topology-file mutators that rewrite the YAML document's
// port-forward lists. No kernel or nftables side effect — the
// rewritten file only takes effect on the next `net plan`/`net apply`.
package cmdforward

import (
	"flag"
	"fmt"

	"grimm.is/gwarden/internal/cliutil"
	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/topology"
)

// Run dispatches `forward add|remove|list`.
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("forward: expected a subcommand (add, remove, list)")
	}

	switch args[0] {
	case "add":
		return runAdd(args[1:])
	case "remove":
		return runRemove(args[1:])
	case "list":
		return runList(args[1:])
	default:
		return fmt.Errorf("forward: unknown subcommand %q", args[0])
	}
}

func runAdd(args []string) error {
	flags := flag.NewFlagSet("forward add", flag.ExitOnError)
	file := flags.String("file", "", "topology YAML file (required)")
	network := flags.String("network", "", "routed network name (required)")
	public := flags.String("public", "", "public :port/proto (required)")
	dst := flags.String("dst", "", "destination ip:port (required)")
	flags.Parse(args)

	top, net, err := loadRoutedNetwork(*file, *network)
	if err != nil {
		return err
	}
	if *public == "" || *dst == "" {
		return fmt.Errorf("forward add: --public and --dst are required")
	}

	net.Routed.Forwards = append(net.Routed.Forwards, topology.PortForward{Public: *public, Dst: *dst})
	return top.WriteFile(*file)
}

func runRemove(args []string) error {
	flags := flag.NewFlagSet("forward remove", flag.ExitOnError)
	file := flags.String("file", "", "topology YAML file (required)")
	network := flags.String("network", "", "routed network name (required)")
	public := flags.String("public", "", "public :port/proto to remove (required)")
	flags.Parse(args)

	top, net, err := loadRoutedNetwork(*file, *network)
	if err != nil {
		return err
	}
	if *public == "" {
		return fmt.Errorf("forward remove: --public is required")
	}

	kept := net.Routed.Forwards[:0]
	removed := false
	for _, f := range net.Routed.Forwards {
		if f.Public == *public {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	net.Routed.Forwards = kept
	if !removed {
		return fmt.Errorf("forward remove: no forward with public %q on network %q", *public, *network)
	}
	return top.WriteFile(*file)
}

func runList(args []string) error {
	flags := flag.NewFlagSet("forward list", flag.ExitOnError)
	file := flags.String("file", "", "topology YAML file (required)")
	network := flags.String("network", "", "limit to one network (default: every routed network)")
	flags.Parse(args)

	if *file == "" {
		return fmt.Errorf("forward list: --file is required")
	}
	top, err := cliutil.LoadTopology(*file)
	if err != nil {
		return err
	}

	for _, name := range top.SortedNetworkNames() {
		if *network != "" && name != *network {
			continue
		}
		net := top.Networks[name]
		if net.Routed == nil {
			continue
		}
		for _, f := range net.Routed.Forwards {
			fmt.Printf("%s: %s -> %s\n", name, f.Public, f.Dst)
		}
	}
	return nil
}

func loadRoutedNetwork(file, network string) (*topology.Topology, *topology.Network, error) {
	if file == "" || network == "" {
		return nil, nil, fmt.Errorf("--file and --network are required")
	}
	top, err := cliutil.LoadTopology(file)
	if err != nil {
		return nil, nil, err
	}
	net, ok := top.Networks[network]
	if !ok || net.Routed == nil {
		return nil, nil, gwerrors.Errorf(gwerrors.KindValidation, "network %q is not a routed network", network)
	}
	return top, net, nil
}
