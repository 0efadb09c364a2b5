// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cliutil holds the plumbing shared by every net subcommand:
// topology loading, capability-bundle construction, and the exit-code
// mapping from a gwerrors.Kind.
package cliutil

import (
	"os"
	"strings"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/capability/linux"
	"grimm.is/gwarden/internal/gwerrors"
	"grimm.is/gwarden/internal/gwlog"
	"grimm.is/gwarden/internal/topology"
)

var log = gwlog.New("cli")

// LoadTopology reads and parses the topology file at path.
func LoadTopology(path string) (*topology.Topology, error) {
	return topology.FromFile(path)
}

// LiveCapabilities builds the real, host-touching capability bundle.
func LiveCapabilities() capability.Bundle {
	return capability.Bundle{
		Link: linux.NewLink(),
		Nft:  linux.NewNft(),
		Dhcp: linux.NewDhcp(),
	}
}

// ExitCode maps an error's gwerrors.Kind to a process exit status.
// 0 is success; every Kind below maps to 1 because the CLI surface
// distinguishes failures by message, not by exit code granularity.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Fatalf logs a formatted error to stderr via the shared logger and
// exits with code 1.
func Fatalf(tag, format string, args ...any) {
	l := gwlog.New(tag)
	l.Errorf(format, args...)
	os.Exit(1)
}

// Die logs err (if non-nil) with the given context message and exits
// with the exit code its Kind maps to.
func Die(context string, err error) {
	if err == nil {
		return
	}
	log.Errorf("%s: %v [%s]", context, err, gwerrors.GetKind(err))
	os.Exit(ExitCode(err))
}

// StringList accumulates repeated occurrences of a flag (e.g.
// "--service tcp:80 --service udp:53") into an ordered slice. It
// implements flag.Value.
type StringList []string

func (s *StringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *StringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
