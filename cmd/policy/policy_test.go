// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmdpolicy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/gwarden/internal/cliutil"
	"grimm.is/gwarden/internal/topology"
)

func writeTestTopology(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.yaml")
	doc := `
version: 1
networks:
  nat_dev:
    type: routed
    cidr: 10.33.0.0/24
    gw_ip: 10.33.0.1
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRunSet_CreatesProfileAndBindsNetwork(t *testing.T) {
	path := writeTestTopology(t)

	err := Run([]string{
		"set", "--file", path, "--name", "web",
		"--default-action", "drop",
		"--service", "tcp:80",
		"--service", "tcp:443:10.0.0.0/8",
		"--bind-network", "nat_dev",
	})
	require.NoError(t, err)

	top, err := cliutil.LoadTopology(path)
	require.NoError(t, err)

	profile := top.Profiles["web"]
	require.NotNil(t, profile)
	assert.Equal(t, topology.ActionDrop, profile.DefaultAction)
	require.Len(t, profile.Services, 2)
	assert.Equal(t, topology.ProtoTCP, profile.Services[0].Protocol)
	assert.EqualValues(t, 80, profile.Services[0].Port)
	assert.Equal(t, "10.0.0.0/8", profile.Services[1].Source)
	assert.Equal(t, "web", top.Networks["nat_dev"].Routed.PolicyProfile)
}

func TestRunSet_UnknownBindNetworkIsAnError(t *testing.T) {
	path := writeTestTopology(t)
	err := Run([]string{"set", "--file", path, "--name", "web", "--bind-network", "ghost"})
	assert.Error(t, err)
}

func TestRunSet_InvalidServiceSpecIsRejected(t *testing.T) {
	path := writeTestTopology(t)
	err := Run([]string{"set", "--file", path, "--name", "web", "--service", "not-a-service"})
	assert.Error(t, err)
}
