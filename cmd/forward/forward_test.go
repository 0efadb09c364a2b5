// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmdforward

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/gwarden/internal/cliutil"
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

func TestRunAdd_AppendsForwardAndPersists(t *testing.T) {
	path := writeTestTopology(t)

	err := Run([]string{"add", "--file", path, "--network", "nat_dev", "--public", ":4022/tcp", "--dst", "10.33.0.10:22"})
	require.NoError(t, err)

	top, err := cliutil.LoadTopology(path)
	require.NoError(t, err)
	require.Len(t, top.Networks["nat_dev"].Routed.Forwards, 1)
	assert.Equal(t, ":4022/tcp", top.Networks["nat_dev"].Routed.Forwards[0].Public)
	assert.Equal(t, "10.33.0.10:22", top.Networks["nat_dev"].Routed.Forwards[0].Dst)
}

func TestRunRemove_DropsMatchingForwardOnly(t *testing.T) {
	path := writeTestTopology(t)
	require.NoError(t, Run([]string{"add", "--file", path, "--network", "nat_dev", "--public", ":4022/tcp", "--dst", "10.33.0.10:22"}))
	require.NoError(t, Run([]string{"add", "--file", path, "--network", "nat_dev", "--public", ":4023/tcp", "--dst", "10.33.0.11:22"}))

	require.NoError(t, Run([]string{"remove", "--file", path, "--network", "nat_dev", "--public", ":4022/tcp"}))

	top, err := cliutil.LoadTopology(path)
	require.NoError(t, err)
	require.Len(t, top.Networks["nat_dev"].Routed.Forwards, 1)
	assert.Equal(t, ":4023/tcp", top.Networks["nat_dev"].Routed.Forwards[0].Public)
}

func TestRunRemove_UnknownPublicIsAnError(t *testing.T) {
	path := writeTestTopology(t)
	err := Run([]string{"remove", "--file", path, "--network", "nat_dev", "--public", ":9999/tcp"})
	assert.Error(t, err)
}
