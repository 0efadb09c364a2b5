// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package linux

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLeases_ParsesExpiryAndHostname(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dnsmasq.leases")
	contents := "2000000100 aa:bb:cc:dd:ee:ff 10.33.0.100 myhost *\n" +
		"2000000000 11:22:33:44:55:66 10.33.0.101 * *\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	prev := nowUnix
	nowUnix = func() int64 { return 2000000050 }
	defer func() { nowUnix = prev }()

	d := Dhcp{LeaseFile: path}
	leases, err := d.ReadLeases(nil)
	require.NoError(t, err)
	require.Len(t, leases, 2)

	assert.Equal(t, "myhost", leases[0].Hostname)
	assert.Equal(t, int64(50), leases[0].ExpiresInSeconds)
	assert.False(t, leases[0].Expired)

	assert.Equal(t, "", leases[1].Hostname)
	assert.True(t, leases[1].Expired)
	assert.Equal(t, int64(0), leases[1].ExpiresInSeconds)
}

func TestReadLeases_MissingFileReturnsEmpty(t *testing.T) {
	d := Dhcp{LeaseFile: filepath.Join(t.TempDir(), "does-not-exist.leases")}
	leases, err := d.ReadLeases(nil)
	require.NoError(t, err)
	assert.Empty(t, leases)
}
