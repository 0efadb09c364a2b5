// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package linux

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"grimm.is/gwarden/internal/capability"
	"grimm.is/gwarden/internal/gwerrors"
)

// DefaultLeaseFile is dnsmasq's standard lease database path.
const DefaultLeaseFile = "/var/lib/misc/dnsmasq.leases"

// nowUnix is overridable in tests; production always reads wall clock.
var nowUnix = func() int64 { return TimeNowUnix() }

// Dhcp is the real DhcpDns: it writes dnsmasq.d config fragments,
// restarts the dnsmasq service, and parses its lease file.
type Dhcp struct {
	LeaseFile string
}

func NewDhcp() Dhcp {
	return Dhcp{LeaseFile: DefaultLeaseFile}
}

func (d Dhcp) WriteConfig(ctx context.Context, path, contents string) error {
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindIO, "write dnsmasq config %s", path)
	}
	return nil
}

func (d Dhcp) RemoveConfig(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return gwerrors.Wrapf(err, gwerrors.KindIO, "remove dnsmasq config %s", path)
	}
	return nil
}

func (d Dhcp) Restart(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "systemctl", "restart", "dnsmasq").CombinedOutput()
	if err != nil {
		return gwerrors.Wrapf(err, gwerrors.KindCapability, "restart dnsmasq: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// ReadLeases parses dnsmasq's lease file: space-separated
// "expiry_epoch mac ip hostname client-id", one lease per line. A
// hostname of "*" means no hostname was offered.
func (d Dhcp) ReadLeases(ctx context.Context) ([]capability.Lease, error) {
	leaseFile := d.LeaseFile
	if leaseFile == "" {
		leaseFile = DefaultLeaseFile
	}

	f, err := os.Open(leaseFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, gwerrors.Wrapf(err, gwerrors.KindIO, "open lease file %s", leaseFile)
	}
	defer f.Close()

	now := nowUnix()
	var leases []capability.Lease

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}

		expiry, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}

		hostname := fields[3]
		if hostname == "*" {
			hostname = ""
		}

		remaining := expiry - now
		expired := remaining <= 0
		if expired {
			remaining = 0
		}

		leases = append(leases, capability.Lease{
			MAC:              fields[1],
			IP:               fields[2],
			Hostname:         hostname,
			ExpiresInSeconds: remaining,
			Expired:          expired,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, gwerrors.Wrap(err, gwerrors.KindIO, "scan lease file")
	}

	return leases, nil
}
