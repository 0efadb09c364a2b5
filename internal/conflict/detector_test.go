// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package conflict

import (
	"context"
	"errors"
	"testing"
)

type fakeRunner struct {
	outputs map[string]string
	fail    map[string]bool
}

func (f fakeRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	key := name + " " + joinArgs(args)
	if f.fail[key] {
		return nil, errors.New("not found")
	}
	return []byte(f.outputs[key]), nil
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func TestDetect_UfwActiveIsError(t *testing.T) {
	run := fakeRunner{
		outputs: map[string]string{
			"ufw status": "Status: active\n",
		},
		fail: map[string]bool{
			"systemctl is-active NetworkManager": true,
			"systemctl is-active docker":         true,
			"systemctl is-active firewalld":      true,
			"iptables -L -n":                     true,
		},
	}

	report := detect(context.Background(), run)
	if !report.HasErrors() {
		t.Fatalf("expected UFW active to produce an error-severity conflict, got %+v", report.Conflicts)
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0].Service != "UFW" {
		t.Fatalf("expected exactly one UFW conflict, got %+v", report.Conflicts)
	}
}

func TestDetect_ProbeFailureIsNotFatal(t *testing.T) {
	run := fakeRunner{fail: map[string]bool{
		"systemctl is-active NetworkManager": true,
		"systemctl is-active docker":         true,
		"ufw status":                         true,
		"systemctl is-active firewalld":      true,
		"iptables -L -n":                     true,
	}}

	report := detect(context.Background(), run)
	if len(report.Conflicts) != 0 {
		t.Fatalf("expected no conflicts when every probe fails, got %+v", report.Conflicts)
	}
}
