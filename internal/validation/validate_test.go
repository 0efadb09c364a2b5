// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package validation

import "testing"

func TestCidrsOverlap(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"10.0.0.0/24", "10.0.0.0/24", true},
		{"10.0.0.0/24", "10.0.0.0/16", true},
		{"192.168.1.0/24", "192.168.0.0/16", true},
		{"10.0.0.0/24", "10.1.0.0/24", false},
		{"192.168.1.0/24", "172.16.0.0/16", false},
	}
	for _, c := range cases {
		got, err := cidrsOverlap(c.a, c.b)
		if err != nil {
			t.Fatalf("cidrsOverlap(%s, %s): %v", c.a, c.b, err)
		}
		if got != c.want {
			t.Errorf("cidrsOverlap(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestParsePortSpec(t *testing.T) {
	ok := []string{":22/tcp", "0.0.0.0:8080/udp", ":65535/tcp"}
	for _, spec := range ok {
		if _, _, _, err := ParsePortSpec(spec); err != nil {
			t.Errorf("ParsePortSpec(%q) unexpected error: %v", spec, err)
		}
	}

	bad := []string{":0/tcp", ":99999/tcp", ":22/invalid", "noport"}
	for _, spec := range bad {
		if _, _, _, err := ParsePortSpec(spec); err == nil {
			t.Errorf("ParsePortSpec(%q) expected error, got none", spec)
		}
	}
}

func TestParseDestination(t *testing.T) {
	ok := []string{"10.0.0.1:22", "192.168.1.100:8080"}
	for _, spec := range ok {
		if _, _, err := ParseDestination(spec); err != nil {
			t.Errorf("ParseDestination(%q) unexpected error: %v", spec, err)
		}
	}

	bad := []string{"10.0.0.1", "invalid:22", "10.0.0.1:0"}
	for _, spec := range bad {
		if _, _, err := ParseDestination(spec); err == nil {
			t.Errorf("ParseDestination(%q) expected error, got none", spec)
		}
	}
}
