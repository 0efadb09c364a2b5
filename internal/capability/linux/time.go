// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package linux

import "time"

// TimeNowUnix returns the current wall-clock time as Unix seconds.
// Shared by any adapter or caller that needs a timestamp without
// pulling in the "time" package for just this one call.
func TimeNowUnix() int64 {
	return time.Now().Unix()
}
