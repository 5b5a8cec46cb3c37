//go:build !windows

// Package process cleans up browser processes left behind by a capture engine.
package process

import "syscall"

// KillTree sends SIGKILL to the process group led by pid, taking the browser's
// renderer and GPU children down with it. Non-positive PIDs are ignored so a
// zero value can never signal the caller's own group.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
