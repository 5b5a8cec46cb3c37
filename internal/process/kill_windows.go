//go:build windows

// Package process cleans up browser processes left behind by a capture engine.
package process

import (
	"os/exec"
	"strconv"
)

// KillTree terminates pid and its children with taskkill (/T walks the tree).
// Non-positive PIDs are ignored.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
