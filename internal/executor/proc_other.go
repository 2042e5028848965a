//go:build !unix

package executor

import "os/exec"

// setProcessGroup keeps the default CommandContext behaviour (Process.Kill)
// on platforms without process groups.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the direct child only.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
