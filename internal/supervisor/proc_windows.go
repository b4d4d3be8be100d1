//go:build windows

package supervisor

import "os/exec"

// setSysProcAttr is a no-op on Windows; process groups are not used.
func setSysProcAttr(cmd *exec.Cmd) {}

func processGroup(cmd *exec.Cmd) int {
	return cmd.Process.Pid
}

// interruptGroup kills the process directly; Windows has no portable
// graceful signal for console children.
func interruptGroup(p *Process) error {
	return p.cmd.Process.Kill()
}

func killGroup(p *Process) error {
	return p.cmd.Process.Kill()
}
