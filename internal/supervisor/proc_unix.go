//go:build unix

package supervisor

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the child in its own process group so signals reach
// any workers it forks.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// processGroup returns the child's process group id. With Setpgid the group
// id equals the child's pid.
func processGroup(cmd *exec.Cmd) int {
	return cmd.Process.Pid
}

// interruptGroup sends SIGTERM to the whole group.
func interruptGroup(p *Process) error {
	return syscall.Kill(-p.pgid, syscall.SIGTERM)
}

// killGroup sends SIGKILL to the whole group.
func killGroup(p *Process) error {
	return syscall.Kill(-p.pgid, syscall.SIGKILL)
}
