package tracer

import (
	"syscall"
	"time"
)

// procAttrNewGroup places the bpftrace child in its own process group, so
// signalGroup can reach it and any subprocesses it spawns without also
// hitting our own process.
func procAttrNewGroup() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends sig to the process group led by pid.
func signalGroup(pid int, sig syscall.Signal) {
	_ = syscall.Kill(-pid, sig)
}

func afterShutdownTimeout(d time.Duration) <-chan time.Time {
	return time.After(d)
}
