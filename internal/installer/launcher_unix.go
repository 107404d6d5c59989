//go:build !windows

package installer

import "syscall"

// detached puts the installer in its own session so it outlives our exit.
func detached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
