//go:build unix

package collector

import "golang.org/x/sys/unix"

// isPrivileged reports whether the process runs with an effective uid of root.
func isPrivileged() bool {
	return unix.Geteuid() == 0
}
