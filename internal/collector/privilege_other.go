//go:build !unix

package collector

// isPrivileged always returns true on platforms without sudo.
func isPrivileged() bool { return true }
