//go:build unix

package host

import "golang.org/x/sys/unix"

// writable asks the kernel via access(2), which honours the real uid, ACLs
// and read-only mounts rather than guessing from mode bits.
func writable(name string) bool {
	return unix.Access(name, unix.W_OK) == nil
}
