//go:build unix

package workgen

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// RaiseOpenFileLimit lifts the soft limit of open files to the hard
// limit. Every session of a remote driver holds connections.
func RaiseOpenFileLimit() error {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return errors.Wrap(err, "get open file limit")
	}
	if limit.Cur >= limit.Max {
		return nil
	}
	limit.Cur = limit.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return errors.Wrap(err, "set open file limit")
	}
	Debugf("open file limit raised to %d", limit.Cur)
	return nil
}
