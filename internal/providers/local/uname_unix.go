//go:build unix

package local

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/melih-ucgun/xal/internal/core"
)

func uname() (core.Uname, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return core.Uname{}, fmt.Errorf("uname: %w", err)
	}
	return core.Uname{
		Sysname:  unix.ByteSliceToString(u.Sysname[:]),
		Nodename: unix.ByteSliceToString(u.Nodename[:]),
		Release:  unix.ByteSliceToString(u.Release[:]),
		Version:  unix.ByteSliceToString(u.Version[:]),
		Machine:  unix.ByteSliceToString(u.Machine[:]),
	}, nil
}
