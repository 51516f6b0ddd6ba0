//go:build unix

package local

import (
	"fmt"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// ownership returns the owning user and group names of name. An id without
// a name in the user database is returned as a number.
func ownership(name string) (owner, group string, err error) {
	var st unix.Stat_t
	if err := unix.Stat(name, &st); err != nil {
		return "", "", fmt.Errorf("stat %s: %w", name, err)
	}
	uid := strconv.FormatUint(uint64(st.Uid), 10)
	gid := strconv.FormatUint(uint64(st.Gid), 10)

	owner, group = uid, gid
	if u, err := user.LookupId(uid); err == nil {
		owner = u.Username
	}
	if g, err := user.LookupGroupId(gid); err == nil {
		group = g.Name
	}
	return owner, group, nil
}
