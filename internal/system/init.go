package system

import (
	"strings"
)

func detectInitSystem(src source) string {
	// PID 1 is the most reliable signal.
	if comm, err := src.read("/proc/1/comm"); err == nil && strings.TrimSpace(comm) == "systemd" {
		return "systemd"
	}
	if src.exists("/run/systemd/system") {
		return "systemd"
	}

	if src.exists("/run/openrc") {
		return "openrc"
	}
	if _, err := src.run("command -v rc-service"); err == nil {
		return "openrc"
	}

	// SysVinit only when nothing above matched.
	if src.exists("/etc/init.d") {
		return "sysvinit"
	}
	return "unknown"
}
