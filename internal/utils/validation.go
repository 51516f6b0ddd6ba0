package utils

import (
	"net"
	"regexp"
	"slices"
)

// Regex for valid system names (users, groups, etc.)
// Starts with letter/underscore, contains letters, numbers, underscores, dashes.
var NameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]*\$?$`)

// HostnameRegex accepts RFC 1123 host names and ssh_config aliases.
var HostnameRegex = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9_.-]*[A-Za-z0-9])?$`)

// IsValidName checks if the given name is a valid system identifier.
func IsValidName(name string) bool {
	return NameRegex.MatchString(name)
}

// IsOneOf checks if the value is one of the allowed options.
func IsOneOf(value string, allowed ...string) bool {
	return slices.Contains(allowed, value)
}

// IsValidPort checks if the port is within lawful range
func IsValidPort(port int) bool {
	return port > 0 && port <= 65535
}

// IsValidAddress accepts IP addresses and host names.
func IsValidAddress(addr string) bool {
	if net.ParseIP(addr) != nil {
		return true
	}
	return len(addr) <= 253 && HostnameRegex.MatchString(addr)
}
