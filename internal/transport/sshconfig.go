package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/melih-ucgun/xal/internal/inventory"
)

const defaultSSHPort = 22

// DefaultSSHConfigPath is the per-user OpenSSH client config.
func DefaultSSHConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "config")
}

// ResolveHost fills the connection settings host leaves empty from the
// OpenSSH config at path, treating host.Address as the alias. A missing file
// is not an error. The port falls back to 22 and the user to $USER.
func ResolveHost(host inventory.Host, path string) (inventory.Host, error) {
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return host, fmt.Errorf("open ssh config: %w", err)
		default:
			defer f.Close()
			cfg, err := ssh_config.Decode(f)
			if err != nil {
				return host, fmt.Errorf("parse ssh config %s: %w", path, err)
			}
			if err := applySSHConfig(&host, cfg); err != nil {
				return host, err
			}
		}
	}

	if host.Port == 0 {
		host.Port = defaultSSHPort
	}
	if host.User == "" {
		host.User = os.Getenv("USER")
	}
	return host, nil
}

func applySSHConfig(host *inventory.Host, cfg *ssh_config.Config) error {
	alias := host.Address
	get := func(key string) string {
		v, err := cfg.Get(alias, key)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if hostname := get("HostName"); hostname != "" {
		host.Address = hostname
	}
	if host.User == "" {
		host.User = get("User")
	}
	if host.Port == 0 {
		if port := get("Port"); port != "" {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("ssh config: invalid port %q for %s", port, alias)
			}
			host.Port = p
		}
	}
	if host.KeyPath == "" {
		host.KeyPath = expandHome(get("IdentityFile"))
	}
	if host.KnownHosts == "" {
		if files := strings.Fields(get("UserKnownHostsFile")); len(files) > 0 {
			host.KnownHosts = expandHome(files[0])
		}
	}
	return nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
