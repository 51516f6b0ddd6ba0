package inventory

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/xal/internal/crypto"
	"github.com/melih-ucgun/xal/internal/utils"
)

// Connection types.
const (
	ConnLocal = "local"
	ConnSSH   = "ssh"
)

// Inventory represents the structure of the inventory file.
type Inventory struct {
	Hosts []Host `yaml:"hosts"`
}

// Host represents a single target machine in the fleet.
type Host struct {
	Name       string            `yaml:"name"`
	Address    string            `yaml:"address"`
	User       string            `yaml:"user,omitempty"`
	Port       int               `yaml:"port,omitempty"`
	KeyPath    string            `yaml:"key_path,omitempty"`
	Password   string            `yaml:"password,omitempty"` // may be ENC[...]
	Connection string            `yaml:"connection,omitempty"`
	KnownHosts string            `yaml:"known_hosts,omitempty"`
	Insecure   bool              `yaml:"insecure,omitempty"` // skip host key checks
	Vars       map[string]string `yaml:"vars,omitempty"`
}

// IsLocal reports whether the host is the local machine.
func (h Host) IsLocal() bool { return h.Connection == ConnLocal }

// Label is the host name, or its address when unnamed.
func (h Host) Label() string {
	if h.Name != "" {
		return h.Name
	}
	return h.Address
}

// Validate checks the connection settings of a host with defaults applied.
func (h Host) Validate() error {
	var errs []error
	if !utils.IsOneOf(h.Connection, ConnLocal, ConnSSH) {
		errs = append(errs, fmt.Errorf("unknown connection %q", h.Connection))
	}
	if h.Connection == ConnSSH {
		if !utils.IsValidAddress(h.Address) {
			errs = append(errs, fmt.Errorf("invalid address %q", h.Address))
		}
		if h.Port != 0 && !utils.IsValidPort(h.Port) {
			errs = append(errs, fmt.Errorf("invalid port %d", h.Port))
		}
	}
	if h.User != "" && !utils.IsValidName(h.User) {
		errs = append(errs, fmt.Errorf("invalid user %q", h.User))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("host %s: %w", h.Label(), err)
	}
	return nil
}

// Find returns the host named name.
func (inv *Inventory) Find(name string) (Host, bool) {
	for _, h := range inv.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}

// LoadInventory reads and parses the inventory file. Encrypted values are
// opened with the key from keySource, crypto.MasterKey when nil.
func LoadInventory(path string, keySource func() string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}
	return Parse(data, keySource)
}

// Parse decodes an inventory document and applies defaults, environment
// expansion and decryption.
func Parse(data []byte, keySource func() string) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file: %w", err)
	}

	for i := range inv.Hosts {
		h := &inv.Hosts[i]
		expandHost(h)
		applyDefaults(h)
	}
	if err := decryptHosts(inv.Hosts, keySource); err != nil {
		return nil, err
	}

	var errs []error
	seen := make(map[string]bool)
	for _, h := range inv.Hosts {
		if err := h.Validate(); err != nil {
			errs = append(errs, err)
		}
		if h.Name != "" {
			if seen[h.Name] {
				errs = append(errs, fmt.Errorf("duplicate host name %q", h.Name))
			}
			seen[h.Name] = true
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid inventory: %w", err)
	}
	return &inv, nil
}

func applyDefaults(h *Host) {
	if h.Connection == "" {
		if h.Address == "localhost" || h.Address == "127.0.0.1" || h.Address == "" {
			h.Connection = ConnLocal
		} else {
			h.Connection = ConnSSH
		}
	}
	if h.Name == "" {
		h.Name = h.Address
	}
}

func expandHost(h *Host) {
	h.Address = os.ExpandEnv(h.Address)
	h.User = os.ExpandEnv(h.User)
	h.KeyPath = os.ExpandEnv(h.KeyPath)
	h.Password = os.ExpandEnv(h.Password)
	h.KnownHosts = os.ExpandEnv(h.KnownHosts)
	for k, v := range h.Vars {
		h.Vars[k] = os.ExpandEnv(v)
	}
}

func hasEncryptedContent(hosts []Host) bool {
	for _, h := range hosts {
		if crypto.IsEncrypted(h.Password) {
			return true
		}
		for _, v := range h.Vars {
			if crypto.IsEncrypted(v) {
				return true
			}
		}
	}
	return false
}

func decryptHosts(hosts []Host, keySource func() string) error {
	if !hasEncryptedContent(hosts) {
		return nil
	}
	if keySource == nil {
		keySource = crypto.MasterKey
	}
	key := keySource()
	if key == "" {
		return fmt.Errorf("inventory has encrypted values: %w", crypto.ErrNoKey)
	}

	for i := range hosts {
		h := &hosts[i]
		pw, err := crypto.Decrypt(h.Password, key)
		if err != nil {
			return fmt.Errorf("host %s password: %w", h.Label(), err)
		}
		h.Password = pw
		for k, v := range h.Vars {
			plain, err := crypto.Decrypt(v, key)
			if err != nil {
				return fmt.Errorf("host %s var %s: %w", h.Label(), k, err)
			}
			h.Vars[k] = plain
		}
	}
	return nil
}
