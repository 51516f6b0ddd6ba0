// Package system gathers facts about the machine behind a session and
// evaluates conditions against them.
package system

// Facts describes a target machine.
type Facts struct {
	OS         string `yaml:"os" json:"os"`                   // linux, darwin
	Arch       string `yaml:"arch" json:"arch"`               // x86_64, aarch64
	Kernel     string `yaml:"kernel" json:"kernel"`           // 6.6.7-arch1-1
	Distro     string `yaml:"distro" json:"distro"`           // ubuntu, arch, fedora
	Version    string `yaml:"version" json:"version"`         // 22.04, 38, Rolling Release
	InitSystem string `yaml:"init_system" json:"init_system"` // systemd, openrc, sysvinit
	Hostname   string `yaml:"hostname" json:"hostname"`

	User    string `yaml:"user" json:"user"`
	HomeDir string `yaml:"home_dir" json:"home_dir"`
	UID     string `yaml:"uid" json:"uid"`
	GID     string `yaml:"gid" json:"gid"`

	Hardware Hardware `yaml:"hardware" json:"hardware"`
	Env      Env      `yaml:"env" json:"env"`
	FS       FS       `yaml:"fs" json:"fs"`
}

type Hardware struct {
	CPUModel string `yaml:"cpu_model" json:"cpu_model"`
	CPUCore  int    `yaml:"cpu_core" json:"cpu_core"`
	RAMTotal string `yaml:"ram_total" json:"ram_total"` // "15.6 GB"
}

type Env struct {
	Shell    string `yaml:"shell" json:"shell"`
	Lang     string `yaml:"lang" json:"lang"`
	Term     string `yaml:"term" json:"term"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

type FS struct {
	RootFSType string `yaml:"root_fs_type" json:"root_fs_type"` // ext4, btrfs, zfs
}

func newFacts() *Facts {
	return &Facts{
		OS:         "unknown",
		Distro:     "unknown",
		InitSystem: "unknown",
		Kernel:     "unknown",
		FS:         FS{RootFSType: "unknown"},
		Env:        Env{Timezone: "UTC"},
	}
}
