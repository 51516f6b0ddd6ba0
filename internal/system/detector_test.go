package system

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/xal/internal/session"
)

type fakeSource struct {
	files map[string]string
	dirs  map[string]bool
	out   map[string]string
}

func (f fakeSource) read(name string) (string, error) {
	if c, ok := f.files[name]; ok {
		return c, nil
	}
	return "", fs.ErrNotExist
}

func (f fakeSource) exists(name string) bool {
	_, ok := f.files[name]
	return ok || f.dirs[name]
}

func (f fakeSource) run(line string) (string, error) {
	if out, ok := f.out[line]; ok {
		return out, nil
	}
	return "", errors.New("exit 127")
}

func TestDetect_FromSource(t *testing.T) {
	src := fakeSource{
		files: map[string]string{
			"/etc/os-release": "NAME=\"Ubuntu\"\nID=ubuntu\nVERSION_ID=\"22.04\"\n# comment\n",
			"/proc/1/comm":    "systemd\n",
			"/proc/cpuinfo":   "processor\t: 0\nmodel name\t: AMD Ryzen 7 5800X\nprocessor\t: 1\nmodel name\t: AMD Ryzen 7 5800X\n",
			"/proc/meminfo":   "MemTotal:       16303428 kB\nMemFree: 1 kB\n",
			"/proc/mounts":    "proc /proc proc rw 0 0\n/dev/sda1 / ext4 rw 0 0\n",
			"/etc/timezone":   "Europe/Istanbul\n",
		},
		out: map[string]string{
			identityLine: "deploy\n1000\n1000\n/home/deploy\n/bin/bash\nen_US.UTF-8\nxterm\n",
		},
	}

	facts := newFacts()
	detect(facts, src)

	assert.Equal(t, "ubuntu", facts.Distro)
	assert.Equal(t, "22.04", facts.Version)
	assert.Equal(t, "systemd", facts.InitSystem)
	assert.Equal(t, "deploy", facts.User)
	assert.Equal(t, "1000", facts.UID)
	assert.Equal(t, "1000", facts.GID)
	assert.Equal(t, "/home/deploy", facts.HomeDir)
	assert.Equal(t, Env{Shell: "/bin/bash", Lang: "en_US.UTF-8", Term: "xterm", Timezone: "Europe/Istanbul"}, facts.Env)
	assert.Equal(t, Hardware{CPUModel: "AMD Ryzen 7 5800X", CPUCore: 2, RAMTotal: "15.5 GB"}, facts.Hardware)
	assert.Equal(t, "ext4", facts.FS.RootFSType)
}

func TestDetect_Defaults(t *testing.T) {
	facts := newFacts()
	detect(facts, fakeSource{})

	assert.Equal(t, "unknown", facts.Distro)
	assert.Equal(t, "unknown", facts.InitSystem)
	assert.Equal(t, "Unknown CPU", facts.Hardware.CPUModel)
	assert.Equal(t, "UTC", facts.Env.Timezone)
	assert.Equal(t, "unknown", facts.FS.RootFSType)
}

func TestDetect_RollingRelease(t *testing.T) {
	for _, release := range []string{"ID=arch\n", "ID=steamos\nID_LIKE=arch\n"} {
		facts := newFacts()
		detect(facts, fakeSource{files: map[string]string{"/etc/os-release": release}})
		assert.Equal(t, "Rolling Release", facts.Version, release)
	}
}

func TestDetectInitSystem(t *testing.T) {
	tests := []struct {
		name string
		src  fakeSource
		want string
	}{
		{"systemd run dir", fakeSource{dirs: map[string]bool{"/run/systemd/system": true}}, "systemd"},
		{"openrc run dir", fakeSource{dirs: map[string]bool{"/run/openrc": true, "/etc/init.d": true}}, "openrc"},
		{"rc-service on path", fakeSource{out: map[string]string{"command -v rc-service": "/sbin/rc-service\n"}}, "openrc"},
		{"init.d only", fakeSource{dirs: map[string]bool{"/etc/init.d": true}}, "sysvinit"},
		{"pid 1 is init", fakeSource{files: map[string]string{"/proc/1/comm": "init\n"}}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectInitSystem(tt.src))
		})
	}
}

func TestDetectTimezone_FromLocaltimeLink(t *testing.T) {
	src := fakeSource{out: map[string]string{"readlink /etc/localtime": "/usr/share/zoneinfo/America/New_York\n"}}
	assert.Equal(t, "America/New_York", detectTimezone(src))
}

func TestDetect_LocalSession(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell")
	}
	s, err := session.NewLocal(context.Background())
	require.NoError(t, err)
	defer s.Close()

	facts, err := Detect(s)
	require.NoError(t, err)

	assert.Equal(t, runtime.GOOS, facts.OS)
	assert.NotEmpty(t, facts.Kernel)
	assert.NotEmpty(t, facts.Hostname)
	assert.Equal(t, strconv.Itoa(os.Getuid()), facts.UID)
	assert.Equal(t, strconv.Itoa(os.Getgid()), facts.GID)
}
