package system

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/melih-ucgun/xal/internal/core"
)

// source is where facts are read from: files and shell output of the
// target machine.
type source interface {
	read(name string) (string, error)
	exists(name string) bool
	run(line string) (string, error)
}

type sessionSource struct {
	s  *core.Session
	pp core.PathProvider
}

func (src sessionSource) read(name string) (string, error) {
	return src.pp.Path(name).ReadText()
}

func (src sessionSource) exists(name string) bool {
	ok, err := src.pp.Path(name).Exists()
	return err == nil && ok
}

func (src sessionSource) run(line string) (string, error) {
	res, err := src.s.Run(line)
	if err != nil {
		return "", err
	}
	if !res.Succeeded() {
		return "", fmt.Errorf("%s: exit %d", line, res.ReturnCode)
	}
	return res.Stdout, nil
}

// identityLine prints the user facts, one per line.
const identityLine = `id -u -n; id -u; id -g; printf '%s\n' "$HOME" "$SHELL" "$LANG" "$TERM"`

var rollingDistros = []string{"arch", "cachyos", "manjaro", "endeavouros"}

// Detect gathers facts through the session's providers. Only a missing
// provider is an error; facts that cannot be read keep their defaults.
func Detect(s *core.Session) (*Facts, error) {
	sys, err := s.Sys()
	if err != nil {
		return nil, err
	}
	pp, err := s.Path()
	if err != nil {
		return nil, err
	}
	if _, err := s.Sh(); err != nil {
		return nil, err
	}

	facts := newFacts()
	facts.OS = sys.Platform()
	if u, err := sys.Uname(); err == nil {
		facts.Kernel = u.Release
		facts.Arch = u.Machine
		facts.Hostname = u.Nodename
	} else {
		s.Logger().Warn("uname failed", "error", err)
	}

	detect(facts, sessionSource{s: s, pp: pp})
	return facts, nil
}

func detect(facts *Facts, src source) {
	info := map[string]string{}
	if content, err := src.read("/etc/os-release"); err == nil {
		info = parseOSRelease(content)
	}
	if id := info["ID"]; id != "" {
		facts.Distro = id
	}
	facts.Version = info["VERSION_ID"]

	// Rolling release distros carry no version.
	if facts.Version == "" {
		for _, d := range rollingDistros {
			if strings.Contains(strings.ToLower(facts.Distro), d) {
				facts.Version = "Rolling Release"
				break
			}
		}
		if strings.Contains(info["ID_LIKE"], "arch") {
			facts.Version = "Rolling Release"
		}
	}

	if out, err := src.run(identityLine); err == nil {
		lines := strings.Split(out, "\n")
		fields := []*string{&facts.User, &facts.UID, &facts.GID, &facts.HomeDir, &facts.Env.Shell, &facts.Env.Lang, &facts.Env.Term}
		for i, f := range fields {
			if i < len(lines) {
				*f = strings.TrimSpace(lines[i])
			}
		}
	}

	facts.InitSystem = detectInitSystem(src)
	facts.Hardware = detectHardware(src)
	facts.Env.Timezone = detectTimezone(src)
	facts.FS.RootFSType = detectRootFS(src)
}

func parseOSRelease(content string) map[string]string {
	info := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), "=")
		if !ok || strings.HasPrefix(key, "#") {
			continue
		}
		info[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(val), `"'`)
	}
	return info
}

func detectHardware(src source) Hardware {
	hw := Hardware{CPUModel: "Unknown CPU"}

	if content, err := src.read("/proc/cpuinfo"); err == nil {
		scanner := bufio.NewScanner(strings.NewReader(content))
		for scanner.Scan() {
			key, val, ok := strings.Cut(scanner.Text(), ":")
			if !ok {
				continue
			}
			switch strings.TrimSpace(key) {
			case "model name":
				if hw.CPUModel == "Unknown CPU" {
					hw.CPUModel = strings.TrimSpace(val)
				}
			case "processor":
				hw.CPUCore++
			}
		}
	}

	if content, err := src.read("/proc/meminfo"); err == nil {
		hw.RAMTotal = parseMemTotal(content)
	}
	return hw
}

func parseMemTotal(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "MemTotal:" {
			continue
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return fields[1]
		}
		return fmt.Sprintf("%.1f GB", float64(kb)/(1024*1024))
	}
	return ""
}

func detectTimezone(src source) string {
	if content, err := src.read("/etc/timezone"); err == nil {
		if tz := strings.TrimSpace(content); tz != "" {
			return tz
		}
	}
	// /etc/localtime -> /usr/share/zoneinfo/Europe/Istanbul
	if link, err := src.run("readlink /etc/localtime"); err == nil {
		if _, tz, ok := strings.Cut(strings.TrimSpace(link), "zoneinfo/"); ok {
			return tz
		}
	}
	return "UTC"
}

func detectRootFS(src source) string {
	content, err := src.read("/proc/mounts")
	if err != nil {
		return "unknown"
	}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 3 && fields[1] == "/" {
			return fields[2]
		}
	}
	return "unknown"
}
