package remote

import (
	"fmt"
	"strings"
	"sync"

	"github.com/melih-ucgun/xal/internal/core"
)

// unameLine prints one uname field per line.
const unameLine = "uname -s; uname -n; uname -r; uname -v; uname -m"

// Sys reports facts about the remote host. Uname runs once per provider.
type Sys struct {
	core.BaseProvider
	client *Client

	once  sync.Once
	uname core.Uname
	err   error
}

func NewSys(c *Client) *Sys {
	return &Sys{BaseProvider: core.NewBaseProvider(Name), client: c}
}

func (s *Sys) Supports(sess *core.Session) bool { return supportsRemote(sess) }

// OSFamily is always posix: the shell wrapping used by the transport needs a
// POSIX shell on the far side.
func (s *Sys) OSFamily() string { return "posix" }

func (s *Sys) IsPosix() bool { return true }

// Platform is the lower-cased kernel name, or "unknown" if uname failed.
func (s *Sys) Platform() string {
	u, err := s.Uname()
	if err != nil {
		if sess := s.Session(); sess != nil {
			sess.Logger().Warn("remote uname failed", "error", err)
		}
		return "unknown"
	}
	return strings.ToLower(u.Sysname)
}

func (s *Sys) Uname() (core.Uname, error) {
	s.once.Do(func() {
		s.uname, s.err = s.fetch()
	})
	return s.uname, s.err
}

func (s *Sys) fetch() (core.Uname, error) {
	conn, err := s.client.SSH()
	if err != nil {
		return core.Uname{}, err
	}
	res, err := conn.Execute(s.client.ctx(), unameLine, nil)
	if err != nil {
		return core.Uname{}, fmt.Errorf("uname: %w", err)
	}
	if !res.Succeeded() {
		return core.Uname{}, fmt.Errorf("uname: exit %d: %s", res.ReturnCode, strings.TrimSpace(res.Stderr))
	}
	fields := strings.Split(strings.TrimRight(res.Stdout, "\n"), "\n")
	if len(fields) != 5 {
		return core.Uname{}, fmt.Errorf("uname: unexpected output %q", res.Stdout)
	}
	return core.Uname{
		Sysname:  fields[0],
		Nodename: fields[1],
		Release:  fields[2],
		Version:  fields[3],
		Machine:  fields[4],
	}, nil
}
