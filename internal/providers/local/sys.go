package local

import (
	"runtime"

	"github.com/melih-ucgun/xal/internal/core"
)

// Sys reports facts about the running machine.
type Sys struct {
	core.BaseProvider
}

func NewSys() *Sys {
	return &Sys{BaseProvider: core.NewBaseProvider(Name)}
}

func (s *Sys) Supports(sess *core.Session) bool { return supportsLocal(sess) }

func (s *Sys) OSFamily() string {
	if runtime.GOOS == "windows" {
		return "nt"
	}
	return "posix"
}

func (s *Sys) IsPosix() bool { return s.OSFamily() == "posix" }

func (s *Sys) Platform() string { return runtime.GOOS }

func (s *Sys) Uname() (core.Uname, error) { return uname() }
