package local

import (
	"context"
	"testing"

	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/transport"
)

func newSession(t *testing.T) (*core.Session, *Sh) {
	t.Helper()
	s := core.NewSession(context.Background(), core.Info{Local: true})
	tr := transport.NewLocalTransport(nil)
	sh := NewSh(tr)
	s.Registry().Register(core.IfaceClient, NewClient(tr))
	s.Registry().Register(core.IfaceSys, NewSys())
	s.Registry().Register(core.IfacePath, NewPath())
	s.Registry().Register(core.IfaceSh, sh)
	t.Cleanup(func() { s.Close() })
	return s, sh
}

// tempDir returns a session path for a fresh directory with symlinks
// resolved, so it compares equal to what Resolve and Cwd report.
func tempDir(t *testing.T, s *core.Session) *core.Path {
	t.Helper()
	pp, err := s.Path()
	if err != nil {
		t.Fatal(err)
	}
	dir, err := pp.Path(t.TempDir()).Resolve()
	if err != nil {
		t.Fatal(err)
	}
	return dir
}
