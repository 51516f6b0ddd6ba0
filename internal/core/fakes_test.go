package core

import (
	"context"
	"io/fs"
	"path"
	"strings"
)

// stubProvider is a plain provider with an optional capability predicate.
type stubProvider struct {
	BaseProvider
	supports func(*Session) bool
	checks   int
}

func newStub(name string, supports func(*Session) bool) *stubProvider {
	return &stubProvider{BaseProvider: NewBaseProvider(name), supports: supports}
}

func (p *stubProvider) Supports(s *Session) bool {
	p.checks++
	if p.supports == nil {
		return true
	}
	return p.supports(s)
}

// plainProvider has no capability predicate at all.
type plainProvider struct{ name string }

func (p *plainProvider) Name() string { return p.name }

func localOnly(s *Session) bool  { return s.IsLocal() }
func remoteOnly(s *Session) bool { return !s.IsLocal() }

type fakeSys struct {
	BaseProvider
	family string
}

func (f *fakeSys) OSFamily() string { return f.family }
func (f *fakeSys) IsPosix() bool    { return f.family == "posix" }
func (f *fakeSys) Platform() string { return "fake" }
func (f *fakeSys) Uname() (Uname, error) {
	return Uname{Sysname: "Fake"}, nil
}

type fakeSh struct {
	ShBase
	supports func(*Session) bool
	run      func(*Command) (*Result, error)
	ran      []string
}

func (f *fakeSh) Supports(s *Session) bool {
	if f.supports == nil {
		return true
	}
	return f.supports(s)
}

func (f *fakeSh) Run(c *Command) (*Result, error) {
	f.ran = append(f.ran, c.String())
	if f.run == nil {
		return &Result{}, nil
	}
	return f.run(c)
}

// fakePath keeps a tiny in-memory tree. Operations it does not implement hit
// the nil embedded interface and panic.
type fakePath struct {
	PathProvider
	base PathBase

	cwd   string
	dirs  map[string]bool
	files map[string]string
	moves [][2]string
}

func newFakePath() *fakePath {
	return &fakePath{
		base:  NewPathBase("fake"),
		cwd:   "/home/user",
		dirs:  map[string]bool{"/": true, "/home": true, "/home/user": true, "/tmp": true},
		files: map[string]string{},
	}
}

func (f *fakePath) Name() string               { return f.base.Name() }
func (f *fakePath) Bind(s *Session)            { f.base.Bind(s) }
func (f *fakePath) Path(parts ...string) *Path { return f.base.Path(parts...) }
func (f *fakePath) Attach(p *Path) *Path       { return f.base.Attach(p) }

func (f *fakePath) abs(p *Path) string {
	s := p.String()
	if !strings.HasPrefix(s, "/") {
		s = path.Join(f.cwd, s)
	}
	return path.Clean(s)
}

func (f *fakePath) Cwd() (*Path, error) { return f.Path(f.cwd), nil }

func (f *fakePath) Chdir(p *Path) error {
	target := f.abs(p)
	if !f.dirs[target] {
		return &fs.PathError{Op: "chdir", Path: target, Err: fs.ErrNotExist}
	}
	f.cwd = target
	return nil
}

func (f *fakePath) Exists(p *Path) (bool, error) {
	target := f.abs(p)
	_, isFile := f.files[target]
	return f.dirs[target] || isFile, nil
}

func (f *fakePath) IsDir(p *Path) (bool, error) { return f.dirs[f.abs(p)], nil }

func (f *fakePath) Mkdir(p *Path, _ MkdirOptions) error {
	f.dirs[f.abs(p)] = true
	return nil
}

func (f *fakePath) Rmdir(p *Path) error {
	target := f.abs(p)
	if !f.dirs[target] {
		return &fs.PathError{Op: "rmdir", Path: target, Err: fs.ErrNotExist}
	}
	delete(f.dirs, target)
	return nil
}

func (f *fakePath) Unlink(p *Path, missingOK bool) error {
	target := f.abs(p)
	if _, ok := f.files[target]; !ok && !missingOK {
		return &fs.PathError{Op: "unlink", Path: target, Err: fs.ErrNotExist}
	}
	delete(f.files, target)
	return nil
}

func (f *fakePath) Rename(p, target *Path) error {
	from, to := f.abs(p), f.abs(target)
	data, ok := f.files[from]
	if !ok {
		return &fs.PathError{Op: "rename", Path: from, Err: fs.ErrNotExist}
	}
	delete(f.files, from)
	f.files[to] = data
	f.moves = append(f.moves, [2]string{from, to})
	return nil
}

func (f *fakePath) Replace(p, target *Path) error { return f.Rename(p, target) }

// newFakeSession returns a session with a posix sys provider and the fake
// path provider registered.
func newFakeSession(local bool) (*Session, *fakePath) {
	s := NewSession(context.Background(), Info{Local: local, Host: "fake"})
	fp := newFakePath()
	s.Registry().Register(IfaceSys, &fakeSys{BaseProvider: NewBaseProvider("fake"), family: "posix"})
	s.Registry().Register(IfacePath, fp)
	return s, fp
}
