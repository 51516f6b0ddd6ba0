package core

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
)

// Path is a filesystem path resource. Without a session it is virtual and
// only its syntactic value matters; attached to a session it is concrete and
// filesystem operations go to the session's path provider.
type Path struct {
	session *Session
	parts   []string

	// Memoized pure path. The flavour is decided once per instance.
	pure       *PurePath
	flavour    Flavour
	flavourSet bool

	// Scope state, see Close.
	restoreCwd   *Path
	removeOnExit bool
}

// NewPath builds a virtual path from parts.
func NewPath(parts ...string) *Path {
	return newPath(nil, parts)
}

func newPath(s *Session, parts []string) *Path {
	return &Path{session: s, parts: slices.Clone(parts)}
}

// derive wraps an algebra result on the receiver's session.
func (p *Path) derive(pp PurePath) *Path {
	return &Path{
		session:    p.session,
		parts:      []string{pp.String()},
		pure:       &pp,
		flavour:    pp.flavour,
		flavourSet: true,
	}
}

func (p *Path) rawParts() []string {
	if p.pure != nil {
		return []string{p.pure.String()}
	}
	return slices.Clone(p.parts)
}

// Session returns the attached session, nil for virtual paths.
func (p *Path) Session() *Session { return p.session }

// IsVirtual reports whether the path has no session.
func (p *Path) IsVirtual() bool { return p.session == nil }

// Pure returns the syntactic path value, computing it on first use.
func (p *Path) Pure() PurePath {
	if p.pure == nil {
		pp := NewPurePath(p.pathFlavour(), p.parts...)
		p.pure = &pp
	}
	return *p.pure
}

func (p *Path) pathFlavour() Flavour {
	if p.flavourSet {
		return p.flavour
	}
	p.flavour = Posix
	if p.session != nil {
		sys, err := p.session.Sys()
		switch {
		case err != nil:
			p.session.Logger().Warn("system provider unavailable, using posix path flavour", "error", err)
		case sys.OSFamily() == "nt":
			p.flavour = Windows
		}
	}
	p.flavourSet = true
	return p.flavour
}

// invalidate drops the memoized pure path. The flavour is kept.
func (p *Path) invalidate() { p.pure = nil }

func (p *Path) String() string { return p.Pure().String() }

// pair returns both pure values under a common flavour. A virtual operand is
// reparsed with the flavour of a concrete one.
func (p *Path) pair(other *Path) (PurePath, PurePath) {
	a, b := p.Pure(), other.Pure()
	if a.flavour != b.flavour {
		switch {
		case p.session == nil:
			a = NewPurePath(b.flavour, p.rawParts()...)
		case other.session == nil:
			b = NewPurePath(a.flavour, other.rawParts()...)
		}
	}
	return a, b
}

// Equal compares path values. Sessions are compared only when both paths
// have one, so a virtual path equals any concrete path with the same value.
func (p *Path) Equal(other *Path) bool {
	if other == nil {
		return false
	}
	if p.session != nil && other.session != nil && p.session != other.session {
		return false
	}
	a, b := p.pair(other)
	return a.Equal(b)
}

// Compare orders by path value, then by session ID when both paths have
// different sessions.
func (p *Path) Compare(other *Path) int {
	a, b := p.pair(other)
	if c := a.Compare(b); c != 0 {
		return c
	}
	if p.session != nil && other.session != nil && p.session != other.session {
		return cmp.Compare(p.session.ID(), other.session.ID())
	}
	return 0
}

func (p *Path) Drive() string { return p.Pure().Drive() }

func (p *Path) Root() string { return p.Pure().Root() }

func (p *Path) Anchor() string { return p.Pure().Anchor() }

func (p *Path) Parts() []string { return p.Pure().Parts() }

func (p *Path) Name() string { return p.Pure().Name() }

func (p *Path) Suffix() string { return p.Pure().Suffix() }

func (p *Path) Suffixes() []string { return p.Pure().Suffixes() }

func (p *Path) Stem() string { return p.Pure().Stem() }

func (p *Path) IsAbsolute() bool { return p.Pure().IsAbsolute() }

func (p *Path) IsReserved() bool { return p.Pure().IsReserved() }

func (p *Path) AsPosix() string { return p.Pure().AsPosix() }

func (p *Path) AsURI() (string, error) { return p.Pure().AsURI() }

func (p *Path) Match(pattern string) (bool, error) { return p.Pure().Match(pattern) }

func (p *Path) Parent() *Path { return p.derive(p.Pure().Parent()) }

func (p *Path) Parents() []*Path {
	pures := p.Pure().Parents()
	out := make([]*Path, 0, len(pures))
	for _, pp := range pures {
		out = append(out, p.derive(pp))
	}
	return out
}

// Join appends parts to the path.
func (p *Path) Join(parts ...string) *Path {
	return p.derive(p.Pure().Join(parts...))
}

// JoinPath appends other paths.
func (p *Path) JoinPath(others ...*Path) *Path {
	parts := make([]string, 0, len(others))
	for _, o := range others {
		parts = append(parts, o.Pure().String())
	}
	return p.Join(parts...)
}

func (p *Path) RelativeTo(other *Path) (*Path, error) {
	a, b := p.pair(other)
	rel, err := a.RelativeTo(b)
	if err != nil {
		return nil, err
	}
	return p.derive(rel), nil
}

func (p *Path) WithName(name string) (*Path, error) {
	pp, err := p.Pure().WithName(name)
	if err != nil {
		return nil, err
	}
	return p.derive(pp), nil
}

func (p *Path) WithSuffix(suffix string) (*Path, error) {
	pp, err := p.Pure().WithSuffix(suffix)
	if err != nil {
		return nil, err
	}
	return p.derive(pp), nil
}

func (p *Path) provider() (PathProvider, error) {
	if p.session == nil {
		return nil, fmt.Errorf("path %s: %w", p, ErrNoSession)
	}
	return p.session.Path()
}

func (p *Path) Exists() (bool, error) {
	pp, err := p.provider()
	if err != nil {
		return false, err
	}
	return pp.Exists(p)
}

func (p *Path) IsDir() (bool, error) {
	pp, err := p.provider()
	if err != nil {
		return false, err
	}
	return pp.IsDir(p)
}

func (p *Path) IsFile() (bool, error) {
	pp, err := p.provider()
	if err != nil {
		return false, err
	}
	return pp.IsFile(p)
}

func (p *Path) IsSymlink() (bool, error) {
	pp, err := p.provider()
	if err != nil {
		return false, err
	}
	return pp.IsSymlink(p)
}

func (p *Path) IsSocket() (bool, error) {
	pp, err := p.provider()
	if err != nil {
		return false, err
	}
	return pp.IsSocket(p)
}

func (p *Path) IsFifo() (bool, error) {
	pp, err := p.provider()
	if err != nil {
		return false, err
	}
	return pp.IsFifo(p)
}

func (p *Path) IsBlockDevice() (bool, error) {
	pp, err := p.provider()
	if err != nil {
		return false, err
	}
	return pp.IsBlockDevice(p)
}

func (p *Path) IsCharDevice() (bool, error) {
	pp, err := p.provider()
	if err != nil {
		return false, err
	}
	return pp.IsCharDevice(p)
}

func (p *Path) Stat() (fs.FileInfo, error) {
	pp, err := p.provider()
	if err != nil {
		return nil, err
	}
	return pp.Stat(p)
}

func (p *Path) Lstat() (fs.FileInfo, error) {
	pp, err := p.provider()
	if err != nil {
		return nil, err
	}
	return pp.Lstat(p)
}

func (p *Path) Chmod(mode fs.FileMode) error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	return pp.Chmod(p, mode)
}

func (p *Path) Lchmod(mode fs.FileMode) error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	return pp.Lchmod(p, mode)
}

func (p *Path) Owner() (string, error) {
	pp, err := p.provider()
	if err != nil {
		return "", err
	}
	return pp.Owner(p)
}

func (p *Path) Group() (string, error) {
	pp, err := p.provider()
	if err != nil {
		return "", err
	}
	return pp.Group(p)
}

func (p *Path) Glob(pattern string) ([]*Path, error) {
	pp, err := p.provider()
	if err != nil {
		return nil, err
	}
	return pp.Glob(p, pattern)
}

func (p *Path) Rglob(pattern string) ([]*Path, error) {
	pp, err := p.provider()
	if err != nil {
		return nil, err
	}
	return pp.Rglob(p, pattern)
}

func (p *Path) Iterdir() ([]*Path, error) {
	pp, err := p.provider()
	if err != nil {
		return nil, err
	}
	return pp.Iterdir(p)
}

func (p *Path) Mkdir(opts MkdirOptions) error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	return pp.Mkdir(p, opts)
}

func (p *Path) Rmdir() error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	return pp.Rmdir(p)
}

// Rename moves the file to target. On success the receiver takes target's
// value: it now names the moved file.
func (p *Path) Rename(target *Path) error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	if err := pp.Rename(p, target); err != nil {
		return err
	}
	p.become(target)
	return nil
}

// Replace is Rename, overwriting an existing target.
func (p *Path) Replace(target *Path) error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	if err := pp.Replace(p, target); err != nil {
		return err
	}
	p.become(target)
	return nil
}

func (p *Path) become(target *Path) {
	p.parts = target.rawParts()
	p.invalidate()
}

func (p *Path) Resolve() (*Path, error) {
	pp, err := p.provider()
	if err != nil {
		return nil, err
	}
	return pp.Resolve(p)
}

// SymlinkTo makes p a symbolic link pointing at target.
func (p *Path) SymlinkTo(target *Path) error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	return pp.SymlinkTo(p, target)
}

func (p *Path) Touch(mode fs.FileMode, existOK bool) error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	return pp.Touch(p, mode, existOK)
}

func (p *Path) Unlink(missingOK bool) error {
	pp, err := p.provider()
	if err != nil {
		return err
	}
	return pp.Unlink(p, missingOK)
}

// Open opens the file with os.OpenFile flag semantics.
func (p *Path) Open(flag int, perm fs.FileMode) (File, error) {
	pp, err := p.provider()
	if err != nil {
		return nil, err
	}
	return pp.Open(p, flag, perm)
}

func (p *Path) ReadText() (string, error) {
	f, err := p.Open(os.O_RDONLY, 0)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), nil
}

// WriteText creates or truncates the file and writes s to it.
func (p *Path) WriteText(s string) (err error) {
	f, err := p.Open(os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if _, err := io.WriteString(f, s); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// Cd makes p the working directory. Closing the returned path restores the
// previous one.
func (p *Path) Cd() (*Path, error) {
	pp, err := p.provider()
	if err != nil {
		return nil, err
	}
	return changeDir(pp, p)
}

// InDir runs fn inside p and restores the working directory afterwards.
func (p *Path) InDir(fn func(dir *Path) error) error {
	if p.session == nil {
		return fmt.Errorf("path %s: %w", p, ErrNoSession)
	}
	return p.session.InDir(p, fn)
}

// RemoveOnExit marks p for removal when it is closed and returns p.
func (p *Path) RemoveOnExit() *Path {
	p.removeOnExit = true
	return p
}

// Close restores the working directory recorded by Cd and removes the path
// if it was marked with RemoveOnExit. Relative paths are never removed.
// Close may be called more than once.
func (p *Path) Close() error {
	if p.restoreCwd == nil && !p.removeOnExit {
		return nil
	}
	pp, err := p.provider()
	if err != nil {
		return err
	}

	var errs []error
	if p.restoreCwd != nil {
		if _, err := changeDir(pp, p.restoreCwd); err != nil {
			errs = append(errs, fmt.Errorf("restore working directory %s: %w", p.restoreCwd, err))
		}
	}
	if p.removeOnExit && p.IsAbsolute() {
		if err := removePath(pp, p); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		} else {
			p.removeOnExit = false
		}
	}
	return errors.Join(errs...)
}

func removePath(pp PathProvider, p *Path) error {
	isDir, err := pp.IsDir(p)
	if err != nil {
		return err
	}
	if isDir {
		return pp.Rmdir(p)
	}
	return pp.Unlink(p, true)
}

// changeDir makes target (made absolute against the current directory) the
// working directory and returns it with the previous directory recorded.
func changeDir(pp PathProvider, target *Path) (*Path, error) {
	prev, err := pp.Cwd()
	if err != nil {
		return nil, fmt.Errorf("cd %s: %w", target, err)
	}
	abs := pp.Attach(target)
	if !abs.IsAbsolute() {
		abs = prev.JoinPath(abs)
	}
	if err := pp.Chdir(abs); err != nil {
		return nil, fmt.Errorf("cd %s: %w", abs, err)
	}
	abs.restoreCwd = prev
	return abs, nil
}

var pathDiagnosis = []string{"exists", "is_dir", "is_file", "is_symlink", "owner", "group"}

func (p *Path) DiagnosisMethods() []string { return slices.Clone(pathDiagnosis) }

func (p *Path) DiagnosisFunc(name string) (func() (any, error), bool) {
	wrapBool := func(fn func() (bool, error)) func() (any, error) {
		return func() (any, error) { return fn() }
	}
	wrapString := func(fn func() (string, error)) func() (any, error) {
		return func() (any, error) { return fn() }
	}
	switch name {
	case "exists":
		return wrapBool(p.Exists), true
	case "is_dir":
		return wrapBool(p.IsDir), true
	case "is_file":
		return wrapBool(p.IsFile), true
	case "is_symlink":
		return wrapBool(p.IsSymlink), true
	case "owner":
		return wrapString(p.Owner), true
	case "group":
		return wrapString(p.Group), true
	}
	return nil, false
}
