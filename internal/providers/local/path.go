package local

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/melih-ucgun/xal/internal/core"
)

const (
	defaultDirMode  fs.FileMode = 0o777
	defaultFileMode fs.FileMode = 0o666
)

// Path runs filesystem operations with the os package.
type Path struct {
	core.PathBase
}

func NewPath() *Path {
	return &Path{PathBase: core.NewPathBase(Name)}
}

func (p *Path) Supports(s *core.Session) bool { return supportsLocal(s) }

func (p *Path) Cwd() (*core.Path, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}
	return p.Path(wd), nil
}

func (p *Path) Home() (*core.Path, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return p.Path(home), nil
}

func (p *Path) Chdir(x *core.Path) error {
	return os.Chdir(x.String())
}

func (p *Path) Exists(x *core.Path) (bool, error) {
	_, err := os.Stat(x.String())
	return present(err)
}

// present maps a stat error to an existence answer.
func present(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return false, nil
	default:
		return false, err
	}
}

func (p *Path) modeIs(x *core.Path, follow bool, match func(fs.FileMode) bool) (bool, error) {
	stat := os.Stat
	if !follow {
		stat = os.Lstat
	}
	fi, err := stat(x.String())
	if ok, err := present(err); !ok {
		return false, err
	}
	return match(fi.Mode()), nil
}

func (p *Path) IsDir(x *core.Path) (bool, error) {
	return p.modeIs(x, true, fs.FileMode.IsDir)
}

func (p *Path) IsFile(x *core.Path) (bool, error) {
	return p.modeIs(x, true, fs.FileMode.IsRegular)
}

func (p *Path) IsSymlink(x *core.Path) (bool, error) {
	return p.modeIs(x, false, func(m fs.FileMode) bool { return m&fs.ModeSymlink != 0 })
}

func (p *Path) IsSocket(x *core.Path) (bool, error) {
	return p.modeIs(x, true, func(m fs.FileMode) bool { return m&fs.ModeSocket != 0 })
}

func (p *Path) IsFifo(x *core.Path) (bool, error) {
	return p.modeIs(x, true, func(m fs.FileMode) bool { return m&fs.ModeNamedPipe != 0 })
}

func (p *Path) IsBlockDevice(x *core.Path) (bool, error) {
	return p.modeIs(x, true, func(m fs.FileMode) bool {
		return m&fs.ModeDevice != 0 && m&fs.ModeCharDevice == 0
	})
}

func (p *Path) IsCharDevice(x *core.Path) (bool, error) {
	return p.modeIs(x, true, func(m fs.FileMode) bool { return m&fs.ModeCharDevice != 0 })
}

func (p *Path) Stat(x *core.Path) (fs.FileInfo, error) { return os.Stat(x.String()) }

func (p *Path) Lstat(x *core.Path) (fs.FileInfo, error) { return os.Lstat(x.String()) }

func (p *Path) Chmod(x *core.Path, mode fs.FileMode) error {
	return os.Chmod(x.String(), mode)
}

// Lchmod changes the mode without following a final symlink. Link modes
// cannot be changed here, so a symlink subject is refused.
func (p *Path) Lchmod(x *core.Path, mode fs.FileMode) error {
	fi, err := os.Lstat(x.String())
	if err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		return fmt.Errorf("lchmod %s: %w", x, core.ErrNotSupported)
	}
	return os.Chmod(x.String(), mode)
}

func (p *Path) Owner(x *core.Path) (string, error) {
	owner, _, err := ownership(x.String())
	return owner, err
}

func (p *Path) Group(x *core.Path) (string, error) {
	_, group, err := ownership(x.String())
	return group, err
}

// Glob matches pattern relative to x. Results are sorted.
func (p *Path) Glob(x *core.Path, pattern string) ([]*core.Path, error) {
	if err := checkPattern(pattern); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(x.String(), pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	slices.Sort(matches)
	return p.wrap(x, matches), nil
}

// Rglob matches pattern against the trailing components of every entry
// below x, at any depth.
func (p *Path) Rglob(x *core.Path, pattern string) ([]*core.Path, error) {
	if err := checkPattern(pattern); err != nil {
		return nil, err
	}
	root := x.String()
	flavour := x.Pure().Flavour()

	var matches []string
	err := filepath.WalkDir(root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == root {
			return nil
		}
		rel, err := filepath.Rel(root, name)
		if err != nil {
			return err
		}
		ok, err := core.NewPurePath(flavour, rel).Match(pattern)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rglob %s %q: %w", x, pattern, err)
	}
	slices.Sort(matches)
	return p.wrap(x, matches), nil
}

func checkPattern(pattern string) error {
	if pattern == "" || filepath.IsAbs(pattern) {
		return fmt.Errorf("pattern %q must be relative and non-empty: %w", pattern, core.ErrValueMismatch)
	}
	return nil
}

// wrap turns matched names into paths on x's session.
func (p *Path) wrap(x *core.Path, names []string) []*core.Path {
	out := make([]*core.Path, 0, len(names))
	for _, name := range names {
		out = append(out, p.Attach(core.NewPath(name)))
	}
	return out
}

// Iterdir lists the children of x in name order.
func (p *Path) Iterdir(x *core.Path) ([]*core.Path, error) {
	entries, err := os.ReadDir(x.String())
	if err != nil {
		return nil, err
	}
	out := make([]*core.Path, 0, len(entries))
	for _, e := range entries {
		out = append(out, x.Join(e.Name()))
	}
	return out, nil
}

func (p *Path) Mkdir(x *core.Path, opts core.MkdirOptions) error {
	mode := opts.Mode
	if mode == 0 {
		mode = defaultDirMode
	}
	name := x.String()

	if opts.Parents {
		if !opts.ExistOK {
			if _, err := os.Lstat(name); err == nil {
				return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
			}
		}
		return os.MkdirAll(name, mode)
	}

	err := os.Mkdir(name, mode)
	if err != nil && opts.ExistOK && errors.Is(err, fs.ErrExist) {
		if isDir, _ := p.IsDir(x); isDir {
			return nil
		}
	}
	return err
}

func (p *Path) Rmdir(x *core.Path) error {
	name := x.String()
	fi, err := os.Lstat(name)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "rmdir", Path: name, Err: syscall.ENOTDIR}
	}
	return os.Remove(name)
}

func (p *Path) Rename(x, target *core.Path) error {
	return os.Rename(x.String(), target.String())
}

func (p *Path) Replace(x, target *core.Path) error {
	return os.Rename(x.String(), target.String())
}

// Resolve makes x absolute and evaluates symlinks. Components that do not
// exist are appended unresolved.
func (p *Path) Resolve(x *core.Path) (*core.Path, error) {
	abs, err := filepath.Abs(x.String())
	if err != nil {
		return nil, err
	}
	resolved, err := resolveLenient(abs)
	if err != nil {
		return nil, err
	}
	return p.Path(resolved), nil
}

func resolveLenient(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(abs)
	if !errors.Is(err, fs.ErrNotExist) || parent == abs {
		return "", err
	}
	head, err := resolveLenient(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(head, filepath.Base(abs)), nil
}

func (p *Path) SymlinkTo(x, target *core.Path) error {
	return os.Symlink(target.String(), x.String())
}

// Touch creates x or, when it exists and existOK is set, updates its times.
func (p *Path) Touch(x *core.Path, mode fs.FileMode, existOK bool) error {
	name := x.String()
	if existOK {
		now := time.Now()
		err := os.Chtimes(name, now, now)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if mode == 0 {
		mode = defaultFileMode
	}
	flag := os.O_CREATE | os.O_WRONLY
	if !existOK {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(name, flag, mode)
	if err != nil {
		return err
	}
	return f.Close()
}

func (p *Path) Unlink(x *core.Path, missingOK bool) error {
	name := x.String()
	fi, err := os.Lstat(name)
	switch {
	case err != nil && missingOK && errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return err
	case fi.IsDir():
		return &fs.PathError{Op: "unlink", Path: name, Err: syscall.EISDIR}
	}
	return os.Remove(name)
}

func (p *Path) Open(x *core.Path, flag int, perm fs.FileMode) (core.File, error) {
	f, err := os.OpenFile(x.String(), flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}
