package remote

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/sftp"

	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/transport"
)

// remoteUmask is applied to modes of files and directories created over
// SFTP, which does not know the login shell's umask.
const remoteUmask fs.FileMode = 0o022

// Path runs filesystem operations over SFTP. Relative paths are taken
// against the working directory tracked by the transport.
type Path struct {
	core.PathBase
	client *Client
}

func NewPath(c *Client) *Path {
	return &Path{PathBase: core.NewPathBase(Name), client: c}
}

func (p *Path) Supports(s *core.Session) bool { return supportsRemote(s) }

func (p *Path) conn() (*transport.SSHTransport, *sftp.Client, error) {
	conn, err := p.client.SSH()
	if err != nil {
		return nil, nil, err
	}
	fsc, err := conn.SFTP()
	if err != nil {
		return nil, nil, err
	}
	return conn, fsc, nil
}

// abs returns the remote absolute form of x.
func (p *Path) abs(conn *transport.SSHTransport, x *core.Path) (string, error) {
	name := x.AsPosix()
	if x.IsAbsolute() {
		return name, nil
	}
	cwd, err := conn.Cwd()
	if err != nil {
		return "", err
	}
	return path.Join(cwd, name), nil
}

// target bundles the sftp client and the absolute name of x.
func (p *Path) target(x *core.Path) (*sftp.Client, string, error) {
	conn, fsc, err := p.conn()
	if err != nil {
		return nil, "", err
	}
	name, err := p.abs(conn, x)
	if err != nil {
		return nil, "", err
	}
	return fsc, name, nil
}

// shell runs line remotely and returns its trimmed stdout.
func (p *Path) shell(line string) (string, error) {
	conn, err := p.client.SSH()
	if err != nil {
		return "", err
	}
	res, err := conn.Execute(p.client.ctx(), line, nil)
	if err != nil {
		return "", err
	}
	if !res.Succeeded() {
		return "", fmt.Errorf("%s: exit %d: %s", line, res.ReturnCode, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimRight(res.Stdout, "\n"), nil
}

func (p *Path) Cwd() (*core.Path, error) {
	conn, err := p.client.SSH()
	if err != nil {
		return nil, err
	}
	cwd, err := conn.Cwd()
	if err != nil {
		return nil, err
	}
	return p.Path(cwd), nil
}

func (p *Path) Home() (*core.Path, error) {
	home, err := p.shell(`printf '%s\n' "$HOME"`)
	if err != nil {
		return nil, fmt.Errorf("remote home: %w", err)
	}
	return p.Path(home), nil
}

// Chdir moves the tracked working directory. The target must be a directory.
func (p *Path) Chdir(x *core.Path) error {
	conn, fsc, err := p.conn()
	if err != nil {
		return err
	}
	name, err := p.abs(conn, x)
	if err != nil {
		return err
	}
	fi, err := fsc.Stat(name)
	if err != nil {
		return &fs.PathError{Op: "chdir", Path: name, Err: err}
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "chdir", Path: name, Err: syscall.ENOTDIR}
	}
	conn.SetCwd(name)
	return nil
}

func (p *Path) stat(x *core.Path, follow bool) (fs.FileInfo, error) {
	fsc, name, err := p.target(x)
	if err != nil {
		return nil, err
	}
	var fi fs.FileInfo
	if follow {
		fi, err = fsc.Stat(name)
	} else {
		fi, err = fsc.Lstat(name)
	}
	if err != nil {
		op := "stat"
		if !follow {
			op = "lstat"
		}
		return nil, &fs.PathError{Op: op, Path: name, Err: err}
	}
	return fi, nil
}

func (p *Path) modeIs(x *core.Path, follow bool, match func(fs.FileMode) bool) (bool, error) {
	fi, err := p.stat(x, follow)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	return match(fi.Mode()), nil
}

func (p *Path) Exists(x *core.Path) (bool, error) {
	return p.modeIs(x, true, func(fs.FileMode) bool { return true })
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

func (p *Path) Stat(x *core.Path) (fs.FileInfo, error) { return p.stat(x, true) }

func (p *Path) Lstat(x *core.Path) (fs.FileInfo, error) { return p.stat(x, false) }

func (p *Path) Chmod(x *core.Path, mode fs.FileMode) error {
	fsc, name, err := p.target(x)
	if err != nil {
		return err
	}
	if err := fsc.Chmod(name, mode); err != nil {
		return &fs.PathError{Op: "chmod", Path: name, Err: err}
	}
	return nil
}

// Lchmod refuses symlinks, like the local provider.
func (p *Path) Lchmod(x *core.Path, mode fs.FileMode) error {
	fi, err := p.stat(x, false)
	if err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		return fmt.Errorf("lchmod %s: %w", x, core.ErrNotSupported)
	}
	return p.Chmod(x, mode)
}

// ownerLine prints the owner (field "U") or group ("G") of a file, with the
// GNU stat flags first and the BSD ones as a fallback.
func ownerLine(field, name string) string {
	q := core.Quote(name)
	return fmt.Sprintf("stat -L -c %%%s -- %s 2>/dev/null || stat -L -f %%S%s -- %s", field, q, strings.ToLower(field), q)
}

func (p *Path) ownership(x *core.Path, field string) (string, error) {
	if _, err := p.stat(x, true); err != nil {
		return "", err
	}
	_, name, err := p.target(x)
	if err != nil {
		return "", err
	}
	return p.shell(ownerLine(field, name))
}

func (p *Path) Owner(x *core.Path) (string, error) { return p.ownership(x, "U") }

func (p *Path) Group(x *core.Path) (string, error) { return p.ownership(x, "G") }

func checkPattern(pattern string) error {
	if pattern == "" || path.IsAbs(pattern) {
		return fmt.Errorf("pattern %q must be relative and non-empty: %w", pattern, core.ErrValueMismatch)
	}
	return nil
}

// under returns name relative to dir.
func under(dir, name string) string {
	return strings.TrimPrefix(name, strings.TrimSuffix(dir, "/")+"/")
}

// Glob matches pattern relative to x. Results are sorted and keep x as
// their prefix.
func (p *Path) Glob(x *core.Path, pattern string) ([]*core.Path, error) {
	if err := checkPattern(pattern); err != nil {
		return nil, err
	}
	fsc, dir, err := p.target(x)
	if err != nil {
		return nil, err
	}
	matches, err := fsc.Glob(path.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	slices.Sort(matches)

	out := make([]*core.Path, 0, len(matches))
	for _, m := range matches {
		out = append(out, x.Join(under(dir, m)))
	}
	return out, nil
}

// Rglob matches pattern against the trailing components of every entry
// below x, at any depth.
func (p *Path) Rglob(x *core.Path, pattern string) ([]*core.Path, error) {
	if err := checkPattern(pattern); err != nil {
		return nil, err
	}
	fsc, root, err := p.target(x)
	if err != nil {
		return nil, err
	}

	var matches []string
	walker := fsc.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, fmt.Errorf("rglob %s %q: %w", x, pattern, err)
		}
		name := walker.Path()
		if name == root {
			continue
		}
		rel := under(root, name)
		ok, err := core.NewPurePath(core.Posix, rel).Match(pattern)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, rel)
		}
	}
	slices.Sort(matches)

	out := make([]*core.Path, 0, len(matches))
	for _, rel := range matches {
		out = append(out, x.Join(rel))
	}
	return out, nil
}

// Iterdir lists the children of x in name order.
func (p *Path) Iterdir(x *core.Path) ([]*core.Path, error) {
	fsc, dir, err := p.target(x)
	if err != nil {
		return nil, err
	}
	entries, err := fsc.ReadDir(dir)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)

	out := make([]*core.Path, 0, len(names))
	for _, n := range names {
		out = append(out, x.Join(n))
	}
	return out, nil
}

func (p *Path) Mkdir(x *core.Path, opts core.MkdirOptions) error {
	fsc, name, err := p.target(x)
	if err != nil {
		return err
	}

	fi, statErr := fsc.Lstat(name)
	if statErr == nil {
		if opts.ExistOK && fi.IsDir() {
			return nil
		}
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}

	if opts.Parents {
		err = fsc.MkdirAll(name)
	} else {
		err = fsc.Mkdir(name)
	}
	if err != nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: err}
	}
	if opts.Mode != 0 {
		return p.Chmod(x, opts.Mode&^remoteUmask)
	}
	return nil
}

func (p *Path) Rmdir(x *core.Path) error {
	fsc, name, err := p.target(x)
	if err != nil {
		return err
	}
	fi, err := fsc.Lstat(name)
	if err != nil {
		return &fs.PathError{Op: "rmdir", Path: name, Err: err}
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "rmdir", Path: name, Err: syscall.ENOTDIR}
	}
	if err := fsc.RemoveDirectory(name); err != nil {
		return &fs.PathError{Op: "rmdir", Path: name, Err: err}
	}
	return nil
}

func (p *Path) rename(x, target *core.Path, overwrite bool) error {
	conn, fsc, err := p.conn()
	if err != nil {
		return err
	}
	from, err := p.abs(conn, x)
	if err != nil {
		return err
	}
	to, err := p.abs(conn, target)
	if err != nil {
		return err
	}
	if overwrite {
		err = fsc.PosixRename(from, to)
	} else {
		err = fsc.Rename(from, to)
	}
	if err != nil {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: err}
	}
	return nil
}

// Rename fails if target exists, as SFTP rename does.
func (p *Path) Rename(x, target *core.Path) error { return p.rename(x, target, false) }

func (p *Path) Replace(x, target *core.Path) error { return p.rename(x, target, true) }

// Resolve canonicalizes x in the remote shell. Missing trailing components
// are kept.
func (p *Path) Resolve(x *core.Path) (*core.Path, error) {
	_, name, err := p.target(x)
	if err != nil {
		return nil, err
	}
	q := core.Quote(name)
	resolved, err := p.shell("readlink -m -- " + q + " 2>/dev/null || readlink -f -- " + q)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", x, err)
	}
	return p.Path(resolved), nil
}

// SymlinkTo creates x pointing at target. A relative target is stored as is.
func (p *Path) SymlinkTo(x, target *core.Path) error {
	fsc, name, err := p.target(x)
	if err != nil {
		return err
	}
	if err := fsc.Symlink(target.AsPosix(), name); err != nil {
		return &os.LinkError{Op: "symlink", Old: target.AsPosix(), New: name, Err: err}
	}
	return nil
}

func (p *Path) Touch(x *core.Path, mode fs.FileMode, existOK bool) error {
	fsc, name, err := p.target(x)
	if err != nil {
		return err
	}
	if _, err := fsc.Stat(name); err == nil {
		if !existOK {
			return &fs.PathError{Op: "touch", Path: name, Err: fs.ErrExist}
		}
		now := time.Now()
		return fsc.Chtimes(name, now, now)
	}

	f, err := fsc.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
	if err != nil {
		return &fs.PathError{Op: "touch", Path: name, Err: err}
	}
	if mode != 0 {
		err = f.Chmod(mode &^ remoteUmask)
	}
	return errors.Join(err, f.Close())
}

func (p *Path) Unlink(x *core.Path, missingOK bool) error {
	fsc, name, err := p.target(x)
	if err != nil {
		return err
	}
	fi, err := fsc.Lstat(name)
	switch {
	case err != nil && missingOK && errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return &fs.PathError{Op: "unlink", Path: name, Err: err}
	case fi.IsDir():
		return &fs.PathError{Op: "unlink", Path: name, Err: syscall.EISDIR}
	}
	if err := fsc.Remove(name); err != nil {
		return &fs.PathError{Op: "unlink", Path: name, Err: err}
	}
	return nil
}

// Open opens x with os.OpenFile flags. A file created by the call gets perm
// minus the remote umask.
func (p *Path) Open(x *core.Path, flag int, perm fs.FileMode) (core.File, error) {
	fsc, name, err := p.target(x)
	if err != nil {
		return nil, err
	}
	created := false
	if flag&os.O_CREATE != 0 {
		_, statErr := fsc.Lstat(name)
		created = errors.Is(statErr, fs.ErrNotExist)
	}

	f, err := fsc.OpenFile(name, flag)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if created && perm != 0 {
		if err := f.Chmod(perm &^ remoteUmask); err != nil {
			f.Close()
			return nil, &fs.PathError{Op: "chmod", Path: name, Err: err}
		}
	}
	return f, nil
}
