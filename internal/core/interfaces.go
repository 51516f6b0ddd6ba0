package core

import (
	"io"
	"io/fs"
)

// ClientProvider owns the connection to the backend.
type ClientProvider interface {
	Provider
	Connect() error
	Close() error
	Transport() Transport
}

// SysProvider reports facts about the target operating system.
type SysProvider interface {
	Provider
	// OSFamily is "posix" or "nt".
	OSFamily() string
	IsPosix() bool
	// Platform is the lower-cased kernel name ("linux", "darwin", "windows").
	Platform() string
	Uname() (Uname, error)
}

// Uname mirrors the fields of uname(2).
type Uname struct {
	Sysname  string
	Nodename string
	Release  string
	Version  string
	Machine  string
}

// File is an open file on a backend.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// MkdirOptions controls Mkdir. A zero Mode means 0o777.
type MkdirOptions struct {
	Mode    fs.FileMode
	Parents bool
	ExistOK bool
}

// PathFactory builds concrete paths bound to the provider's session.
type PathFactory interface {
	Path(parts ...string) *Path
	Attach(p *Path) *Path
}

// PathProvider performs filesystem operations for paths. Every method takes
// the subject path as its first argument.
type PathProvider interface {
	Provider
	PathFactory

	Cwd() (*Path, error)
	Home() (*Path, error)
	// Chdir changes the backend working directory without any bookkeeping.
	Chdir(p *Path) error

	Exists(p *Path) (bool, error)
	IsDir(p *Path) (bool, error)
	IsFile(p *Path) (bool, error)
	IsSymlink(p *Path) (bool, error)
	IsSocket(p *Path) (bool, error)
	IsFifo(p *Path) (bool, error)
	IsBlockDevice(p *Path) (bool, error)
	IsCharDevice(p *Path) (bool, error)

	Stat(p *Path) (fs.FileInfo, error)
	Lstat(p *Path) (fs.FileInfo, error)
	Chmod(p *Path, mode fs.FileMode) error
	Lchmod(p *Path, mode fs.FileMode) error
	Owner(p *Path) (string, error)
	Group(p *Path) (string, error)

	Glob(p *Path, pattern string) ([]*Path, error)
	Rglob(p *Path, pattern string) ([]*Path, error)
	Iterdir(p *Path) ([]*Path, error)

	Mkdir(p *Path, opts MkdirOptions) error
	Rmdir(p *Path) error
	Rename(p, target *Path) error
	Replace(p, target *Path) error
	Resolve(p *Path) (*Path, error)
	SymlinkTo(p, target *Path) error
	Touch(p *Path, mode fs.FileMode, existOK bool) error
	Unlink(p *Path, missingOK bool) error
	Open(p *Path, flag int, perm fs.FileMode) (File, error)
}

// CommandFactory builds commands bound to the provider's session.
type CommandFactory interface {
	Command(args ...string) *Command
}

// ShProvider runs commands.
type ShProvider interface {
	Provider
	CommandFactory
	Run(c *Command) (*Result, error)
}

// PathBase implements PathFactory on top of BaseProvider.
type PathBase struct {
	BaseProvider
}

func NewPathBase(name string) PathBase {
	return PathBase{BaseProvider: NewBaseProvider(name)}
}

func (b *PathBase) Path(parts ...string) *Path {
	return newPath(b.Session(), parts)
}

// Attach returns a path with p's parts bound to this provider's session.
func (b *PathBase) Attach(p *Path) *Path {
	if p == nil {
		return newPath(b.Session(), nil)
	}
	return newPath(b.Session(), p.rawParts())
}

// ShBase implements CommandFactory on top of BaseProvider.
type ShBase struct {
	BaseProvider
}

func NewShBase(name string) ShBase {
	return ShBase{BaseProvider: NewBaseProvider(name)}
}

func (b *ShBase) Command(args ...string) *Command {
	c := NewCommand(args...)
	c.session = b.Session()
	return c
}
