package local

import (
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/xal/internal/core"
)

func names(paths []*core.Path) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Name())
	}
	return out
}

func TestPath_Queries(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)

	file := dir.Join("file.txt")
	require.NoError(t, file.WriteText("hello"))
	link := dir.Join("link")
	require.NoError(t, link.SymlinkTo(file))

	tests := []struct {
		name  string
		path  *core.Path
		query func(*core.Path) (bool, error)
		want  bool
	}{
		{"dir exists", dir, (*core.Path).Exists, true},
		{"dir is dir", dir, (*core.Path).IsDir, true},
		{"dir is not file", dir, (*core.Path).IsFile, false},
		{"file is file", file, (*core.Path).IsFile, true},
		{"file is not symlink", file, (*core.Path).IsSymlink, false},
		{"link is symlink", link, (*core.Path).IsSymlink, true},
		{"link follows to file", link, (*core.Path).IsFile, true},
		{"missing does not exist", dir.Join("missing"), (*core.Path).Exists, false},
		{"missing is not dir", dir.Join("missing"), (*core.Path).IsDir, false},
		{"below a file does not exist", file.Join("child"), (*core.Path).Exists, false},
		{"file is not fifo", file, (*core.Path).IsFifo, false},
		{"file is not socket", file, (*core.Path).IsSocket, false},
		{"file is not block device", file, (*core.Path).IsBlockDevice, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPath_CharDevice(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no /dev/null")
	}
	s, _ := newSession(t)
	pp, err := s.Path()
	require.NoError(t, err)

	ok, err := pp.Path("/dev/null").IsCharDevice()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPath_Socket(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("socket path length limits")
	}
	s, _ := newSession(t)
	dir := tempDir(t, s)

	sock := dir.Join("s.sock")
	l, err := net.Listen("unix", sock.String())
	require.NoError(t, err)
	defer l.Close()

	ok, err := sock.IsSocket()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPath_ReadWriteText(t *testing.T) {
	s, _ := newSession(t)
	f := tempDir(t, s).Join("notes.txt")

	require.NoError(t, f.WriteText("first"))
	require.NoError(t, f.WriteText("second"))
	got, err := f.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	fi, err := f.Stat()
	require.NoError(t, err)
	assert.EqualValues(t, len("second"), fi.Size())
}

func TestPath_Chmod(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix modes")
	}
	s, _ := newSession(t)
	dir := tempDir(t, s)
	f := dir.Join("f")
	require.NoError(t, f.Touch(0o600, false))

	require.NoError(t, f.Chmod(0o640))
	fi, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), fi.Mode().Perm())

	require.NoError(t, f.Lchmod(0o600))
	fi, err = f.Lstat()
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), fi.Mode().Perm())

	link := dir.Join("l")
	require.NoError(t, link.SymlinkTo(f))
	assert.ErrorIs(t, link.Lchmod(0o644), core.ErrNotSupported)
}

func TestPath_OwnerGroup(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix ownership")
	}
	s, _ := newSession(t)
	dir := tempDir(t, s)

	owner, err := dir.Owner()
	require.NoError(t, err)
	assert.NotEmpty(t, owner)
	group, err := dir.Group()
	require.NoError(t, err)
	assert.NotEmpty(t, group)

	_, err = dir.Join("missing").Owner()
	assert.ErrorIs(t, err, core.ErrPathDoesNotExist)
}

func TestPath_GlobAndIterdir(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)

	for _, name := range []string{"b.go", "a.go", "c.txt", "sub/d.go", "sub/deep/e.go"} {
		f := dir.Join(name)
		require.NoError(t, f.Parent().Mkdir(core.MkdirOptions{Parents: true, ExistOK: true}))
		require.NoError(t, f.Touch(0, false))
	}

	got, err := dir.Glob("*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, names(got))
	for _, p := range got {
		assert.Same(t, s, p.Session())
	}

	got, err = dir.Glob("*/*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"d.go"}, names(got))

	got, err = dir.Rglob("*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "d.go", "e.go"}, names(got))

	got, err = dir.Rglob("deep/*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"e.go"}, names(got))

	got, err = dir.Iterdir()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "c.txt", "sub"}, names(got))
	assert.True(t, got[0].Equal(dir.Join("a.go")))

	_, err = dir.Glob("")
	assert.ErrorIs(t, err, core.ErrValueMismatch)
	_, err = dir.Glob("/etc/*")
	assert.ErrorIs(t, err, core.ErrValueMismatch)
}

func TestPath_Mkdir(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)

	nested := dir.Join("a", "b", "c")
	assert.ErrorIs(t, nested.Mkdir(core.MkdirOptions{}), fs.ErrNotExist)
	require.NoError(t, nested.Mkdir(core.MkdirOptions{Parents: true}))
	assert.ErrorIs(t, nested.Mkdir(core.MkdirOptions{Parents: true}), fs.ErrExist)
	assert.NoError(t, nested.Mkdir(core.MkdirOptions{Parents: true, ExistOK: true}))

	single := dir.Join("single")
	require.NoError(t, single.Mkdir(core.MkdirOptions{}))
	assert.ErrorIs(t, single.Mkdir(core.MkdirOptions{}), fs.ErrExist)
	assert.NoError(t, single.Mkdir(core.MkdirOptions{ExistOK: true}))

	file := dir.Join("file")
	require.NoError(t, file.Touch(0, false))
	assert.ErrorIs(t, file.Mkdir(core.MkdirOptions{ExistOK: true}), fs.ErrExist)
}

func TestPath_RemoveOperations(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)

	sub := dir.Join("sub")
	require.NoError(t, sub.Mkdir(core.MkdirOptions{}))
	file := dir.Join("file")
	require.NoError(t, file.Touch(0, false))

	assert.Error(t, file.Rmdir())
	assert.Error(t, sub.Unlink(false))

	require.NoError(t, sub.Rmdir())
	require.NoError(t, file.Unlink(false))
	assert.ErrorIs(t, file.Unlink(false), core.ErrPathDoesNotExist)
	assert.NoError(t, file.Unlink(true))
}

func TestPath_Touch(t *testing.T) {
	s, _ := newSession(t)
	f := tempDir(t, s).Join("touched")

	require.NoError(t, f.Touch(0, false))
	assert.ErrorIs(t, f.Touch(0, false), fs.ErrExist)
	assert.NoError(t, f.Touch(0, true))

	ok, err := f.IsFile()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPath_RenameReplace(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)

	src := dir.Join("src")
	require.NoError(t, src.WriteText("payload"))
	dst := dir.Join("dst")

	require.NoError(t, src.Rename(dst))
	assert.True(t, src.Equal(dst), "renamed path takes the target value")
	got, err := src.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	other := dir.Join("other")
	require.NoError(t, other.WriteText("old"))
	require.NoError(t, src.Replace(other))
	got, err = other.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	ok, err := dst.Exists()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPath_Resolve(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)

	target := dir.Join("target")
	require.NoError(t, target.Mkdir(core.MkdirOptions{}))
	link := dir.Join("link")
	require.NoError(t, link.SymlinkTo(target))

	got, err := link.Join("missing", "leaf").Resolve()
	require.NoError(t, err)
	assert.True(t, got.Equal(target.Join("missing", "leaf")), got.String())

	t.Chdir(dir.String())
	pp, err := s.Path()
	require.NoError(t, err)
	got, err = pp.Path("link").Resolve()
	require.NoError(t, err)
	assert.True(t, got.Equal(target))
}

func TestPath_CwdHome(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)
	t.Chdir(dir.String())

	cwd, err := s.Cwd()
	require.NoError(t, err)
	assert.True(t, cwd.Equal(dir))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	pp, err := s.Path()
	require.NoError(t, err)
	h, err := pp.Home()
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(home), h.String())
}

func TestPath_CdRestores(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)
	t.Chdir(dir.String())

	sub := dir.Join("sub")
	require.NoError(t, sub.Mkdir(core.MkdirOptions{}))

	scope, err := s.Cd("sub")
	require.NoError(t, err)
	assert.True(t, scope.Equal(sub))

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, sub.String(), wd)

	require.NoError(t, os.Chdir(os.TempDir()))
	require.NoError(t, scope.Close())
	wd, err = os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dir.String(), wd)
}

func TestPath_InDirRemoveOnExit(t *testing.T) {
	s, _ := newSession(t)
	dir := tempDir(t, s)
	t.Chdir(dir.String())

	work := dir.Join("work")
	require.NoError(t, work.Mkdir(core.MkdirOptions{}))

	err := work.InDir(func(d *core.Path) error {
		res, err := s.Run("pwd -P")
		require.NoError(t, err)
		assert.Equal(t, work.String()+"\n", res.Stdout)
		return nil
	})
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dir.String(), wd)

	tmp := dir.Join("scratch")
	require.NoError(t, tmp.WriteText("x"))
	require.NoError(t, tmp.RemoveOnExit().Close())
	ok, err := tmp.Exists()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPath_Flavour(t *testing.T) {
	s, _ := newSession(t)
	pp, err := s.Path()
	require.NoError(t, err)

	want := core.Posix
	if runtime.GOOS == "windows" {
		want = core.Windows
	}
	assert.Equal(t, want, pp.Path("x").Pure().Flavour())
}
