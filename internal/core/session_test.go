package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	BaseProvider
	closed int
}

func (c *fakeClient) Connect() error        { return nil }
func (c *fakeClient) Close() error          { c.closed++; return nil }
func (c *fakeClient) Transport() Transport { return nil }

func TestSession_TypedGet(t *testing.T) {
	s := NewSession(context.Background(), Info{Local: true})
	s.Registry().Register(IfaceSh, newStub("wrong-kind", nil))

	_, err := s.Sh()
	assert.ErrorIs(t, err, ErrProviderType)

	p, err := Get[Provider](s, IfaceSh)
	require.NoError(t, err)
	assert.Equal(t, "wrong-kind", p.Name())

	_, err = s.Path()
	assert.ErrorIs(t, err, ErrInterfaceNotRegistered)
}

func TestSession_IDsAreUnique(t *testing.T) {
	a := NewSession(context.Background(), Info{Local: true})
	b := NewSession(context.Background(), Info{Local: true})
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Less(t, a.ID(), b.ID())
	assert.True(t, a.IsLocal())
	assert.Contains(t, a.String(), "local")
}

func TestSession_Close(t *testing.T) {
	s := NewSession(context.Background(), Info{})
	assert.NoError(t, s.Close(), "no client registered")

	client := &fakeClient{BaseProvider: NewBaseProvider("fake")}
	s.Registry().Register(IfaceClient, client)
	require.NoError(t, s.Close())
	assert.Equal(t, 1, client.closed)
}

func TestSession_CdRestores(t *testing.T) {
	s, fp := newFakeSession(true)

	dir, err := s.Cd("/tmp")
	require.NoError(t, err)
	assert.Equal(t, "/tmp", fp.cwd)
	assert.Equal(t, "/tmp", dir.String())

	// The scope remembers its own previous directory, whatever happens inside.
	require.NoError(t, fp.Chdir(NewPath("/")))
	require.NoError(t, dir.Close())
	assert.Equal(t, "/home/user", fp.cwd)

	require.NoError(t, dir.Close(), "close twice")
	assert.Equal(t, "/home/user", fp.cwd)
}

func TestSession_CdRelative(t *testing.T) {
	s, fp := newFakeSession(true)
	fp.dirs["/home/user/src"] = true

	dir, err := s.Cd("src")
	require.NoError(t, err)
	assert.True(t, dir.IsAbsolute())
	assert.Equal(t, "/home/user/src", dir.String())
	require.NoError(t, dir.Close())
	assert.Equal(t, "/home/user", fp.cwd)
}

func TestSession_CdMissing(t *testing.T) {
	s, fp := newFakeSession(true)

	_, err := s.Cd("/nope")
	assert.ErrorIs(t, err, ErrPathDoesNotExist)
	assert.Equal(t, "/home/user", fp.cwd)
}

func TestSession_InDirRestoresOnError(t *testing.T) {
	s, fp := newFakeSession(true)
	boom := errors.New("boom")

	err := s.InDir(NewPath("/tmp"), func(dir *Path) error {
		assert.Equal(t, "/tmp", fp.cwd)
		assert.Same(t, s, dir.Session())
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "/home/user", fp.cwd)
}

func TestSession_Cwd(t *testing.T) {
	s, _ := newFakeSession(true)
	cwd, err := s.Cwd()
	require.NoError(t, err)
	assert.True(t, cwd.Equal(NewPath("/home/user")))
}
