package local

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/xal/internal/core"
)

func TestSys(t *testing.T) {
	s, _ := newSession(t)
	sys, err := s.Sys()
	require.NoError(t, err)

	assert.Equal(t, runtime.GOOS, sys.Platform())
	assert.Equal(t, runtime.GOOS != "windows", sys.IsPosix())

	u, err := sys.Uname()
	require.NoError(t, err)
	assert.NotEmpty(t, u.Sysname)
	assert.NotEmpty(t, u.Nodename)
}

func TestProviders_SupportLocalOnly(t *testing.T) {
	remote := core.NewSession(context.Background(), core.Info{Host: "example.org", Port: 22})
	local := core.NewSession(context.Background(), core.Info{Local: true})

	providers := []core.Supporter{NewClient(nil), NewSys(), NewPath(), NewSh(nil)}
	for _, p := range providers {
		assert.True(t, p.Supports(local))
		assert.False(t, p.Supports(remote))
	}
}

func TestClient(t *testing.T) {
	s, _ := newSession(t)
	client, err := s.Client()
	require.NoError(t, err)

	require.NoError(t, client.Connect())
	osName, err := client.Transport().GetOS(s.Context())
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS, osName)
}
