package fleet

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/xal/internal/config"
	"github.com/melih-ucgun/xal/internal/inventory"
	"github.com/melih-ucgun/xal/internal/session"
	"github.com/melih-ucgun/xal/internal/sshtest"
	"github.com/melih-ucgun/xal/internal/transport"
)

func localHost(name string) inventory.Host {
	return inventory.Host{Name: name, Address: "localhost", Connection: inventory.ConnLocal}
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	m := NewManager(2, session.WithSSHOptions(transport.SSHOptions{ConfigPath: "none"}))
	m.Quiet = true
	return m
}

func TestNewManager(t *testing.T) {
	assert.Equal(t, 1, NewManager(0).Concurrency)
	assert.Equal(t, 4, NewManager(4).Concurrency)
}

func TestManager_Run(t *testing.T) {
	m := newManager(t)
	hosts := []inventory.Host{localHost("a"), localHost("b"), localHost("c")}

	outcomes := m.Run(context.Background(), hosts, "echo -n hi", "")
	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.Equal(t, hosts[i].Name, o.Host.Name)
		require.NoError(t, o.Err)
		require.NotNil(t, o.Result)
		assert.Equal(t, "hi", o.Result.Stdout)
		assert.Equal(t, runtime.GOOS, o.Facts.OS)
		assert.False(t, o.Failed())
	}
	assert.Zero(t, Failures(outcomes))
}

func TestManager_RunWhen(t *testing.T) {
	m := newManager(t)
	hosts := []inventory.Host{localHost("a")}

	outcomes := m.Run(context.Background(), hosts, "echo -n hi", `OS == "plan9"`)
	assert.True(t, outcomes[0].Skipped)
	assert.Nil(t, outcomes[0].Result)
	assert.False(t, outcomes[0].Failed())

	outcomes = m.Run(context.Background(), hosts, "echo -n hi", `OS == "`+runtime.GOOS+`"`)
	assert.False(t, outcomes[0].Skipped)
	assert.Equal(t, "hi", outcomes[0].Result.Stdout)

	outcomes = m.Run(context.Background(), hosts, "true", "OS +")
	assert.ErrorContains(t, outcomes[0].Err, "invalid condition")
}

func TestManager_RunExitCode(t *testing.T) {
	m := newManager(t)
	outcomes := m.Run(context.Background(), []inventory.Host{localHost("a")}, "exit 4", "")
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, 4, outcomes[0].Result.ReturnCode)
	assert.True(t, outcomes[0].Failed())
	assert.Equal(t, 1, Failures(outcomes))
}

func TestManager_Remote(t *testing.T) {
	m := newManager(t)
	t.Setenv("SSH_AUTH_SOCK", "")
	srv := sshtest.Start(t)

	good := inventory.Host{Name: "good", Address: srv.Host, Port: srv.Port, User: "test", Password: "dummy", Insecure: true, Connection: inventory.ConnSSH}
	bad := inventory.Host{Name: "bad", Address: "127.0.0.1", Insecure: true, Connection: inventory.ConnSSH}

	outcomes := m.Run(context.Background(), []inventory.Host{good, bad, localHost("me")}, "echo -n ok", "")
	require.Len(t, outcomes, 3)

	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, "ok", outcomes[0].Result.Stdout)
	assert.Equal(t, runtime.GOOS, outcomes[0].Facts.OS)
	assert.NotZero(t, srv.Execs())

	assert.ErrorIs(t, outcomes[1].Err, transport.ErrNoAuthMethod)
	assert.Nil(t, outcomes[1].Facts)
	assert.True(t, outcomes[1].Failed())

	require.NoError(t, outcomes[2].Err)
	assert.Equal(t, 1, Failures(outcomes))
}

func TestManager_Facts(t *testing.T) {
	m := newManager(t)
	outcomes := m.Facts(context.Background(), []inventory.Host{localHost("a")})
	require.NoError(t, outcomes[0].Err)
	require.NotNil(t, outcomes[0].Facts)
	assert.Equal(t, runtime.GOOS, outcomes[0].Facts.OS)
	assert.Nil(t, outcomes[0].Result)
}

func TestManager_Cancelled(t *testing.T) {
	m := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := m.Run(ctx, []inventory.Host{localHost("a")}, "true", "")
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
}

func TestManager_RunTasks(t *testing.T) {
	m := newManager(t)
	m.Vars = map[string]string{"name": "global", "greeting": "hello"}

	host := localHost("a")
	host.Vars = map[string]string{"name": "a"}

	layers, err := config.SortTasks([]config.Task{
		{ID: "greet", Run: "echo -n {{ .Vars.greeting }} {{ .Vars.name }} on {{ .Host.Name }}"},
		{ID: "never", Run: "echo no", When: `OS == "plan9"`},
		{ID: "fail", Run: "exit 2", DependsOn: []string{"greet"}},
		{ID: "after", Run: "echo after", DependsOn: []string{"fail"}},
	})
	require.NoError(t, err)

	outcomes := m.RunTasks(context.Background(), []inventory.Host{host}, layers)
	o := outcomes[0]
	require.NoError(t, o.Err)
	require.Len(t, o.Tasks, 3)

	assert.Equal(t, "greet", o.Tasks[0].ID)
	assert.Equal(t, "hello a on a", o.Tasks[0].Result.Stdout)
	assert.Equal(t, "never", o.Tasks[1].ID)
	assert.True(t, o.Tasks[1].Skipped)
	assert.Equal(t, "fail", o.Tasks[2].ID)
	assert.Equal(t, 2, o.Tasks[2].Result.ReturnCode)
	assert.True(t, o.Failed())
}

func TestManager_RunTasksTemplateError(t *testing.T) {
	m := newManager(t)
	layers := [][]config.Task{{{ID: "bad", Run: "echo {{ .Vars.missing }}"}}}

	outcomes := m.RunTasks(context.Background(), []inventory.Host{localHost("a")}, layers)
	assert.ErrorContains(t, outcomes[0].Err, "task bad")
	assert.Empty(t, outcomes[0].Tasks)
}
