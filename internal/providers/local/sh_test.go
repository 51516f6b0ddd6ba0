package local

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/xal/internal/core"
)

func TestSh_HelloWorld(t *testing.T) {
	s, _ := newSession(t)

	res, err := core.NewCommand("echo -n 'Hello world!'").RunIn(s)
	require.NoError(t, err)
	assert.Equal(t, "Hello world!", res.Stdout)
	assert.Equal(t, 0, res.ReturnCode)
	assert.True(t, res.Succeeded())
}

func TestSh_ExitStatusIsNotAnError(t *testing.T) {
	s, _ := newSession(t)

	res, err := s.Run("exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ReturnCode)
	assert.False(t, res.Succeeded())
}

func TestSh_CommandNotFound(t *testing.T) {
	s, sh := newSession(t)

	_, err := s.Run("xal-definitely-not-a-command --flag")
	assert.ErrorIs(t, err, core.ErrCommandNotFound)

	sh.Shell = false
	_, err = s.Run("xal-definitely-not-a-command --flag")
	var notFound *core.CommandNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"xal-definitely-not-a-command", "--flag"}, notFound.Argv)
}

func TestSh_WithoutShell(t *testing.T) {
	s, sh := newSession(t)
	sh.Shell = false

	res, err := s.Run("printf '%s|' 'a b' $HOME")
	require.NoError(t, err)
	assert.Equal(t, "a b|$HOME|", res.Stdout, "no shell expansion without a shell")

	res, err = s.Run("printf", "%s", "x y")
	require.NoError(t, err)
	assert.Equal(t, "x y", res.Stdout)

	_, err = s.Run("echo 'unterminated")
	assert.Error(t, err)
}

func TestSh_MultiTokenIsQuoted(t *testing.T) {
	s, _ := newSession(t)

	res, err := s.Run("printf", "%s|", "a b", "$HOME")
	require.NoError(t, err)
	assert.Equal(t, "a b|$HOME|", res.Stdout)
}

func TestSh_PipeEqualsManualChaining(t *testing.T) {
	for _, shell := range []bool{true, false} {
		_, sh := newSession(t)
		sh.Shell = shell

		a := sh.Command("printf", "b\\na\\nc\\n")
		b := sh.Command("sort")

		piped, err := a.Pipe(b).Run()
		require.NoError(t, err)

		first, err := a.Run()
		require.NoError(t, err)
		second := sh.Command("sort")
		second.Stdin = strings.NewReader(first.Stdout)
		manual, err := second.Run()
		require.NoError(t, err)

		assert.Equal(t, manual.Stdout, piped.Stdout)
		assert.Equal(t, "a\nb\nc\n", piped.Stdout)
	}
}

func TestSh_Redirects(t *testing.T) {
	s, _ := newSession(t)

	var out, errOut bytes.Buffer
	c := core.NewCommand("cat; echo warn >&2")
	c.Stdin = strings.NewReader("from stdin")
	c.Stdout = &out
	c.Stderr = &errOut

	_, err := c.RunIn(s)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", out.String())
	assert.Equal(t, "warn\n", errOut.String())
}

func TestSh_CommandExists(t *testing.T) {
	s, sh := newSession(t)

	ok, err := sh.Command("sh -c true").Exists()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sh.Command("xal-definitely-not-a-command").Exists()
	require.NoError(t, err)
	assert.False(t, ok)

	diag, err := core.Diagnose(core.NewCommand("sh").Attach(s))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"exists": true}, diag)
}
