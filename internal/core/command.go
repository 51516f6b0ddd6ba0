package core

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Command is a shell command resource. A single argument is a whole command
// line; whether it gets tokenized is up to the shell provider.
type Command struct {
	session *Session

	Args   []string
	Stdin  io.Reader
	Stdout io.Writer // receives a copy of the captured stdout
	Stderr io.Writer // receives a copy of the captured stderr

	pipe bool
}

// NewCommand builds a command not attached to any session.
func NewCommand(args ...string) *Command {
	return &Command{Args: slices.Clone(args)}
}

func (c *Command) Session() *Session { return c.session }

// Attach binds the command to s and returns it.
func (c *Command) Attach(s *Session) *Command {
	c.session = s
	return c
}

// IsPipe reports whether c was built by Pipe. Its Args are then the command
// lines of each stage.
func (c *Command) IsPipe() bool { return c.pipe }

func (c *Command) String() string {
	if c.pipe {
		return strings.Join(c.Args, " | ")
	}
	return strings.Join(c.Args, " ")
}

// Line is the command as one shell line. Multi-token commands are quoted
// token by token; a single token is taken as a complete line.
func (c *Command) Line() string {
	switch {
	case c.pipe:
		return strings.Join(c.Args, " | ")
	case len(c.Args) == 1:
		return c.Args[0]
	default:
		return JoinQuoted(c.Args)
	}
}

func (c *Command) stages() []string {
	if c.pipe {
		return c.Args
	}
	return []string{c.Line()}
}

// Pipe returns a command feeding c's output into other. It reads c's stdin,
// writes other's stdout and runs on c's session.
func (c *Command) Pipe(other *Command) *Command {
	return &Command{
		session: c.session,
		Args:    slices.Concat(c.stages(), other.stages()),
		Stdin:   c.Stdin,
		Stdout:  other.Stdout,
		pipe:    true,
	}
}

// Result is the outcome of a finished command.
type Result struct {
	Stdout     string
	Stderr     string
	ReturnCode int
}

func (r *Result) Succeeded() bool { return r.ReturnCode == 0 }

// Run executes the command with its session's shell provider. A non-zero
// exit status is not an error; check Result.Succeeded.
func (c *Command) Run() (*Result, error) {
	if c.session == nil {
		return nil, fmt.Errorf("command %q: %w", c.String(), ErrNoSession)
	}
	sh, err := c.session.Sh()
	if err != nil {
		return nil, err
	}
	res, err := sh.Run(c)
	if err != nil {
		return nil, err
	}
	if err := c.deliver(res); err != nil {
		return res, err
	}
	return res, nil
}

// RunIn attaches the command to s and runs it.
func (c *Command) RunIn(s *Session) (*Result, error) {
	return c.Attach(s).Run()
}

func (c *Command) deliver(res *Result) error {
	var errs []error
	if c.Stdout != nil {
		if _, err := io.WriteString(c.Stdout, res.Stdout); err != nil {
			errs = append(errs, fmt.Errorf("copy stdout: %w", err))
		}
	}
	if c.Stderr != nil {
		if _, err := io.WriteString(c.Stderr, res.Stderr); err != nil {
			errs = append(errs, fmt.Errorf("copy stderr: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Program returns the executable name, the first token of the command line.
func (c *Command) Program() string {
	if len(c.Args) == 0 {
		return ""
	}
	first := c.Args[0]
	if c.pipe || len(c.Args) == 1 {
		tokens, err := SplitArgs(first)
		if err != nil || len(tokens) == 0 {
			return ""
		}
		return tokens[0]
	}
	return first
}

// Exists asks the session's shell whether the program is on PATH.
func (c *Command) Exists() (bool, error) {
	prog := c.Program()
	if prog == "" {
		return false, nil
	}
	probe := NewCommand("command -v " + Quote(prog)).Attach(c.session)
	res, err := probe.Run()
	if err != nil {
		if errors.Is(err, ErrCommandNotFound) {
			return false, nil
		}
		return false, err
	}
	return res.Succeeded(), nil
}

func (c *Command) DiagnosisMethods() []string { return []string{"exists"} }

func (c *Command) DiagnosisFunc(name string) (func() (any, error), bool) {
	if name != "exists" {
		return nil, false
	}
	return func() (any, error) { return c.Exists() }, true
}
