package local

import (
	"context"
	"fmt"

	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/transport"
)

// Sh runs commands on the local machine.
type Sh struct {
	core.ShBase

	// Shell sends command lines through sh -c. When false, commands are
	// spawned directly and a single-token line is split into arguments
	// first. Pipes always need the shell.
	Shell bool

	transport *transport.LocalTransport
}

func NewSh(t *transport.LocalTransport) *Sh {
	return &Sh{ShBase: core.NewShBase(Name), Shell: true, transport: t}
}

func (s *Sh) Supports(sess *core.Session) bool { return supportsLocal(sess) }

func (s *Sh) Run(c *core.Command) (*core.Result, error) {
	ctx := context.Background()
	if sess := s.Session(); sess != nil {
		ctx = sess.Context()
	}

	if s.Shell || c.IsPipe() {
		return s.transport.Execute(ctx, c.Line(), c.Stdin)
	}

	argv := c.Args
	if len(argv) == 1 {
		tokens, err := core.SplitArgs(argv[0])
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", argv[0], err)
		}
		argv = tokens
	}
	return s.transport.Spawn(ctx, argv, c.Stdin)
}
