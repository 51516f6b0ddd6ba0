package remote

import (
	"github.com/melih-ucgun/xal/internal/core"
)

// Sh sends every command to the remote shell as one line.
type Sh struct {
	core.ShBase
	client *Client
}

func NewSh(c *Client) *Sh {
	return &Sh{ShBase: core.NewShBase(Name), client: c}
}

func (s *Sh) Supports(sess *core.Session) bool { return supportsRemote(sess) }

func (s *Sh) Run(c *core.Command) (*core.Result, error) {
	conn, err := s.client.SSH()
	if err != nil {
		return nil, err
	}
	return conn.Execute(s.client.ctx(), c.Line(), c.Stdin)
}
