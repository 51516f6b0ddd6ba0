// Package local implements the provider set for the machine xal runs on.
package local

import (
	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/transport"
)

// Name is the registry name of every provider in this package.
const Name = "local"

func supportsLocal(s *core.Session) bool { return s != nil && s.IsLocal() }

// Client owns the local transport. There is nothing to connect to.
type Client struct {
	core.BaseProvider
	transport *transport.LocalTransport
}

func NewClient(t *transport.LocalTransport) *Client {
	return &Client{BaseProvider: core.NewBaseProvider(Name), transport: t}
}

func (c *Client) Supports(s *core.Session) bool { return supportsLocal(s) }

func (c *Client) Connect() error { return nil }

func (c *Client) Close() error { return c.transport.Close() }

func (c *Client) Transport() core.Transport { return c.transport }

// LocalTransport is the concrete transport, for callers that need Spawn.
func (c *Client) LocalTransport() *transport.LocalTransport { return c.transport }
