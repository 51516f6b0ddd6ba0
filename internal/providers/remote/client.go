// Package remote implements the provider set for hosts reached over SSH.
// Filesystem calls go through SFTP; everything else runs in the remote
// shell.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/inventory"
	"github.com/melih-ucgun/xal/internal/transport"
)

// Name is the registry name of every provider in this package.
const Name = "ssh"

var errNotConnected = errors.New("ssh client not connected")

func supportsRemote(s *core.Session) bool { return s != nil && !s.IsLocal() }

// Client dials the host on Connect and owns the resulting transport.
type Client struct {
	core.BaseProvider
	host inventory.Host
	opts transport.SSHOptions

	mu   sync.Mutex
	conn *transport.SSHTransport
}

func NewClient(host inventory.Host, opts transport.SSHOptions) *Client {
	return &Client{BaseProvider: core.NewBaseProvider(Name), host: host, opts: opts}
}

func (c *Client) Supports(s *core.Session) bool { return supportsRemote(s) }

// Connect dials the host. It is a no-op when already connected.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	ctx := context.Background()
	opts := c.opts
	if s := c.Session(); s != nil {
		ctx = s.Context()
		if opts.Logger == nil {
			opts.Logger = s.Logger()
		}
	}
	conn, err := transport.NewSSHTransport(ctx, c.host, opts)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.host.Label(), err)
	}
	c.conn = conn
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Transport returns the connection, nil before Connect.
func (c *Client) Transport() core.Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn
}

// SSH returns the connected transport.
func (c *Client) SSH() (*transport.SSHTransport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, errNotConnected
	}
	return c.conn, nil
}

// ctx is the session context, for providers built on this client.
func (c *Client) ctx() context.Context {
	if s := c.Session(); s != nil {
		return s.Context()
	}
	return context.Background()
}
