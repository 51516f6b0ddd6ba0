// Package session builds ready-to-use sessions: a core session with the
// provider set of one backend registered and its client connected.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/inventory"
	"github.com/melih-ucgun/xal/internal/providers/local"
	"github.com/melih-ucgun/xal/internal/providers/remote"
	"github.com/melih-ucgun/xal/internal/transport"
)

type options struct {
	logger *slog.Logger
	use    map[string]string
	shell  bool
	ssh    transport.SSHOptions
}

// Option configures NewLocal, NewSSH and FromHost.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithUse pins providers by name, keyed by interface.
func WithUse(use map[string]string) Option {
	return func(o *options) { o.use = use }
}

// WithShell toggles sh -c for local commands. It is on by default.
func WithShell(on bool) Option {
	return func(o *options) { o.shell = on }
}

// WithSSHOptions sets the dial options of SSH sessions.
func WithSSHOptions(opts transport.SSHOptions) Option {
	return func(o *options) { o.ssh = opts }
}

func collect(opts []Option) options {
	o := options{shell: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) coreOptions() []core.SessionOption {
	if o.logger == nil {
		return nil
	}
	return []core.SessionOption{core.WithLogger(o.logger)}
}

// NewLocal returns a session on the local machine.
func NewLocal(ctx context.Context, opts ...Option) (*core.Session, error) {
	o := collect(opts)
	s := core.NewSession(ctx, core.Info{Local: true}, o.coreOptions()...)

	tr := transport.NewLocalTransport(s.Logger())
	sh := local.NewSh(tr)
	sh.Shell = o.shell

	r := s.Registry()
	r.Register(core.IfaceClient, local.NewClient(tr))
	r.Register(core.IfaceSys, local.NewSys())
	r.Register(core.IfacePath, local.NewPath())
	r.Register(core.IfaceSh, sh)

	return finish(s, o)
}

// NewSSH returns a session on host, connected over SSH.
func NewSSH(ctx context.Context, host inventory.Host, opts ...Option) (*core.Session, error) {
	o := collect(opts)
	sshOpts := o.ssh
	host, err := transport.ResolveHost(host, sshOpts.ConfigFile())
	if err != nil {
		return nil, err
	}
	// Already resolved; the transport must not apply the config again.
	sshOpts.ConfigPath = "none"

	info := core.Info{Host: host.Address, User: host.User, Port: host.Port}
	s := core.NewSession(ctx, info, o.coreOptions()...)
	if sshOpts.Logger == nil {
		sshOpts.Logger = s.Logger()
	}
	client := remote.NewClient(host, sshOpts)

	r := s.Registry()
	r.Register(core.IfaceClient, client)
	r.Register(core.IfaceSys, remote.NewSys(client))
	r.Register(core.IfacePath, remote.NewPath(client))
	r.Register(core.IfaceSh, remote.NewSh(client))

	return finish(s, o)
}

// FromHost picks the backend from the host's connection type.
func FromHost(ctx context.Context, host inventory.Host, opts ...Option) (*core.Session, error) {
	if host.IsLocal() {
		return NewLocal(ctx, opts...)
	}
	return NewSSH(ctx, host, opts...)
}

// finish applies provider pins and connects the client.
func finish(s *core.Session, o options) (*core.Session, error) {
	for _, iface := range slices.Sorted(maps.Keys(o.use)) {
		if err := s.Registry().Use(iface, o.use[iface]); err != nil {
			return nil, fmt.Errorf("use %s provider: %w", iface, err)
		}
	}

	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, err
	}
	s.Logger().Debug("session ready", "target", s.String())
	return s, nil
}
