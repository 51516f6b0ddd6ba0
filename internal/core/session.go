package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Interface names used by the built-in providers.
const (
	IfaceClient = "client"
	IfaceSys    = "sys"
	IfacePath   = "path"
	IfaceSh     = "sh"
)

var sessionSeq atomic.Uint64

// Info holds the session-level facts capability predicates may look at.
type Info struct {
	Local bool
	Host  string
	User  string
	Port  int
}

// Session routes requests to providers through its registry. It is the
// single handle a caller holds; it is not meant to be shared between
// concurrent callers.
type Session struct {
	ctx      context.Context
	id       uint64
	info     Info
	registry *Registry
	logger   *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession returns a session with an empty registry. Backend constructors
// register their provider set on it and connect the client.
func NewSession(ctx context.Context, info Info, opts ...SessionOption) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Session{
		ctx:    ctx,
		id:     sessionSeq.Add(1),
		info:   info,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = NewRegistry(s)
	s.logger = s.logger.With("session", s.id)
	return s
}

// Registry returns the session's registry.
func (s *Session) Registry() *Registry { return s.registry }

// ID is a process-unique session number.
func (s *Session) ID() uint64 { return s.id }

// IsLocal reports whether the session targets the local machine.
func (s *Session) IsLocal() bool { return s.info.Local }

// Info returns the session-level facts.
func (s *Session) Info() Info { return s.info }

// Context is the context blocking backend calls run under.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Logger() *slog.Logger { return s.logger }

func (s *Session) String() string {
	if s.info.Local {
		return fmt.Sprintf("Session(#%d local)", s.id)
	}
	return fmt.Sprintf("Session(#%d %s@%s:%d)", s.id, s.info.User, s.info.Host, s.info.Port)
}

// Get returns the active provider for iface.
func (s *Session) Get(iface string) (Provider, error) {
	return s.registry.Default(iface)
}

// Get returns the active provider for iface as a T.
func Get[T any](s *Session, iface string) (T, error) {
	var zero T
	p, err := s.registry.Default(iface)
	if err != nil {
		return zero, err
	}
	t, ok := p.(T)
	if !ok {
		return zero, &ProviderError{Interface: iface, Provider: ProviderName(p), Err: ErrProviderType}
	}
	return t, nil
}

func (s *Session) Client() (ClientProvider, error) { return Get[ClientProvider](s, IfaceClient) }

func (s *Session) Sys() (SysProvider, error) { return Get[SysProvider](s, IfaceSys) }

func (s *Session) Path() (PathProvider, error) { return Get[PathProvider](s, IfacePath) }

func (s *Session) Sh() (ShProvider, error) { return Get[ShProvider](s, IfaceSh) }

// Run builds a command from args with the shell provider and runs it.
func (s *Session) Run(args ...string) (*Result, error) {
	sh, err := s.Sh()
	if err != nil {
		return nil, err
	}
	return sh.Command(args...).Run()
}

// Cwd returns the backend's current working directory.
func (s *Session) Cwd() (*Path, error) {
	pp, err := s.Path()
	if err != nil {
		return nil, err
	}
	return pp.Cwd()
}

// Cd changes the working directory. The returned path restores the previous
// one when closed.
func (s *Session) Cd(parts ...string) (*Path, error) {
	pp, err := s.Path()
	if err != nil {
		return nil, err
	}
	return changeDir(pp, pp.Path(parts...))
}

// InDir runs fn with the working directory set to target and restores the
// previous directory afterwards, whether fn fails or not.
func (s *Session) InDir(target *Path, fn func(dir *Path) error) (err error) {
	pp, err := s.Path()
	if err != nil {
		return err
	}
	dir, err := changeDir(pp, pp.Attach(target))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dir.Close())
	}()
	return fn(dir)
}

// Close disconnects the session's client.
func (s *Session) Close() error {
	client, err := s.Client()
	if err != nil {
		if errors.Is(err, ErrInterfaceNotRegistered) {
			return nil
		}
		return err
	}
	return client.Close()
}
