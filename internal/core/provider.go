package core

import "fmt"

// Provider is a capability unit registered under an interface name ("path",
// "sh", ...). Name identifies it inside the registry; an empty name lets the
// registry derive one from the implementation type and instance.
type Provider interface {
	Name() string
}

// Supporter is implemented by providers gated by a capability predicate.
// Supports must depend only on session-level facts, never on call arguments.
// Providers without it support every session.
type Supporter interface {
	Supports(s *Session) bool
}

// Binder is implemented by providers that need their owning session.
type Binder interface {
	Bind(s *Session)
}

// BaseProvider holds the session back-reference and a fixed name. Concrete
// providers embed it.
type BaseProvider struct {
	name    string
	session *Session
}

// NewBaseProvider returns a BaseProvider named name.
func NewBaseProvider(name string) BaseProvider {
	return BaseProvider{name: name}
}

func (b *BaseProvider) Name() string { return b.name }

func (b *BaseProvider) Bind(s *Session) { b.session = s }

// Session returns the owning session, nil until registered.
func (b *BaseProvider) Session() *Session { return b.session }

// ProviderName returns p's registry name.
func ProviderName(p Provider) string {
	if name := p.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("%T/%p", p, p)
}

// Supports reports whether p can serve s. Providers that do not implement
// Supporter are treated as universally supporting.
func Supports(p Provider, s *Session) bool {
	sp, ok := p.(Supporter)
	if !ok {
		return true
	}
	return sp.Supports(s)
}
