package core

import (
	"log/slog"
	"slices"
	"sync"
)

// Registry catalogs providers per interface and remembers which one is
// active. Resolution is lazy and memoized: once an interface is resolved the
// same provider is returned until Use or Unregister changes it.
type Registry struct {
	mu      sync.Mutex
	session *Session

	// items keeps providers per interface in registration order.
	items map[string][]namedProvider
	// active maps an interface to the name of its chosen provider.
	active map[string]string
}

type namedProvider struct {
	name     string
	provider Provider
}

// NewRegistry returns an empty registry bound to s.
func NewRegistry(s *Session) *Registry {
	return &Registry{
		session: s,
		items:   make(map[string][]namedProvider),
		active:  make(map[string]string),
	}
}

// Register adds providers for iface. A provider whose name is already
// registered for iface replaces the previous one in place.
func (r *Registry) Register(iface string, providers ...Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range providers {
		if b, ok := p.(Binder); ok {
			b.Bind(r.session)
		}
		name := ProviderName(p)
		entry := namedProvider{name: name, provider: p}

		replaced := false
		for i, existing := range r.items[iface] {
			if existing.name == name {
				r.items[iface][i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			r.items[iface] = append(r.items[iface], entry)
		}
		r.logger().Debug("provider registered", "interface", iface, "provider", name)
	}
}

// Unregister removes the provider name from iface. If it was active, the
// cache entry is dropped so the next Default call negotiates again. Unknown
// interfaces or names are ignored.
func (r *Registry) Unregister(iface, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.items[iface]
	for i, entry := range list {
		if entry.name != name {
			continue
		}
		r.items[iface] = append(list[:i:i], list[i+1:]...)
		if r.active[iface] == name {
			delete(r.active, iface)
		}
		r.logger().Debug("provider unregistered", "interface", iface, "provider", name)
		return
	}
}

// Use pins name as the active provider for iface.
func (r *Registry) Use(iface, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(iface, name); !ok {
		return &ProviderError{Interface: iface, Provider: name, Err: ErrProviderNotFound}
	}
	r.active[iface] = name
	r.logger().Debug("provider pinned", "interface", iface, "provider", name)
	return nil
}

// Guess returns the name of the first provider registered for iface that
// supports the session. Registration order is the only tie-break.
func (r *Registry) Guess(iface string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guess(iface)
}

func (r *Registry) guess(iface string) (string, error) {
	list, ok := r.items[iface]
	if !ok || len(list) == 0 {
		return "", &ProviderError{Interface: iface, Err: ErrInterfaceNotRegistered}
	}
	for _, entry := range list {
		if Supports(entry.provider, r.session) {
			return entry.name, nil
		}
	}
	return "", &ProviderError{Interface: iface, Err: ErrNoProviderAvailable}
}

// Default returns the active provider for iface, resolving it with Guess on
// first access.
func (r *Registry) Default(iface string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name, ok := r.active[iface]; ok {
		if p, ok := r.lookup(iface, name); ok {
			return p, nil
		}
		delete(r.active, iface)
	}

	name, err := r.guess(iface)
	if err != nil {
		return nil, err
	}
	r.active[iface] = name
	r.logger().Debug("provider resolved", "interface", iface, "provider", name)

	p, _ := r.lookup(iface, name)
	return p, nil
}

// Active returns the cached provider name for iface, if resolved.
func (r *Registry) Active(iface string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.active[iface]
	return name, ok
}

// Interfaces lists, sorted, the interfaces that have at least one provider.
func (r *Registry) Interfaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.items))
	for iface, list := range r.items {
		if len(list) > 0 {
			out = append(out, iface)
		}
	}
	slices.Sort(out)
	return out
}

// Providers lists provider names for iface in registration order.
func (r *Registry) Providers(iface string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.items[iface]))
	for _, entry := range r.items[iface] {
		out = append(out, entry.name)
	}
	return out
}

// Lookup returns the provider registered for iface under name.
func (r *Registry) Lookup(iface, name string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(iface, name)
}

func (r *Registry) lookup(iface, name string) (Provider, bool) {
	for _, entry := range r.items[iface] {
		if entry.name == name {
			return entry.provider, true
		}
	}
	return nil, false
}

func (r *Registry) logger() *slog.Logger {
	if r.session == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.session.Logger()
}
