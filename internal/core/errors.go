package core

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Sentinel errors. Wrapper types below carry context and unwrap to these.
var (
	ErrNoProviderAvailable    = errors.New("no provider available for interface")
	ErrInterfaceNotRegistered = errors.New("interface not registered")
	ErrProviderNotFound       = errors.New("provider not registered")
	ErrProviderType           = errors.New("provider does not implement interface")
	ErrCommandNotFound        = errors.New("command not found")
	ErrValueMismatch          = errors.New("value mismatch")
	ErrNoSession              = errors.New("resource is not attached to a session")
	ErrNotSupported           = errors.New("operation not supported")

	// ErrPathDoesNotExist is the backend's native not-found signal.
	ErrPathDoesNotExist = fs.ErrNotExist
)

// ProviderError reports a registry failure for one interface.
type ProviderError struct {
	Interface string
	Provider  string // optional, set by Use and typed lookups
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %q (provider %q)", e.Err, e.Interface, e.Provider)
	}
	return fmt.Sprintf("%s: %q", e.Err, e.Interface)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// CommandNotFoundError is raised when a backend cannot locate the program.
// It matches ErrCommandNotFound with errors.Is and unwraps to the backend cause.
type CommandNotFoundError struct {
	Argv []string
	Err  error
}

func (e *CommandNotFoundError) Error() string {
	msg := fmt.Sprintf("command not found: %s", strings.Join(e.Argv, " "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandNotFoundError) Unwrap() error { return e.Err }

func (e *CommandNotFoundError) Is(target error) bool { return target == ErrCommandNotFound }

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValueMismatch, fmt.Sprintf(format, args...))
}
