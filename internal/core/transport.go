package core

import (
	"context"
	"io"
)

// Transport executes command lines on a local or remote system. The line is
// interpreted by a POSIX shell on the other side.
type Transport interface {
	io.Closer

	// Execute runs line, feeding stdin when non-nil, and returns the captured
	// output and exit status. A non-zero exit is not an error.
	Execute(ctx context.Context, line string, stdin io.Reader) (*Result, error)

	// GetOS returns the operating system name (e.g., "linux", "darwin")
	GetOS(ctx context.Context) (string, error)
}
