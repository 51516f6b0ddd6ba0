//go:build !unix

package local

import (
	"fmt"

	"github.com/melih-ucgun/xal/internal/core"
)

func ownership(name string) (owner, group string, err error) {
	return "", "", fmt.Errorf("owner of %s: %w", name, core.ErrNotSupported)
}
