//go:build !unix

package local

import (
	"os"
	"runtime"

	"github.com/melih-ucgun/xal/internal/core"
)

func uname() (core.Uname, error) {
	host, err := os.Hostname()
	if err != nil {
		return core.Uname{}, err
	}
	return core.Uname{Sysname: runtime.GOOS, Nodename: host, Machine: runtime.GOARCH}, nil
}
