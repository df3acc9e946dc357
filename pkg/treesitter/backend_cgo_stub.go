//go:build !cgo

package treesitter

import "errors"

// ErrCGODisabled is returned by NewCGOBackend in binaries built without CGO.
var ErrCGODisabled = errors.New("cgo backend unavailable in this build: rebuild with CGO_ENABLED=1 or set " + EnvVarBackend + "=native")

func NewCGOBackend() (Backend, error) {
	return nil, ErrCGODisabled
}
