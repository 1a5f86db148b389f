//go:build !windows && !linux

package procdir

import (
	"context"
	"fmt"
	"runtime"
)

type unsupportedDirectory struct{}

func newSystem(Options) Directory {
	return unsupportedDirectory{}
}

func (unsupportedDirectory) List(context.Context) ([]Entry, error) {
	return nil, fmt.Errorf("%w: not supported on %s", ErrProcessListUnavailable, runtime.GOOS)
}

func (unsupportedDirectory) Running(int) (bool, error) {
	return false, fmt.Errorf("%w: not supported on %s", ErrProcessListUnavailable, runtime.GOOS)
}
