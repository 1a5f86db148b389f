//go:build windows

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

const adminRequired = true

// IsElevated reports whether the process token is elevated.
func IsElevated() (bool, error) {
	return windows.GetCurrentProcessToken().IsElevated(), nil
}

type mutexLock struct {
	handle windows.Handle
}

// AcquireLock creates the named mutex; ErrAlreadyRunning means another
// instance created it first.
func AcquireLock(name string) (Lock, error) {
	namePtr, err := windows.UTF16PtrFromString("Local\\" + name)
	if err != nil {
		return nil, fmt.Errorf("encoding lock name: %w", err)
	}
	h, err := windows.CreateMutex(nil, false, namePtr)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, fmt.Errorf("creating instance mutex: %w", err)
	}
	return &mutexLock{handle: h}, nil
}

func (l *mutexLock) Release() error {
	if l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}
