// Package platform holds OS guards for the interactive modes: the
// administrator check and the single-instance lock.
package platform

import "errors"

// LockName identifies the single-instance lock.
const LockName = "ConnectionBreaker_SingleInstance_Lock"

var (
	// ErrNotElevated is returned when administrator rights are required.
	ErrNotElevated = errors.New("administrator privileges required to view all processes and manage network connections")
	// ErrAlreadyRunning is returned when another instance holds the lock.
	ErrAlreadyRunning = errors.New("connbreaker is already running")
)

// Lock is a held single-instance lock.
type Lock interface {
	Release() error
}

// RequireElevated returns ErrNotElevated unless the process may manage other
// processes' connections. Only Windows enforces it.
func RequireElevated() error {
	if !adminRequired {
		return nil
	}
	ok, err := IsElevated()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotElevated
	}
	return nil
}
