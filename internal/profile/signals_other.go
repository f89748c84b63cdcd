//go:build !unix

package profile

import (
	tferrors "github.com/orizon-lang/tierforge/internal/errors"
)

// Signal is a resolved crash signal.
type Signal struct {
	Name   string
	Number int
}

// Signals is unsupported off unix.
func (p *Profile) Signals() ([]Signal, error) {
	if len(p.CrashSignals) == 0 {
		return nil, nil
	}

	return nil, tferrors.InvalidProfile("crash_signals", "signal names are only resolved on unix")
}
