//go:build unix

package profile

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	tferrors "github.com/orizon-lang/tierforge/internal/errors"
)

// Signal is a resolved crash signal.
type Signal struct {
	Name   string
	Number int
}

// Signals resolves crash_signals to the platform's signal numbers. Names are
// accepted with or without the SIG prefix.
func (p *Profile) Signals() ([]Signal, error) {
	out := make([]Signal, 0, len(p.CrashSignals))

	for i, name := range p.CrashSignals {
		canonical := strings.ToUpper(name)
		if !strings.HasPrefix(canonical, "SIG") {
			canonical = "SIG" + canonical
		}

		num := unix.SignalNum(canonical)
		if num == 0 {
			return nil, tferrors.InvalidProfile(fmt.Sprintf("crash_signals[%d]", i),
				fmt.Sprintf("unknown signal %q", name))
		}

		out = append(out, Signal{Name: canonical, Number: int(num)})
	}

	return out, nil
}
