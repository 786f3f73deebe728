package rifmgr

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrContractViolation marks a call sequence the manager cannot honor without
// desynchronizing software and hardware state: adding an interface twice,
// removing or changing an unknown interface, or changing an interface kind.
var ErrContractViolation = errors.New("router interface contract violation")

// ErrUnsupportedInterfaceType is returned when the hardware cannot build a
// router interface of the requested kind.
var ErrUnsupportedInterfaceType = errors.New("unsupported router interface type")

// FatalReporter receives contract violations. The default reporter logs the
// violation and exits the process. A reporter that returns leaves the
// manager unchanged and the violation is returned to the caller.
type FatalReporter func(err error)

func exitReporter(log *slog.Logger) FatalReporter {
	return func(err error) {
		log.Error("Fatal router interface contract violation", "error", err)
		os.Exit(1)
	}
}

func (m *Manager) violation(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
	m.fatal(err)
	return err
}
