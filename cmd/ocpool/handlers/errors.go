package handlers

import (
	"errors"
	"fmt"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/util/lock"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitValidation = 1
	ExitBackend    = 2
)

// ErrUsage marks errors caused by how the command was invoked.
var ErrUsage = errors.New("usage error")

// UsageError wraps err as a usage error.
func UsageError(err error) error {
	if err == nil || errors.Is(err, ErrUsage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// ExitCode maps err to the process exit code: validation and usage errors
// exit 1, everything else exits 2.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, lock.ErrAlreadyRunning):
		return ExitValidation
	case provisioning.KindOf(err) == provisioning.KindValidation:
		return ExitValidation
	}
	return ExitBackend
}

// parseNodeTypes parses a comma separated node type list and requires every
// node type to be present.
func parseNodeTypes(csv string) ([]provisioning.NodeType, error) {
	types, err := provisioning.ParseNodeTypes(csv)
	if err != nil {
		return nil, fmt.Errorf("node types are invalid: %w", err)
	}
	counts := provisioning.CountNodeTypes(types)
	for _, t := range provisioning.AllNodeTypes() {
		if counts[t] == 0 {
			return nil, fmt.Errorf("%w: cluster must include at least one %s node", provisioning.ErrInvalidTopology, t)
		}
	}
	return types, nil
}
