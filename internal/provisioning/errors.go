package provisioning

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTopology is returned when a node list violates the cluster composition rules.
	ErrInvalidTopology = errors.New("invalid cluster topology")
	// ErrInvalidNodeType is returned for node types other than master, infra and compute.
	ErrInvalidNodeType = errors.New("invalid node type")
	// ErrStackAlreadyExists is returned when creating a stack whose name is already complete on the backend.
	ErrStackAlreadyExists = errors.New("stack already exists")
	// ErrStackNotFound is returned when no live stack carries the requested name.
	ErrStackNotFound = errors.New("stack not found")
	// ErrStackCreateFailed is returned when the backend reports CREATE_FAILED.
	ErrStackCreateFailed = errors.New("stack creation failed")
	// ErrCannotDetectNodeType is returned when an instance has no instance_type output.
	ErrCannotDetectNodeType = errors.New("cannot detect node type")
	// ErrNameServerUpdate is returned when hosts never reach the expected reachability after a DNS update.
	ErrNameServerUpdate = errors.New("name server update not effective")
	// ErrProvisioningTimeout is returned when a backend status poll exhausts its attempt budget.
	ErrProvisioningTimeout = errors.New("provisioning timed out")
	// ErrPhaseFailed is matched by every PhaseError.
	ErrPhaseFailed = errors.New("configuration phase failed")
)

// StackError attaches the stack name and operation to an error.
type StackError struct {
	Stack string
	Op    string
	Err   error
}

func (e *StackError) Error() string {
	return fmt.Sprintf("%s stack %q: %v", e.Op, e.Stack, e.Err)
}

func (e *StackError) Unwrap() error {
	return e.Err
}

// NewStackError wraps err with stack context. It returns nil for a nil err.
func NewStackError(stack, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StackError{Stack: stack, Op: op, Err: err}
}

// PhaseError reports a remote-configuration phase that exited non-zero.
type PhaseError struct {
	Cluster  string
	Phase    string
	ExitCode int
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase of cluster %q exited with code %d", e.Phase, e.Cluster, e.ExitCode)
}

// Is makes errors.Is(err, ErrPhaseFailed) hold for every PhaseError.
func (e *PhaseError) Is(target error) bool {
	return target == ErrPhaseFailed
}

// ErrorKind groups errors by how callers should react to them.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindTimeout         ErrorKind = "timeout"
	KindRemoteExecution ErrorKind = "remote_execution"
	KindClassification  ErrorKind = "classification"
	KindBackend         ErrorKind = "backend"
)

// KindOf classifies err. Unrecognized errors are backend errors.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidTopology), errors.Is(err, ErrInvalidNodeType), errors.Is(err, ErrStackAlreadyExists):
		return KindValidation
	case errors.Is(err, ErrStackNotFound):
		return KindNotFound
	case errors.Is(err, ErrProvisioningTimeout), errors.Is(err, ErrNameServerUpdate):
		return KindTimeout
	case errors.Is(err, ErrPhaseFailed):
		return KindRemoteExecution
	case errors.Is(err, ErrCannotDetectNodeType):
		return KindClassification
	default:
		return KindBackend
	}
}
