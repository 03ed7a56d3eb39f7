package stack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/imamik/ocpool/internal/mgmtenv"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/util/naming"
)

// Session runs commands on a remote host.
type Session interface {
	Execute(ctx context.Context, command string) (string, error)
}

// SessionFactory opens a session to host.
type SessionFactory func(host string) (Session, error)

// Stack is a handle on a live or formerly live backend stack.
//
// The backend ID is resolved by name on first use and cached for the lifetime
// of the handle. Status is never cached.
type Stack struct {
	name     string
	zone     string
	backend  provisioning.Backend
	env      *mgmtenv.Env
	sessions SessionFactory

	id             string
	hosts          *HostsData
	keyExchangeErr error
}

// Name returns the stack name.
func (s *Stack) Name() string {
	return s.name
}

// Env returns the management environment of the stack.
func (s *Stack) Env() *mgmtenv.Env {
	return s.env
}

// KeyExchangeError returns the failure of the best-effort key exchange run
// by Create, if any.
func (s *Stack) KeyExchangeError() error {
	return s.keyExchangeErr
}

// ID returns the backend ID of the stack, resolving it by name on first call.
// Stacks reported as DELETE_COMPLETE are skipped.
func (s *Stack) ID(ctx context.Context) (string, error) {
	if s.id != "" {
		return s.id, nil
	}

	stacks, err := s.backend.ListStacks(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list stacks: %w", err)
	}
	for _, st := range stacks {
		if st.Name != s.name || provisioning.ParseStackStatus(st.Status) == provisioning.StatusDeleteComplete {
			continue
		}
		s.id = st.ID
		return s.id, nil
	}
	return "", provisioning.NewStackError(s.name, "resolve", provisioning.ErrStackNotFound)
}

// Status fetches the current backend status. A stack the backend does not
// know yields an error matching provisioning.ErrStackNotFound.
func (s *Stack) Status(ctx context.Context) (provisioning.StackStatus, error) {
	id, err := s.ID(ctx)
	if err != nil {
		return provisioning.StatusUnknown, err
	}
	raw, err := s.backend.GetStackStatus(ctx, id)
	if err != nil {
		return provisioning.StatusUnknown, fmt.Errorf("failed to get status of stack %s: %w", s.name, err)
	}
	return provisioning.ParseStackStatus(raw), nil
}

// Exists reports whether the backend holds the stack in a non-deleted state.
func (s *Stack) Exists(ctx context.Context) (bool, error) {
	status, err := s.Status(ctx)
	if errors.Is(err, provisioning.ErrStackNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !status.IsDeleted(), nil
}

// Outputs fetches the backend outputs of the stack.
func (s *Stack) Outputs(ctx context.Context) ([]provisioning.Output, error) {
	id, err := s.ID(ctx)
	if err != nil {
		return nil, err
	}
	outputs, err := s.backend.GetStackOutputs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get outputs of stack %s: %w", s.name, err)
	}
	return outputs, nil
}

// HostsData returns the hosts derived from the stack outputs. It is computed
// once, and only when the stack is CREATE_COMPLETE or CREATE_FAILED.
func (s *Stack) HostsData(ctx context.Context) (*HostsData, error) {
	if s.hosts != nil {
		return s.hosts, nil
	}

	status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Inspectable() {
		if status.IsDeleted() || status == provisioning.StatusUnknown {
			return nil, provisioning.NewStackError(s.name, "inspect", provisioning.ErrStackNotFound)
		}
		return nil, fmt.Errorf("stack %s is %s, hosts are not available yet", s.name, status)
	}

	outputs, err := s.Outputs(ctx)
	if err != nil {
		return nil, err
	}
	hosts, err := ParseHostsData(outputs, s.zone)
	if err != nil {
		return nil, fmt.Errorf("failed to parse outputs of stack %s: %w", s.name, err)
	}
	s.hosts = hosts
	return hosts, nil
}

// Instances returns one instance per named host, ordered by short name.
func (s *Stack) Instances(ctx context.Context) ([]*Instance, error) {
	hosts, err := s.HostsData(ctx)
	if err != nil {
		return nil, err
	}
	instances := make([]*Instance, 0, len(hosts.HostNames))
	for _, short := range hosts.ShortNames() {
		instances = append(instances, &Instance{
			FQDN:     hosts.HostNames[short],
			IP:       hosts.HostIPs[short],
			sessions: s.sessions,
		})
	}
	return instances, nil
}

// Instance is one host of a stack.
type Instance struct {
	FQDN string
	IP   string

	sessions SessionFactory
	once     sync.Once
	session  Session
	err      error
}

// ShortName returns the first label of the instance FQDN.
func (i *Instance) ShortName() string {
	return naming.ShortName(i.FQDN)
}

// Session returns the remote session of the instance, opening it on first use.
func (i *Instance) Session() (Session, error) {
	i.once.Do(func() {
		if i.sessions == nil {
			i.err = fmt.Errorf("no remote sessions configured for %s", i.FQDN)
			return
		}
		i.session, i.err = i.sessions(i.FQDN)
	})
	return i.session, i.err
}
