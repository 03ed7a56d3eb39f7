package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/util/naming"
)

// FakeStack is a stack held by FakeBackend.
type FakeStack struct {
	ID      string
	Name    string
	Status  provisioning.StackStatus
	Body    string
	Outputs []provisioning.Output
}

// FakeBackend is an in-memory orchestration backend.
type FakeBackend struct {
	mu     sync.Mutex
	log    *CallLog
	stacks []*FakeStack
	preset map[string][]provisioning.Output
	nextID int

	// StatusAfterCreate is reported once a stack is submitted. Defaults to CREATE_COMPLETE.
	StatusAfterCreate provisioning.StackStatus
	// StatusAfterDelete is reported once a stack is deleted. Defaults to DELETE_COMPLETE.
	StatusAfterDelete provisioning.StackStatus
	// ForgetDeleted removes deleted stacks so status lookups report not found.
	ForgetDeleted bool

	// Errors injected per method name (list, create, status, outputs, delete).
	Errors map[string]error
}

// NewFakeBackend creates an empty backend recording into log.
func NewFakeBackend(log *CallLog) *FakeBackend {
	if log == nil {
		log = &CallLog{}
	}
	return &FakeBackend{
		log:    log,
		preset: make(map[string][]provisioning.Output),
		Errors: make(map[string]error),
	}
}

// SetOutputs replaces the outputs the next stack called name will expose.
func (b *FakeBackend) SetOutputs(name string, outputs []provisioning.Output) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preset[name] = outputs
}

// SetStatus forces the status of the live stack called name.
func (b *FakeBackend) SetStatus(name string, status provisioning.StackStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.live(name); st != nil {
		st.Status = status
	}
}

// Stack returns the live stack called name, or nil.
func (b *FakeBackend) Stack(name string) *FakeStack {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live(name)
}

// Mutations returns how many create and delete calls were made.
func (b *FakeBackend) Mutations() int {
	return b.log.Count("backend.create") + b.log.Count("backend.delete")
}

// ListStacks implements provisioning.Backend.
func (b *FakeBackend) ListStacks(_ context.Context) ([]provisioning.StackSummary, error) {
	b.log.Record("backend.list")
	if err := b.Errors["list"]; err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]provisioning.StackSummary, 0, len(b.stacks))
	for _, st := range b.stacks {
		out = append(out, provisioning.StackSummary{ID: st.ID, Name: st.Name, Status: string(st.Status)})
	}
	return out, nil
}

// CreateStack implements provisioning.Backend.
func (b *FakeBackend) CreateStack(_ context.Context, name, templateBody string) error {
	b.log.Record("backend.create " + name)
	if err := b.Errors["create"]; err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.live(name) != nil {
		return fmt.Errorf("stack %s already exists", name)
	}

	outputs, ok := b.preset[name]
	if !ok {
		var err error
		outputs, err = outputsFromBody(templateBody)
		if err != nil {
			return err
		}
	}

	status := b.StatusAfterCreate
	if status == "" {
		status = provisioning.StatusCreateComplete
	}
	b.nextID++
	b.stacks = append(b.stacks, &FakeStack{
		ID:      fmt.Sprintf("stack-%d", b.nextID),
		Name:    name,
		Status:  status,
		Body:    templateBody,
		Outputs: outputs,
	})
	return nil
}

// GetStackStatus implements provisioning.Backend.
func (b *FakeBackend) GetStackStatus(_ context.Context, id string) (string, error) {
	b.log.Record("backend.status " + id)
	if err := b.Errors["status"]; err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.byID(id)
	if st == nil {
		return "", fmt.Errorf("%w: %s", provisioning.ErrStackNotFound, id)
	}
	return string(st.Status), nil
}

// GetStackOutputs implements provisioning.Backend.
func (b *FakeBackend) GetStackOutputs(_ context.Context, id string) ([]provisioning.Output, error) {
	b.log.Record("backend.outputs " + id)
	if err := b.Errors["outputs"]; err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.byID(id)
	if st == nil {
		return nil, fmt.Errorf("%w: %s", provisioning.ErrStackNotFound, id)
	}
	return append([]provisioning.Output(nil), st.Outputs...), nil
}

// DeleteStack implements provisioning.Backend.
func (b *FakeBackend) DeleteStack(_ context.Context, id string) error {
	b.mu.Lock()
	st := b.byID(id)
	b.mu.Unlock()

	name := id
	if st != nil {
		name = st.Name
	}
	b.log.Record("backend.delete " + name)
	if err := b.Errors["delete"]; err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("%w: %s", provisioning.ErrStackNotFound, id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ForgetDeleted {
		for i, s := range b.stacks {
			if s == st {
				b.stacks = append(b.stacks[:i], b.stacks[i+1:]...)
				break
			}
		}
		return nil
	}
	st.Status = b.StatusAfterDelete
	if st.Status == "" {
		st.Status = provisioning.StatusDeleteComplete
	}
	return nil
}

func (b *FakeBackend) live(name string) *FakeStack {
	for _, st := range b.stacks {
		if st.Name == name && st.Status != provisioning.StatusDeleteComplete {
			return st
		}
	}
	return nil
}

func (b *FakeBackend) byID(id string) *FakeStack {
	for _, st := range b.stacks {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// outputsFromBody derives backend outputs from a rendered stack body the way
// the hcloud backend does: one address, name and instance type per server.
func outputsFromBody(body string) ([]provisioning.Output, error) {
	var doc struct {
		Deployment string `yaml:"deployment"`
		Zone       string `yaml:"zone"`
		Servers    []struct {
			Name         string `yaml:"name"`
			InstanceType string `yaml:"instance_type"`
		} `yaml:"servers"`
	}
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("invalid stack body: %w", err)
	}

	domain := naming.ServersDomain(doc.Deployment, doc.Zone)
	outputs := []provisioning.Output{{Key: "ocp_deployment_pqdn", Value: doc.Deployment}}
	for i, s := range doc.Servers {
		outputs = append(outputs,
			provisioning.Output{Key: s.Name + "_public_ip", Value: fmt.Sprintf("10.0.0.%d", i+1)},
			provisioning.Output{Key: s.Name + "_name", Value: naming.FQDN(s.Name, domain)},
			provisioning.Output{Key: s.Name + "_instance_type", Value: s.InstanceType},
		)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Key < outputs[j].Key })
	return outputs, nil
}
