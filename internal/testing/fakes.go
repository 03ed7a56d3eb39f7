package testing

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/stack"
)

// FakeDNS is an in-memory name server. Registered host names become
// resolvable, unregistered ones stop resolving.
type FakeDNS struct {
	mu         sync.Mutex
	log        *CallLog
	resolvable map[string]bool
	batches    [][]provisioning.DNSRecord

	// Frozen accepts batches without changing what resolves.
	Frozen bool
	// Err fails every Apply.
	Err error
}

// NewFakeDNS creates an empty name server recording into log.
func NewFakeDNS(log *CallLog) *FakeDNS {
	if log == nil {
		log = &CallLog{}
	}
	return &FakeDNS{log: log, resolvable: make(map[string]bool)}
}

// Apply implements provisioning.DNSUpdater.
func (d *FakeDNS) Apply(_ context.Context, op provisioning.DNSOperation, records []provisioning.DNSRecord) error {
	d.log.Record("dns." + string(op))
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.batches = append(d.batches, append([]provisioning.DNSRecord(nil), records...))
	if d.Frozen {
		return nil
	}
	for _, r := range records {
		if op == provisioning.DNSRegister {
			d.resolvable[r.Hostname] = true
		} else {
			delete(d.resolvable, r.Hostname)
		}
	}
	return nil
}

// Resolves reports whether host is currently registered.
func (d *FakeDNS) Resolves(host string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolvable[host]
}

// Set marks host as resolvable or not, bypassing Apply.
func (d *FakeDNS) Set(host string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ok {
		d.resolvable[host] = true
		return
	}
	delete(d.resolvable, host)
}

// Batches returns every applied batch in order.
func (d *FakeDNS) Batches() [][]provisioning.DNSRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]provisioning.DNSRecord(nil), d.batches...)
}

// FakeProber reports a host reachable exactly when FakeDNS resolves it.
type FakeProber struct {
	dns *FakeDNS

	mu    sync.Mutex
	calls int
}

// NewFakeProber creates a prober backed by dns.
func NewFakeProber(dns *FakeDNS) *FakeProber {
	return &FakeProber{dns: dns}
}

// Reachable implements provisioning.Prober.
func (p *FakeProber) Reachable(_ context.Context, host string) bool {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.dns.Resolves(host)
}

// Calls returns how many probes were made.
func (p *FakeProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// RunnerCall is one recorded playbook run.
type RunnerCall struct {
	Playbook  string
	Inventory string
	Vars      map[string]any
}

// FakeRunner records playbook runs and returns a configured exit code per
// playbook. Playbooks are keyed by file name without extension.
type FakeRunner struct {
	mu    sync.Mutex
	log   *CallLog
	calls []RunnerCall

	ExitCodes map[string]int
	Err       error
}

// NewFakeRunner creates a runner whose playbooks all exit 0.
func NewFakeRunner(log *CallLog) *FakeRunner {
	if log == nil {
		log = &CallLog{}
	}
	return &FakeRunner{log: log, ExitCodes: make(map[string]int)}
}

// Run implements provisioning.ConfigRunner.
func (r *FakeRunner) Run(_ context.Context, playbook, inventoryPath string, extraVars map[string]any) (int, error) {
	name := strings.TrimSuffix(filepath.Base(playbook), filepath.Ext(playbook))
	r.log.Record("runner." + name)
	if r.Err != nil {
		return -1, r.Err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	vars := make(map[string]any, len(extraVars))
	for k, v := range extraVars {
		vars[k] = v
	}
	r.calls = append(r.calls, RunnerCall{Playbook: name, Inventory: inventoryPath, Vars: vars})
	return r.ExitCodes[name], nil
}

// Calls returns every recorded run in order.
func (r *FakeRunner) Calls() []RunnerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunnerCall(nil), r.calls...)
}

// FakeKeyExchanger records key exchanges.
type FakeKeyExchanger struct {
	log   *CallLog
	mu    sync.Mutex
	hosts [][]string

	Err error
}

// NewFakeKeyExchanger creates a key exchanger recording into log.
func NewFakeKeyExchanger(log *CallLog) *FakeKeyExchanger {
	if log == nil {
		log = &CallLog{}
	}
	return &FakeKeyExchanger{log: log}
}

// Exchange implements provisioning.KeyExchanger.
func (k *FakeKeyExchanger) Exchange(_ context.Context, hosts []string) error {
	k.log.Record("keys.exchange")
	k.mu.Lock()
	k.hosts = append(k.hosts, append([]string(nil), hosts...))
	k.mu.Unlock()
	return k.Err
}

// Hosts returns the host sets of every exchange.
func (k *FakeKeyExchanger) Hosts() [][]string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([][]string(nil), k.hosts...)
}

// FakeSession answers remote commands from a table.
type FakeSession struct {
	Host    string
	Outputs map[string]string

	mu       sync.Mutex
	commands []string
}

// Execute implements stack.Session. Unknown commands fail.
func (s *FakeSession) Execute(_ context.Context, command string) (string, error) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()

	out, ok := s.Outputs[command]
	if !ok {
		return "", errors.New("command not found: " + command)
	}
	return out, nil
}

// Commands returns the executed commands in order.
func (s *FakeSession) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// FakeSessions opens one FakeSession per host sharing the same output table.
type FakeSessions struct {
	mu       sync.Mutex
	Outputs  map[string]string
	sessions map[string]*FakeSession
}

// Factory returns a stack.SessionFactory handing out the fake sessions.
func (f *FakeSessions) Factory() stack.SessionFactory {
	return func(host string) (stack.Session, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.sessions == nil {
			f.sessions = make(map[string]*FakeSession)
		}
		s, ok := f.sessions[host]
		if !ok {
			s = &FakeSession{Host: host, Outputs: f.Outputs}
			f.sessions[host] = s
		}
		return s, nil
	}
}

// Session returns the session opened for host, or nil.
func (f *FakeSessions) Session(host string) *FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[host]
}

// FakeStore is an in-memory registry store.
type FakeStore struct {
	mu    sync.Mutex
	log   *CallLog
	names []string
	saves int

	LoadErr error
	SaveErr error
}

// NewFakeStore creates a store holding names.
func NewFakeStore(log *CallLog, names ...string) *FakeStore {
	if log == nil {
		log = &CallLog{}
	}
	return &FakeStore{log: log, names: append([]string(nil), names...)}
}

// Load returns the stored names.
func (s *FakeStore) Load(_ context.Context) ([]string, error) {
	s.log.Record("store.load")
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...), nil
}

// Save replaces the stored names.
func (s *FakeStore) Save(_ context.Context, names []string) error {
	s.log.Record("store.save")
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append([]string(nil), names...)
	s.saves++
	return nil
}

// Names returns the currently stored names.
func (s *FakeStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

// Saves returns how many successful saves were made.
func (s *FakeStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Fakes bundles a full set of collaborators sharing one CallLog.
type Fakes struct {
	Log      *CallLog
	Backend  *FakeBackend
	DNS      *FakeDNS
	Prober   *FakeProber
	Keys     *FakeKeyExchanger
	Runner   *FakeRunner
	Sessions *FakeSessions
}

// NewFakes creates a consistent set of fakes.
func NewFakes() *Fakes {
	log := &CallLog{}
	dns := NewFakeDNS(log)
	return &Fakes{
		Log:      log,
		Backend:  NewFakeBackend(log),
		DNS:      dns,
		Prober:   NewFakeProber(dns),
		Keys:     NewFakeKeyExchanger(log),
		Runner:   NewFakeRunner(log),
		Sessions: &FakeSessions{Outputs: map[string]string{}},
	}
}

// StackDeps returns the stack orchestrator dependencies backed by the fakes.
func (f *Fakes) StackDeps() stack.Deps {
	return stack.Deps{
		Backend:  f.Backend,
		DNS:      f.DNS,
		Prober:   f.Prober,
		Keys:     f.Keys,
		Sessions: f.Sessions.Factory(),
	}
}
