package testing

import (
	"strings"
	"sync"
)

// CallLog records collaborator calls in order.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// Record appends a call.
func (l *CallLog) Record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

// Calls returns a copy of every recorded call.
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// Count returns how many calls start with prefix.
func (l *CallLog) Count(prefix string) int {
	n := 0
	for _, c := range l.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Index returns the position of the first call starting with prefix, or -1.
func (l *CallLog) Index(prefix string) int {
	for i, c := range l.Calls() {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

// Filter returns the calls starting with any of the prefixes, in order.
func (l *CallLog) Filter(prefixes ...string) []string {
	var out []string
	for _, c := range l.Calls() {
		for _, p := range prefixes {
			if strings.HasPrefix(c, p) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Reset forgets every recorded call.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}
