// Package mgmtenv manages the per-stack working directory that holds rendered
// templates, logs and the cluster metadata record.
package mgmtenv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LogFile is the name of the per-stack log file.
const LogFile = "ocpool.log"

// ErrEnvAlreadyExists is returned by Create when the directory is already present.
var ErrEnvAlreadyExists = errors.New("management environment already exists")

// Env is the management environment of one stack: <workspace>/<name>.
type Env struct {
	workspace string
	name      string
}

// New returns the environment of name under workspace. Nothing is created on disk.
func New(workspace, name string) *Env {
	return &Env{workspace: workspace, name: name}
}

// Name returns the stack name the environment belongs to.
func (e *Env) Name() string {
	return e.name
}

// Path returns the absolute directory of the environment.
func (e *Env) Path() string {
	p := filepath.Join(e.workspace, e.name)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Exists reports whether the environment directory is present.
func (e *Env) Exists() bool {
	info, err := os.Stat(e.Path())
	return err == nil && info.IsDir()
}

// Create makes the environment directory. It fails if the directory already exists.
func (e *Env) Create() error {
	if e.Exists() {
		return fmt.Errorf("%w: %s", ErrEnvAlreadyExists, e.Path())
	}
	if err := os.MkdirAll(e.Path(), 0o750); err != nil {
		return fmt.Errorf("failed to create management environment: %w", err)
	}
	return nil
}

// Ensure creates the environment directory if it is missing.
func (e *Env) Ensure() error {
	if err := os.MkdirAll(e.Path(), 0o750); err != nil {
		return fmt.Errorf("failed to create management environment: %w", err)
	}
	return nil
}

// Delete removes the environment directory and everything in it.
func (e *Env) Delete() error {
	if err := os.RemoveAll(e.Path()); err != nil {
		return fmt.Errorf("failed to delete management environment: %w", err)
	}
	return nil
}

// Prune removes the environment if it holds nothing but the log file, as
// left behind by a command that failed before touching the stack.
func (e *Env) Prune() error {
	entries, err := os.ReadDir(e.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read management environment: %w", err)
	}
	for _, entry := range entries {
		if entry.Name() != LogFile {
			return nil
		}
	}
	return e.Delete()
}

// Clear empties the environment by deleting and recreating it.
func (e *Env) Clear() error {
	if err := e.Delete(); err != nil {
		return err
	}
	return e.Create()
}

// FilePath returns the absolute path of filename inside the environment.
func (e *Env) FilePath(filename string) string {
	return filepath.Join(e.Path(), filename)
}

// WriteFile writes content to filename inside the environment.
func (e *Env) WriteFile(filename string, content []byte) error {
	if err := e.Ensure(); err != nil {
		return err
	}
	if err := os.WriteFile(e.FilePath(filename), content, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// ReadFile reads filename from the environment.
func (e *Env) ReadFile(filename string) ([]byte, error) {
	// #nosec G304 -- path is confined to the environment directory
	data, err := os.ReadFile(e.FilePath(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return data, nil
}

// WriteYAML marshals v as YAML into filename.
func (e *Env) WriteYAML(filename string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filename, err)
	}
	return e.WriteFile(filename, data)
}

// ReadYAML unmarshals filename into v.
func (e *Env) ReadYAML(filename string, v any) error {
	data, err := e.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}
	return nil
}

// OpenLog opens the environment log file for appending, creating the environment if needed.
func (e *Env) OpenLog() (io.WriteCloser, error) {
	if err := e.Ensure(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(e.FilePath(LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
