// Package ansible runs the configuration playbooks of a cluster through
// ansible-playbook(1).
package ansible

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/imamik/ocpool/internal/config"
)

// Runner implements provisioning.ConfigRunner.
type Runner struct {
	Binary         string
	Forks          int
	Verbosity      int
	RemoteUser     string
	PrivateKeyFile string

	// Output receives the combined playbook output. Discarded when nil.
	Output io.Writer
}

// NewRunnerFromConfig creates a runner from the ansible and ssh sections of the config.
func NewRunnerFromConfig(cfg *config.Config) *Runner {
	r := &Runner{
		Binary:         cfg.Ansible.Binary,
		Forks:          cfg.Ansible.Forks,
		Verbosity:      cfg.Ansible.Verbosity,
		RemoteUser:     cfg.Ansible.RemoteUser,
		PrivateKeyFile: cfg.SSH.PrivateKeyFile,
	}
	if r.Binary == "" {
		r.Binary = config.DefaultAnsibleBinary
	}
	if r.RemoteUser == "" {
		r.RemoteUser = cfg.SSH.User
	}
	return r
}

// Args returns the ansible-playbook arguments.
func (r *Runner) Args(playbook, inventoryPath, varsFile string) []string {
	args := []string{"-i", inventoryPath}
	if varsFile != "" {
		args = append(args, "-e", "@"+varsFile)
	}
	if r.Forks > 0 {
		args = append(args, "--forks", strconv.Itoa(r.Forks))
	}
	if r.RemoteUser != "" {
		args = append(args, "-u", r.RemoteUser)
	}
	if r.PrivateKeyFile != "" {
		args = append(args, "--private-key", r.PrivateKeyFile)
	}
	if r.Verbosity > 0 {
		args = append(args, "-"+strings.Repeat("v", min(r.Verbosity, 4)))
	}
	return append(args, playbook)
}

// Run runs playbook against inventoryPath and returns its exit code. The
// extra variables are passed as a JSON file written next to the inventory.
func (r *Runner) Run(ctx context.Context, playbook, inventoryPath string, extraVars map[string]any) (int, error) {
	if _, err := os.Stat(playbook); err != nil {
		return -1, fmt.Errorf("playbook: %w", err)
	}

	varsFile, err := writeVars(filepath.Dir(inventoryPath), extraVars)
	if err != nil {
		return -1, err
	}
	if varsFile != "" {
		defer func() { _ = os.Remove(varsFile) }()
	}

	cmd := exec.CommandContext(ctx, r.Binary, r.Args(playbook, inventoryPath, varsFile)...) // #nosec G204 -- binary comes from the config file
	cmd.Env = append(os.Environ(),
		"ANSIBLE_HOST_KEY_CHECKING=False",
		"ANSIBLE_FORCE_COLOR=0",
	)
	out := r.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to start %s: %w", r.Binary, err)
}

func writeVars(dir string, vars map[string]any) (string, error) {
	if len(vars) == 0 {
		return "", nil
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("failed to encode extra vars: %w", err)
	}
	f, err := os.CreateTemp(dir, ".vars-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create extra vars file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write extra vars file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
