// Package prerequisites checks that the external tools ocpool drives are
// installed. The doctor command reports the result.
package prerequisites

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/imamik/ocpool/internal/config"
)

const versionTimeout = 5 * time.Second

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string

	// VersionArgs are tried in order until one succeeds.
	VersionArgs []string
}

// ForConfig returns the tools needed by cfg: the playbook runner always,
// nsupdate and ping only when selected, and oc as an optional extra.
func ForConfig(cfg *config.Config) []Tool {
	ansible := cfg.Ansible.Binary
	if ansible == "" {
		ansible = config.DefaultAnsibleBinary
	}
	tools := []Tool{{
		Name:        ansible,
		Required:    true,
		Description: "Runs the pre_install and install playbooks",
		InstallURL:  "https://docs.ansible.com/ansible/latest/installation_guide/",
		VersionArgs: []string{"--version"},
	}}

	if cfg.DNS.Provider == "" || cfg.DNS.Provider == config.DNSProviderNSUpdate {
		nsupdate := cfg.DNS.NSUpdate.Binary
		if nsupdate == "" {
			nsupdate = config.DefaultNSUpdateBinary
		}
		tools = append(tools, Tool{
			Name:        nsupdate,
			Required:    true,
			Description: "Registers stack hosts in DNS",
			InstallURL:  "https://bind9.readthedocs.io/",
			VersionArgs: []string{"-V"},
		})
	}

	if cfg.Probe.Method == "" || cfg.Probe.Method == config.ProbeMethodPing {
		tools = append(tools, Tool{
			Name:        "ping",
			Required:    true,
			Description: "Checks host reachability after DNS updates",
			VersionArgs: []string{"-V"},
		})
	}

	return append(tools, Tool{
		Name:        "oc",
		Required:    false,
		Description: "Useful for inspecting deployed clusters",
		InstallURL:  "https://docs.openshift.com/container-platform/latest/cli_reference/openshift_cli/getting-started-cli.html",
		VersionArgs: []string{"version", "--client"},
	})
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if !tool.Required {
			continue
		}
		if tool.InstallURL == "" {
			missing = append(missing, tool.Name)
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(ctx context.Context, tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := exec.LookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			result.Version = toolVersion(ctx, path, tool.VersionArgs)
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// toolVersion returns the first output line of the version command, or ""
// when it cannot be determined.
func toolVersion(ctx context.Context, path string, args []string) string {
	if len(args) == 0 {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	// #nosec G204 -- path and args come from trusted Tool definitions
	output, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line)
}
