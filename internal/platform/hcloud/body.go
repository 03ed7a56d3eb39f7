package hcloud

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// stackBody is the rendered stack template.
type stackBody struct {
	Stack      string            `json:"stack"`
	Deployment string            `json:"deployment"`
	Zone       string            `json:"zone"`
	UserData   string            `json:"user_data,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
	Servers    []serverBody      `json:"servers"`
}

type serverBody struct {
	Name         string   `json:"name"`
	InstanceType string   `json:"instance_type"`
	ServerType   string   `json:"server_type"`
	Image        string   `json:"image"`
	Location     string   `json:"location,omitempty"`
	SSHKeys      []string `json:"ssh_keys,omitempty"`
}

func parseStackBody(name, body string) (*stackBody, error) {
	var b stackBody
	if err := yaml.UnmarshalStrict([]byte(body), &b); err != nil {
		return nil, fmt.Errorf("invalid stack body: %w", err)
	}
	if b.Stack != "" && b.Stack != name {
		return nil, fmt.Errorf("stack body is for %q, not %q", b.Stack, name)
	}
	if len(b.Servers) == 0 {
		return nil, fmt.Errorf("stack body of %s has no servers", name)
	}
	seen := make(map[string]bool, len(b.Servers))
	for _, s := range b.Servers {
		switch {
		case s.Name == "":
			return nil, fmt.Errorf("stack body of %s has a server without a name", name)
		case seen[s.Name]:
			return nil, fmt.Errorf("stack body of %s lists server %s twice", name, s.Name)
		case s.ServerType == "" || s.Image == "":
			return nil, fmt.Errorf("server %s needs a server_type and an image", s.Name)
		}
		seen[s.Name] = true
	}
	return &b, nil
}
