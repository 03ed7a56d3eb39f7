package testing

import (
	"context"
	"testing"
	"time"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning/stack"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// StackSettings returns orchestrator settings rooted at workspace with the
// shortened test timeouts.
func StackSettings(workspace string) stack.Settings {
	return stack.Settings{
		Workspace:  workspace,
		Zone:       "example.com",
		NameServer: "ns1.example.com",
		TTL:        config.DefaultDNSTTL,
		Template: stack.TemplateParams{
			Location: "fsn1",
			Image:    "rhel-7",
			ServerTypes: map[string]string{
				"master":  "cx41",
				"infra":   "cx31",
				"compute": "cx31",
			},
		},
		Timeouts: config.TestTimeouts(),
	}
}
