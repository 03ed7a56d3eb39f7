package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/provisioning"
	ocptesting "github.com/imamik/ocpool/internal/testing"
)

func TestHandlers_RejectInvalidStackName(t *testing.T) {
	handlers := map[string]func(ctx context.Context, g Global, name string) error{
		"create": func(ctx context.Context, g Global, name string) error {
			return Create(ctx, g, name, demoTypes)
		},
		"deploy": func(ctx context.Context, g Global, name string) error {
			return Deploy(ctx, g, name, demoTypes, "3.7")
		},
		"delete": func(ctx context.Context, g Global, name string) error {
			return Delete(ctx, g, name, true)
		},
	}
	names := []string{"../escaped", "a/b", "Demo", "demo_lab", ""}

	for cmd, run := range handlers {
		for _, name := range names {
			t.Run(cmd+"/"+name, func(t *testing.T) {
				h := newHarness(t)

				err := run(ocptesting.TestContext(t), h.global, name)
				require.ErrorIs(t, err, provisioning.ErrInvalidTopology)
				assert.Equal(t, ExitValidation, ExitCode(err))
				assert.Zero(t, h.fakes.Backend.Mutations())

				_, err = os.Stat(filepath.Join(filepath.Dir(h.workspace), "escaped"))
				assert.True(t, os.IsNotExist(err))
				entries, err := os.ReadDir(h.workspace)
				require.NoError(t, err)
				for _, e := range entries {
					if e.IsDir() {
						assert.Equal(t, "playbooks", e.Name())
					}
				}
			})
		}
	}
}
