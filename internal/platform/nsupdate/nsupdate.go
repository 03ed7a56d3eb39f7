// Package nsupdate applies DNS record batches by piping them into
// nsupdate(1), optionally authenticated with a TSIG key file.
package nsupdate

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/templates"
)

// Updater implements provisioning.DNSUpdater.
type Updater struct {
	Binary  string
	KeyFile string
	Server  string
	Zone    string
	TTL     int
}

// NewUpdaterFromConfig creates an updater from the dns section of the config.
func NewUpdaterFromConfig(cfg config.DNSConfig) *Updater {
	binary := cfg.NSUpdate.Binary
	if binary == "" {
		binary = config.DefaultNSUpdateBinary
	}
	return &Updater{
		Binary:  binary,
		KeyFile: cfg.NSUpdate.KeyFile,
		Server:  cfg.NSUpdate.Server,
		Zone:    cfg.Zone,
		TTL:     cfg.TTL,
	}
}

// Args returns the nsupdate command line arguments.
func (u *Updater) Args() []string {
	if u.KeyFile == "" {
		return nil
	}
	return []string{"-k", u.KeyFile}
}

// Batch renders the nsupdate input for op.
func (u *Updater) Batch(op provisioning.DNSOperation, records []provisioning.DNSRecord) ([]byte, error) {
	return templates.RenderDNS(op, templates.DNSData{
		Server:  u.Server,
		Zone:    u.Zone,
		TTL:     u.TTL,
		Records: records,
	})
}

// Apply implements provisioning.DNSUpdater.
func (u *Updater) Apply(ctx context.Context, op provisioning.DNSOperation, records []provisioning.DNSRecord) error {
	batch, err := u.Batch(op, records)
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, u.Binary, u.Args()...) // #nosec G204 -- binary comes from the config file
	cmd.Stdin = bytes.NewReader(batch)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%w: nsupdate %s: %w", provisioning.ErrNameServerUpdate, op, err)
		}
		return fmt.Errorf("%w: nsupdate %s: %w: %s", provisioning.ErrNameServerUpdate, op, err, msg)
	}
	return nil
}
