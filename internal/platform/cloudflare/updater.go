package cloudflare

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
)

const recordTypeA = "A"

// Updater applies A record batches to one Cloudflare zone.
type Updater struct {
	client  *Client
	zone    string
	ttl     int
	proxied bool

	mu     sync.Mutex
	zoneID string
}

// NewUpdater creates an updater for zone.
func NewUpdater(client *Client, zone string, ttl int, proxied bool) *Updater {
	return &Updater{
		client:  client,
		zone:    strings.TrimSuffix(zone, "."),
		ttl:     ttl,
		proxied: proxied,
	}
}

// NewUpdaterFromConfig creates an updater from the dns section of the config.
func NewUpdaterFromConfig(cfg config.DNSConfig) *Updater {
	return NewUpdater(NewClient(cfg.Cloudflare.APIToken), cfg.Zone, cfg.TTL, cfg.Cloudflare.Proxied)
}

// Apply implements provisioning.DNSUpdater. Registering replaces every A
// record of each hostname. Unregistering removes them.
func (u *Updater) Apply(ctx context.Context, op provisioning.DNSOperation, records []provisioning.DNSRecord) error {
	if op != provisioning.DNSRegister && op != provisioning.DNSUnregister {
		return fmt.Errorf("unknown DNS operation %q", op)
	}

	zoneID, err := u.lookupZone(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", provisioning.ErrNameServerUpdate, err)
	}

	for _, r := range records {
		name := strings.TrimSuffix(r.Hostname, ".")
		existing, err := u.client.ListRecords(ctx, zoneID, recordTypeA, name)
		if err != nil {
			return fmt.Errorf("%w: %w", provisioning.ErrNameServerUpdate, err)
		}
		for _, e := range existing {
			if err := u.client.DeleteRecord(ctx, zoneID, e.ID); err != nil {
				return fmt.Errorf("%w: %w", provisioning.ErrNameServerUpdate, err)
			}
		}
		if op == provisioning.DNSUnregister {
			continue
		}
		err = u.client.CreateRecord(ctx, zoneID, Record{
			Type:    recordTypeA,
			Name:    name,
			Content: r.IP,
			TTL:     u.ttl,
			Proxied: u.proxied,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", provisioning.ErrNameServerUpdate, err)
		}
	}
	return nil
}

func (u *Updater) lookupZone(ctx context.Context) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.zoneID != "" {
		return u.zoneID, nil
	}
	id, err := u.client.GetZoneID(ctx, u.zone)
	if err != nil {
		return "", err
	}
	u.zoneID = id
	return id, nil
}
