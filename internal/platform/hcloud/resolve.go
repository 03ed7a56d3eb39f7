package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

func (b *Backend) resolveServerType(ctx context.Context, name string) (*hcloud.ServerType, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	st, _, err := b.client.ServerType.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get server type: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("server type not found: %s", name)
	}
	return st, nil
}

// resolveImage returns the image called name built for arch.
func (b *Backend) resolveImage(ctx context.Context, name string, arch hcloud.Architecture) (*hcloud.Image, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	image, _, err := b.client.Image.GetForArchitecture(ctx, name, arch)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if image == nil {
		return nil, fmt.Errorf("image not found: %s (%s)", name, arch)
	}
	return image, nil
}

// resolveLocation resolves a location name to a location object.
func (b *Backend) resolveLocation(ctx context.Context, location string) (*hcloud.Location, error) {
	if location == "" {
		return nil, nil
	}
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	loc, _, err := b.client.Location.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to get location %s: %w", location, err)
	}
	if loc == nil {
		return nil, fmt.Errorf("location not found: %s", location)
	}
	return loc, nil
}

// resolveSSHKeys resolves SSH key names or IDs to SSH key objects.
func (b *Backend) resolveSSHKeys(ctx context.Context, keys []string) ([]*hcloud.SSHKey, error) {
	var out []*hcloud.SSHKey
	for _, key := range keys {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		k, _, err := b.client.SSHKey.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get ssh key %s: %w", key, err)
		}
		if k == nil {
			return nil, fmt.Errorf("ssh key not found: %s", key)
		}
		out = append(out, k)
	}
	return out, nil
}

// ServerIPv4 returns the public IPv4 address of s, or "".
func ServerIPv4(s *hcloud.Server) string {
	if s == nil || s.PublicNet.IPv4.IP == nil || s.PublicNet.IPv4.IP.IsUnspecified() {
		return ""
	}
	return s.PublicNet.IPv4.IP.String()
}
