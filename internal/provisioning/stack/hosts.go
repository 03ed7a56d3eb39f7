package stack

import (
	"fmt"
	"sort"
	"strings"

	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/util/naming"
)

// Output key conventions of a stack.
const (
	suffixPublicIP     = "_public_ip"
	suffixName         = "_name"
	suffixInstanceType = "_instance_type"

	// OutputDeploymentPQDN names the deployment subdomain output.
	OutputDeploymentPQDN = "ocp_deployment_pqdn"
)

// HostsData is derived from a stack's outputs. Maps are keyed by short name.
type HostsData struct {
	HostIPs             map[string]string
	HostNames           map[string]string
	InstanceTypes       map[string]provisioning.NodeType
	DeploymentSubdomain string
	ServersDomain       string
}

// ParseHostsData pattern-matches outputs by key suffix. Outputs matching no
// known suffix are ignored. Exactly one ocp_deployment_pqdn output is required.
func ParseHostsData(outputs []provisioning.Output, zone string) (*HostsData, error) {
	h := &HostsData{
		HostIPs:       make(map[string]string),
		HostNames:     make(map[string]string),
		InstanceTypes: make(map[string]provisioning.NodeType),
	}

	deployments := 0
	for _, o := range outputs {
		switch {
		case o.Key == OutputDeploymentPQDN:
			deployments++
			h.DeploymentSubdomain = o.Value
		case strings.HasSuffix(o.Key, suffixInstanceType):
			short := strings.TrimSuffix(o.Key, suffixInstanceType)
			// Unknown values stay unmapped so classification reports them.
			if t, err := provisioning.ParseNodeType(o.Value); err == nil {
				h.InstanceTypes[short] = t
			}
		case strings.HasSuffix(o.Key, suffixPublicIP):
			h.HostIPs[strings.TrimSuffix(o.Key, suffixPublicIP)] = o.Value
		case strings.HasSuffix(o.Key, suffixName):
			h.HostNames[strings.TrimSuffix(o.Key, suffixName)] = o.Value
		}
	}

	if deployments != 1 {
		return nil, fmt.Errorf("expected exactly one %s output, found %d", OutputDeploymentPQDN, deployments)
	}
	h.ServersDomain = naming.ServersDomain(h.DeploymentSubdomain, zone)
	return h, nil
}

// ShortNames returns the short names of all named hosts in sorted order.
func (h *HostsData) ShortNames() []string {
	names := make([]string, 0, len(h.HostNames))
	for short := range h.HostNames {
		names = append(names, short)
	}
	sort.Strings(names)
	return names
}

// FQDNs returns the host names in short-name order.
func (h *HostsData) FQDNs() []string {
	shorts := h.ShortNames()
	fqdns := make([]string, len(shorts))
	for i, short := range shorts {
		fqdns[i] = h.HostNames[short]
	}
	return fqdns
}

// NodeTypeOf classifies a host by the instance_type output of its short name.
func (h *HostsData) NodeTypeOf(fqdn string) (provisioning.NodeType, error) {
	t, ok := h.InstanceTypes[naming.ShortName(fqdn)]
	if !ok {
		return "", fmt.Errorf("%w: %s", provisioning.ErrCannotDetectNodeType, fqdn)
	}
	return t, nil
}

// AppsTargetIP returns the address the apps wildcard record points at: the
// first INFRA host with an address, else the first MASTER host.
func (h *HostsData) AppsTargetIP() (string, error) {
	shorts := make([]string, 0, len(h.InstanceTypes))
	for short := range h.InstanceTypes {
		shorts = append(shorts, short)
	}
	sort.Strings(shorts)

	for _, want := range []provisioning.NodeType{provisioning.NodeTypeInfra, provisioning.NodeTypeMaster} {
		for _, short := range shorts {
			if h.InstanceTypes[short] != want {
				continue
			}
			if ip := h.HostIPs[short]; ip != "" {
				return ip, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no infra or master host to route %s", provisioning.ErrCannotDetectNodeType, naming.AppsDomain(h.ServersDomain))
}

// HostRecords returns one A record per host that has both a name and an address.
func (h *HostsData) HostRecords() []provisioning.DNSRecord {
	var records []provisioning.DNSRecord
	for _, short := range h.ShortNames() {
		ip := h.HostIPs[short]
		if ip == "" {
			continue
		}
		records = append(records, provisioning.DNSRecord{Hostname: h.HostNames[short], IP: ip})
	}
	return records
}

// DNSRecords returns the host records plus the apps wildcard record.
func (h *HostsData) DNSRecords() ([]provisioning.DNSRecord, error) {
	appsIP, err := h.AppsTargetIP()
	if err != nil {
		return nil, err
	}
	records := h.HostRecords()
	return append(records, provisioning.DNSRecord{Hostname: naming.AppsWildcard(h.ServersDomain), IP: appsIP}), nil
}

// TeardownRecords returns the records to remove for this host set. The apps
// wildcard is always included, without an address if no target can be derived.
func (h *HostsData) TeardownRecords() []provisioning.DNSRecord {
	appsIP, _ := h.AppsTargetIP()
	records := h.HostRecords()
	return append(records, provisioning.DNSRecord{Hostname: naming.AppsWildcard(h.ServersDomain), IP: appsIP})
}
