package naming

import (
	"fmt"
	"strings"
)

// DefaultNodePrefix is the prefix of generated instance names.
const DefaultNodePrefix = "ocp"

// NodeBase returns the per-type base name, e.g. "ocp-master".
func NodeBase(prefix, nodeType string) string {
	return fmt.Sprintf("%s-%s", prefix, nodeType)
}

// Node returns the indexed instance name, e.g. "ocp-master-0".
func Node(prefix, nodeType string, index int) string {
	return fmt.Sprintf("%s-%d", NodeBase(prefix, nodeType), index)
}

// ShortName returns the first dot-separated label of fqdn.
func ShortName(fqdn string) string {
	short, _, _ := strings.Cut(fqdn, ".")
	return short
}

// ServersDomain joins the deployment subdomain with the DNS zone.
func ServersDomain(deployment, zone string) string {
	zone = strings.TrimSuffix(zone, ".")
	if deployment == "" {
		return zone
	}
	if zone == "" {
		return deployment
	}
	return deployment + "." + zone
}

// FQDN returns the fully qualified host name of an instance.
func FQDN(instance, serversDomain string) string {
	return instance + "." + serversDomain
}

// AppsDomain is the routing subdomain of the platform's applications.
func AppsDomain(serversDomain string) string {
	return "apps." + serversDomain
}

// AppsWildcard is the DNS record covering every application route.
func AppsWildcard(serversDomain string) string {
	return "*." + AppsDomain(serversDomain)
}

// Server returns the backend server name for an instance of a stack.
// Instance names repeat across stacks, server names must not.
func Server(stack, instance string) string {
	return fmt.Sprintf("%s-%s", stack, instance)
}
