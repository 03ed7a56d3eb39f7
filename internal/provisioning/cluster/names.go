package cluster

import (
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/util/naming"
)

// GenNodeNames returns one instance name per node type, in input order. Each
// name is "<prefix>-<type>-<n>" where n is the smallest index not yet used
// for that type within the call.
func GenNodeNames(prefix string, types []provisioning.NodeType) []string {
	if prefix == "" {
		prefix = naming.DefaultNodePrefix
	}

	used := make(map[string]map[int]bool)
	names := make([]string, 0, len(types))
	for _, t := range types {
		base := t.String()
		if used[base] == nil {
			used[base] = make(map[int]bool)
		}
		idx := 0
		for used[base][idx] {
			idx++
		}
		used[base][idx] = true
		names = append(names, naming.Node(prefix, base, idx))
	}
	return names
}
