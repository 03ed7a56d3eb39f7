package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ocp-master", NodeBase(DefaultNodePrefix, "master"))
	assert.Equal(t, "ocp-compute-3", Node(DefaultNodePrefix, "compute", 3))
}

func TestShortName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fqdn string
		want string
	}{
		{"ocp-master-0.demo.example.com", "ocp-master-0"},
		{"ocp-master-0", "ocp-master-0"},
		{"", ""},
		{".example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.fqdn, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ShortName(tt.fqdn))
		})
	}
}

func TestDomains(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "demo.example.com", ServersDomain("demo", "example.com."))
	assert.Equal(t, "example.com", ServersDomain("", "example.com"))
	assert.Equal(t, "demo", ServersDomain("demo", ""))
	assert.Equal(t, "ocp-infra-0.demo.example.com", FQDN("ocp-infra-0", "demo.example.com"))
	assert.Equal(t, "apps.demo.example.com", AppsDomain("demo.example.com"))
	assert.Equal(t, "*.apps.demo.example.com", AppsWildcard("demo.example.com"))
	assert.Equal(t, "demo-ocp-infra-0", Server("demo", "ocp-infra-0"))
}
