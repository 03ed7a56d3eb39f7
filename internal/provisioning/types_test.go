package provisioning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []NodeType
		wantErr bool
	}{
		{name: "canonical", input: "master,infra,compute", want: []NodeType{NodeTypeMaster, NodeTypeInfra, NodeTypeCompute}},
		{name: "mixed case and spaces", input: "Master, COMPUTE ,compute", want: []NodeType{NodeTypeMaster, NodeTypeCompute, NodeTypeCompute}},
		{name: "unknown", input: "master,worker", wantErr: true},
		{name: "empty", input: " ", wantErr: true},
		{name: "trailing comma", input: "master,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseNodeTypes(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidNodeType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckTopology(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		types   []NodeType
		wantErr error
	}{
		{name: "master and compute", types: []NodeType{NodeTypeMaster, NodeTypeCompute}},
		{name: "master and infra", types: []NodeType{NodeTypeInfra, NodeTypeMaster}},
		{name: "no master", types: []NodeType{NodeTypeInfra, NodeTypeCompute}, wantErr: ErrInvalidTopology},
		{name: "only masters", types: []NodeType{NodeTypeMaster, NodeTypeMaster}, wantErr: ErrInvalidTopology},
		{name: "empty", types: nil, wantErr: ErrInvalidTopology},
		{name: "bogus type", types: []NodeType{NodeTypeMaster, NodeTypeCompute, "gpu"}, wantErr: ErrInvalidNodeType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := CheckTopology(tt.types)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewStackSpec(t *testing.T) {
	t.Parallel()

	spec, err := NewStackSpec("demo",
		[]string{"ocp-master-0", "ocp-compute-0"},
		[]NodeType{NodeTypeMaster, NodeTypeCompute})
	require.NoError(t, err)
	assert.Equal(t, "demo", spec.Name)
	assert.Equal(t, []InstanceSpec{
		{Name: "ocp-master-0", Type: NodeTypeMaster},
		{Name: "ocp-compute-0", Type: NodeTypeCompute},
	}, spec.Instances)

	_, err = NewStackSpec("demo", []string{"a"}, []NodeType{NodeTypeMaster, NodeTypeCompute})
	assert.ErrorIs(t, err, ErrInvalidTopology)

	_, err = NewStackSpec("demo", []string{"a", "b"}, []NodeType{NodeTypeInfra, NodeTypeCompute})
	assert.ErrorIs(t, err, ErrInvalidTopology)

	_, err = NewStackSpec("demo", []string{"a", "a"}, []NodeType{NodeTypeMaster, NodeTypeCompute})
	assert.ErrorIs(t, err, ErrInvalidTopology)

	_, err = NewStackSpec("", []string{"a"}, []NodeType{NodeTypeMaster})
	assert.ErrorIs(t, err, ErrInvalidTopology)

	_, err = NewStackSpec("../escaped", []string{"a", "b"}, []NodeType{NodeTypeMaster, NodeTypeCompute})
	assert.ErrorIs(t, err, ErrInvalidTopology)
}

func TestValidateStackName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "demo"},
		{name: "single char", input: "a"},
		{name: "hyphen and digits", input: "ocp-311-lab"},
		{name: "max length", input: strings.Repeat("a", 32)},
		{name: "empty", input: "", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 33), wantErr: true},
		{name: "parent dir", input: "../escaped", wantErr: true},
		{name: "nested path", input: "a/b", wantErr: true},
		{name: "dot", input: "demo.lab", wantErr: true},
		{name: "uppercase", input: "Demo", wantErr: true},
		{name: "underscore", input: "demo_lab", wantErr: true},
		{name: "leading hyphen", input: "-demo", wantErr: true},
		{name: "trailing hyphen", input: "demo-", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStackName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTopology)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseStackStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusCreateComplete, ParseStackStatus("create_complete"))
	assert.Equal(t, StatusDeleteInProgress, ParseStackStatus(" Delete_In_Progress "))
	assert.Equal(t, StatusUnknown, ParseStackStatus("ROLLBACK_COMPLETE"))
	assert.Equal(t, StatusUnknown, ParseStackStatus(""))

	assert.True(t, StatusCreateFailed.Inspectable())
	assert.True(t, StatusCreateComplete.Inspectable())
	assert.False(t, StatusCreateInProgress.Inspectable())
	assert.True(t, StatusDeleteComplete.IsDeleted())
	assert.False(t, StatusCreateComplete.IsDeleted())
}
