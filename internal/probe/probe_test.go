package probe

import (
	"context"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/config"
)

func TestPing_Args(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		want    []string
	}{
		{name: "default", timeout: time.Second, want: []string{"-c", "1", "-W", "1", "ocp-master-0.demo.example.com"}},
		{name: "sub-second rounds up", timeout: 100 * time.Millisecond, want: []string{"-c", "1", "-W", "1", "ocp-master-0.demo.example.com"}},
		{name: "longer wait", timeout: 3 * time.Second, want: []string{"-c", "1", "-W", "3", "ocp-master-0.demo.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPing()
			p.Timeout = tt.timeout
			assert.Equal(t, tt.want, p.Args("ocp-master-0.demo.example.com"))
		})
	}
}

func TestPing_ExitStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		binary string
		want   bool
	}{
		{name: "success", binary: "true", want: true},
		{name: "failure", binary: "false", want: false},
		{name: "missing binary", binary: "ocpool-no-such-ping", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := exec.LookPath("true"); err != nil {
				t.Skip("true(1) not available")
			}
			p := NewPing()
			p.Binary = tt.binary
			assert.Equal(t, tt.want, p.Reachable(context.Background(), "host"))
		})
	}
}

func TestTCP_Reachable(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	p := NewTCP(port)
	assert.True(t, p.Reachable(context.Background(), "127.0.0.1"))

	require.NoError(t, listener.Close())
	assert.False(t, p.Reachable(context.Background(), "127.0.0.1"))
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	p, err := FromConfig(config.ProbeConfig{})
	require.NoError(t, err)
	assert.IsType(t, &Ping{}, p)

	p, err = FromConfig(config.ProbeConfig{Method: config.ProbeMethodTCP, Port: 2222})
	require.NoError(t, err)
	require.IsType(t, &TCP{}, p)
	assert.Equal(t, 2222, p.(*TCP).Port)

	_, err = FromConfig(config.ProbeConfig{Method: "carrier-pigeon"})
	assert.Error(t, err)
}
