package handlers

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/config"
	ocptesting "github.com/imamik/ocpool/internal/testing"
)

func TestServe(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, Deploy(ocptesting.TestContext(t), h.global, "demo", demoTypes, "3.7"))

	origListening := onListening
	t.Cleanup(func() { onListening = origListening })
	addrCh := make(chan string, 1)
	onListening = func(addr string) { addrCh <- addr }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, h.global, "127.0.0.1:0")
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("serve returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/clusters/demo")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"demo"`)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_InvalidSchedule(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Server.ReloadSchedule = "every now and then"
	})

	err := Serve(ocptesting.TestContext(t), h.global, "127.0.0.1:0")
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))
}
