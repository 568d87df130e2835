package bootstrap

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.Addr = ""

	srv := NewHTTPServer(cfg.HTTP, http.NotFoundHandler())

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, cfg.HTTP.ReadHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, cfg.HTTP.WriteTimeout, srv.WriteTimeout)
	assert.Equal(t, cfg.HTTP.IdleTimeout, srv.IdleTimeout)
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	cfg := serviceConfig(t)
	svc := testServices(t, &cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RunOptions{
			Server:          NewHTTPServer(cfg.HTTP, svc.Handler),
			Services:        svc,
			Listener:        ln,
			SweepInterval:   10 * time.Millisecond,
			ShutdownTimeout: time.Second,
			Logger:          discardLogger(),
		})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_RequiresServerAndServices(t *testing.T) {
	assert.Error(t, Run(context.Background(), RunOptions{}))
}
