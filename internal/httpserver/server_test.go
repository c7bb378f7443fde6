package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(addr string) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return NewServer(ServerConfig{Addr: addr, ShutdownTimeout: time.Second}, h, logger)
}

func TestServerServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- testServer("").Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err = http.Get("http://" + ln.Addr().String() + "/")
	assert.Error(t, err)
}

func TestServerRunAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = testServer(ln.Addr().String()).Run(context.Background())
	assert.ErrorContains(t, err, "listen on")
}

func TestServerConfigDefaults(t *testing.T) {
	s := testServer(":0")
	assert.Equal(t, 15*time.Second, s.srv.ReadTimeout)
	assert.Equal(t, 5*time.Second, s.srv.ReadHeaderTimeout)
	assert.Equal(t, 60*time.Second, s.srv.IdleTimeout)
	assert.Equal(t, time.Second, s.cfg.ShutdownTimeout)
}
