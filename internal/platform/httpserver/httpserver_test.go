package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vaultline/internal/platform/config"
)

func TestNew(t *testing.T) {
	handler := http.NewServeMux()
	srv := New(config.Server{
		Addr:              ":9191",
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       time.Minute,
	}, handler)

	assert.Equal(t, ":9191", srv.Addr)
	assert.Same(t, handler, srv.Handler)
	assert.Equal(t, 2*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
	assert.Zero(t, srv.WriteTimeout, "streaming responses must not be cut off")
}
