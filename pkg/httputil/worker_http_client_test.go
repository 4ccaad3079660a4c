package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMClientConfig(t *testing.T) {
	cfg := LLMClientConfig(45 * time.Second)

	assert.Equal(t, 45*time.Second, cfg.ResponseTimeout)
	assert.Equal(t, 10, cfg.MaxConnsPerHost)
	assert.Equal(t, DefaultClientConfig().DialTimeout, cfg.DialTimeout)
}

func TestNewClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(LLMClientConfig(5 * time.Second))
	assert.Equal(t, 5*time.Second, client.Timeout)

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 5, tr.MaxIdleConnsPerHost)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestNewClient_NilConfig(t *testing.T) {
	client := NewClient(nil)
	assert.Equal(t, 30*time.Second, client.Timeout)
}
