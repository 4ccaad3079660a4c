package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchase_worker/config"
)

func offlineConfig() *config.Config {
	return &config.Config{
		Port:                 "0",
		Environment:          "test",
		BodyLimitMB:          1,
		LLMProvider:          "anthropic",
		LLMMaxTokens:         1024,
		LLMTimeoutSec:        5,
		LLMFallbackThreshold: 0.5,
		BreakerMaxFailures:   3,
		BreakerOpenSec:       5,
		StreamBatch:          10,
		APIRatePerMin:        60,
		APIBurst:             5,
	}
}

func TestNewDependencies_Offline(t *testing.T) {
	deps, cleanup, err := NewDependencies(context.Background(), offlineConfig())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.Redis)
	assert.Nil(t, deps.Extractor)
	assert.NotNil(t, deps.LLMGuard)
	assert.False(t, deps.Service.LLMAvailable())

	sd := deps.serviceDeps()
	assert.Nil(t, sd.Repository)
	assert.Nil(t, sd.Cache)
	assert.Nil(t, sd.Publisher)
}

func TestNewDependencies_UnknownProvider(t *testing.T) {
	cfg := offlineConfig()
	cfg.LLMProvider = "bard"
	_, _, err := NewDependencies(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewAPI_Routes(t *testing.T) {
	deps, cleanup, err := NewDependencies(context.Background(), offlineConfig())
	require.NoError(t, err)
	defer cleanup()

	app := NewAPI(deps)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodPost, "/v1/emails/parse",
		strings.NewReader(`{"from":"orders@gobilda.com","subject":"Order #77001 confirmed","text":"Thank you for your order"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestNewWorker_RequiresRedis(t *testing.T) {
	deps, cleanup, err := NewDependencies(context.Background(), offlineConfig())
	require.NoError(t, err)
	defer cleanup()

	_, err = NewWorker(deps)
	assert.Error(t, err)
}
