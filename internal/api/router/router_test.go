package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"

	"github.com/easyfitness/trainerbot/internal/whatsapp"
	"github.com/easyfitness/trainerbot/pkg/logging"
)

type noopEngine struct{}

func (noopEngine) HandleMessage(context.Context, string, string) (string, error) { return "ok", nil }

type noopSender struct{}

func (noopSender) SendText(context.Context, string, string) error { return nil }

func newTestRouter() http.Handler {
	logger := logging.New("error")
	webhook := whatsapp.NewHandler("token", noopEngine{}, noopSender{}, whatsapp.NewSeenCache(10), nil, logger)
	reg := prometheus.NewRegistry()
	return New(&Config{
		Logger:         logger,
		Webhook:        webhook,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhookVerifyRouted(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=token&hub.challenge=777", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "777", rec.Body.String())
}

func TestMetricsEndpointMounted(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
