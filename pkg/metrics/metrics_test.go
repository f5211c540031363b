package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesChatMetrics(t *testing.T) {
	MessagesSent.WithLabelValues("group").Inc()
	SendFailures.Inc()

	app := fiber.New()
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `chat_messages_sent_total{kind="group"}`)
	assert.Contains(t, string(body), "chat_send_failures_total")
	assert.Contains(t, string(body), "chat_active_connections")
}
