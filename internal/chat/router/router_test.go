package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"reelconnect_service/internal/chat/app"
	"reelconnect_service/pkg/logger"
	"reelconnect_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func newApp() *fiber.App {
	r := fiber.New()
	RegisterRoutes(r,
		app.NewChatWebsocketHandler(nil, nil, 0),
		app.NewChatHTTPHandler(nil, nil, 0),
	)
	return r
}

func TestOpenRoutesSkipJWT(t *testing.T) {
	r := newApp()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/chat/health", fiber.StatusOK},
		{http.MethodPost, "/chat/debug?status=false", fiber.StatusOK},
		{http.MethodPost, "/chat/debug?status=maybe", fiber.StatusBadRequest},
		{http.MethodGet, "/metrics", fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, err := r.Test(httptest.NewRequest(tc.method, tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestProtectedRoutesNeedJWT(t *testing.T) {
	r := newApp()

	for _, path := range []string{
		"/chat/inbox",
		"/chat/projects/p1/participants",
		"/chat/rooms/group/p1/messages",
		"/ws",
	} {
		resp, err := r.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestWebsocketRouteNeedsUpgrade(t *testing.T) {
	r := newApp()
	tokenStr, err := token.GenerateJWT("u1", "Ada", string(token.RoleUser), "chat_service")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tokenStr)
	resp, err := r.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
