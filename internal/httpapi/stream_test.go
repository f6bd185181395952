package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headset-bridge/internal/devices"
	"headset-bridge/internal/headset"
	"headset-bridge/internal/vendors"
)

func newStreamServer(t *testing.T, opts StreamOptions) (*httptest.Server, *headset.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch := headset.New(devices.NewMatcher(nil), nil, headset.Options{})
	h := Handlers{Headset: orch, Stream: opts}
	r := gin.New()
	r.GET("/v1/events", h.Events)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, orch
}

func dialStream(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestEventsStreamsSessionChanges(t *testing.T) {
	srv, orch := newStreamServer(t, StreamOptions{})
	conn := dialStream(t, srv, nil)

	first := readMessage(t, conn)
	require.Equal(t, messageStatus, first.Type)
	require.NotNil(t, first.Status)
	assert.Nil(t, first.Status.Session)

	_, err := orch.IncomingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-1", ContactName: "Ada"})
	require.NoError(t, err)

	msg := readMessage(t, conn)
	require.Equal(t, messageEvent, msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, headset.EventSessionChanged, msg.Event.Type)
	assert.Equal(t, "incoming_call", msg.Event.Command)
	require.NotNil(t, msg.Event.Session)
	assert.Equal(t, "conv-1", msg.Event.Session.ConversationID)

	require.NoError(t, orch.End(context.Background()))
	msg = readMessage(t, conn)
	assert.Equal(t, "end", msg.Event.Command)
	assert.Nil(t, msg.Event.Session)
}

func TestEventsClosesWithOrchestrator(t *testing.T) {
	srv, orch := newStreamServer(t, StreamOptions{})
	conn := dialStream(t, srv, nil)
	_ = readMessage(t, conn)

	orch.Close(context.Background())

	msg := readMessage(t, conn)
	assert.Equal(t, messageClosed, msg.Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestEventsRejectsForeignOrigin(t *testing.T) {
	srv, _ := newStreamServer(t, StreamOptions{AllowedOrigins: []string{"https://apps.example.com"}})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.net"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dialStream(t, srv, http.Header{"Origin": {"https://apps.example.com"}})
	assert.Equal(t, messageStatus, readMessage(t, conn).Type)
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed(nil, "https://anything.example"))
	assert.True(t, originAllowed([]string{"https://a.example"}, ""))
	assert.True(t, originAllowed([]string{"*"}, "https://b.example"))
	assert.True(t, originAllowed([]string{"https://A.example"}, "https://a.example"))
	assert.False(t, originAllowed([]string{"https://a.example"}, "https://b.example"))
}
