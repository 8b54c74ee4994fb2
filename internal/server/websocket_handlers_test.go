package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/locate"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) WebSocketLocateResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var resp WebSocketLocateResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestWebSocket_BinaryFrame(t *testing.T) {
	conn := dialTestServer(t, newTestServer(&mockLocator{}))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, checkerPNG(t)))

	first := readResponse(t, conn)
	assert.Equal(t, "processing", first.Status)
	assert.Equal(t, "1", first.RequestID)

	done := readResponse(t, conn)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, "1", done.RequestID)
	require.NotNil(t, done.Result)
	assert.Len(t, done.Result.Regions, 1)

	// request ids follow the frame sequence
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, checkerPNG(t)))
	assert.Equal(t, "2", readResponse(t, conn).RequestID)
	assert.Equal(t, "completed", readResponse(t, conn).Status)
}

func TestWebSocket_JSONFrame(t *testing.T) {
	conn := dialTestServer(t, newTestServer(&mockLocator{}))

	req := WebSocketLocateRequest{Type: "image", RequestID: "abc", Image: checkerPNG(t)}
	require.NoError(t, conn.WriteJSON(req))

	assert.Equal(t, "processing", readResponse(t, conn).Status)
	done := readResponse(t, conn)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, "abc", done.RequestID)
}

func TestWebSocket_Errors(t *testing.T) {
	tests := []struct {
		name      string
		loc       *mockLocator
		msgType   int
		payload   func(t *testing.T) []byte
		errorType string
		skipFirst bool
	}{
		{
			name:      "invalid json",
			loc:       &mockLocator{},
			msgType:   websocket.TextMessage,
			payload:   func(*testing.T) []byte { return []byte("{") },
			errorType: "invalid_request",
		},
		{
			name:    "unsupported type",
			loc:     &mockLocator{},
			msgType: websocket.TextMessage,
			payload: func(*testing.T) []byte {
				b, _ := json.Marshal(WebSocketLocateRequest{Type: "pdf"})
				return b
			},
			errorType: "invalid_request",
		},
		{
			name:      "empty image",
			loc:       &mockLocator{},
			msgType:   websocket.TextMessage,
			payload:   func(*testing.T) []byte { return []byte(`{"type":"image"}`) },
			errorType: "invalid_request",
		},
		{
			name:      "undecodable",
			loc:       &mockLocator{},
			msgType:   websocket.BinaryMessage,
			payload:   func(*testing.T) []byte { return []byte("garbage") },
			errorType: "invalid_image",
		},
		{
			name:      "pipeline failure",
			loc:       &mockLocator{imageErr: errors.New("boom")},
			msgType:   websocket.BinaryMessage,
			payload:   checkerPNG,
			errorType: "processing_error",
			skipFirst: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dialTestServer(t, newTestServer(tt.loc))
			require.NoError(t, conn.WriteMessage(tt.msgType, tt.payload(t)))

			resp := readResponse(t, conn)
			if tt.skipFirst {
				require.Equal(t, "processing", resp.Status)
				resp = readResponse(t, conn)
			}
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.errorType, resp.ErrorType)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

type recordingConn struct {
	messages [][]byte
	err      error
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, data)
	return nil
}

func TestSendWebSocketError(t *testing.T) {
	s := newTestServer(&mockLocator{})
	conn := &recordingConn{}
	s.sendWebSocketError(conn, "7", "invalid_request", "bad")

	require.Len(t, conn.messages, 1)
	var resp WebSocketLocateResponse
	require.NoError(t, json.Unmarshal(conn.messages[0], &resp))
	assert.Equal(t, WebSocketLocateResponse{Type: "error", Status: "error", Error: "bad", ErrorType: "invalid_request", RequestID: "7"}, resp)

	failing := &recordingConn{err: errors.New("closed")}
	s.sendWebSocketError(failing, "8", "x", "y")
	assert.Empty(t, failing.messages)
}

func TestWebSocket_CheckOrigin(t *testing.T) {
	s := newTestServer(&mockLocator{})
	s.corsOrigin = "https://app.example"
	check := s.upgrader().CheckOrigin

	req := httptest.NewRequest("GET", "/ws/locate", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://app.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}
