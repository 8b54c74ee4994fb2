package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/barloc/internal/pipeline"
	"github.com/MeKo-Tech/barloc/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocketLocateRequest is a JSON text frame. Binary frames carry raw image bytes.
type WebSocketLocateRequest struct {
	Type      string `json:"type"` // "image"
	RequestID string `json:"request_id,omitempty"`
	Image     []byte `json:"image,omitempty"`
}

// WebSocketLocateResponse is sent for every request and status change.
type WebSocketLocateResponse struct {
	Type      string                `json:"type"`
	Status    string                `json:"status"` // "processing", "completed", "error"
	Result    *pipeline.ImageResult `json:"result,omitempty"`
	Error     string                `json:"error,omitempty"`
	ErrorType string                `json:"error_type,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

// WebSocketConnWriter is the write side of a WebSocket connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return s.corsOrigin == "" || s.corsOrigin == "*" || origin == "" || origin == s.corsOrigin
		},
	}
}

// locateWebSocketHandler streams localization results over a WebSocket.
func (s *Server) locateWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection reads frames until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.uploadLimit())
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	seq := 0
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		seq++

		switch messageType {
		case websocket.BinaryMessage:
			s.processWebSocketImage(ctx, conn, data, strconv.Itoa(seq))
		case websocket.TextMessage:
			s.handleWebSocketMessage(ctx, conn, data, strconv.Itoa(seq))
		}
	}
}

// handleWebSocketMessage processes a JSON text frame.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte, fallbackID string) {
	var req WebSocketLocateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, fallbackID, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	id := req.RequestID
	if id == "" {
		id = fallbackID
	}

	switch req.Type {
	case "image":
		s.processWebSocketImage(ctx, conn, req.Image, id)
	default:
		s.sendWebSocketError(conn, id, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

// processWebSocketImage localizes one image and reports progress.
func (s *Server) processWebSocketImage(ctx context.Context, conn WebSocketConnWriter, data []byte, requestID string) {
	if len(data) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	if s.pipeline == nil {
		s.sendWebSocketError(conn, requestID, "unavailable", "localization pipeline not initialized")
		return
	}

	img, _, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_image", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketLocateResponse{
		Type:      "locate_response",
		Status:    "processing",
		RequestID: requestID,
	})

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.pipeline.ProcessImageContext(pipeline.WithImageLabel(ctx, "ws_"+requestID), img)
	duration := time.Since(start)
	if err != nil {
		locateRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, requestID, "processing_error", fmt.Sprintf("localization failed: %v", err))
		return
	}

	locateRequestsTotal.WithLabelValues("websocket", "success").Inc()
	locateDuration.WithLabelValues("websocket").Observe(duration.Seconds())
	regionsFound.WithLabelValues("websocket").Observe(float64(len(res.Regions)))

	s.sendWebSocketResponse(conn, WebSocketLocateResponse{
		Type:      "locate_response",
		Status:    "completed",
		Result:    res,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketLocateResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketLocateResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
