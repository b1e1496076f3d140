package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/docuchat-ai/docuchat/services/engine"
	"github.com/docuchat-ai/docuchat/services/gateway/conversation"
	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
	"github.com/docuchat-ai/docuchat/services/gateway/observability"
)

// WSRequest is one chat turn sent by a websocket client.
type WSRequest struct {
	Messages []datatypes.Message `json:"messages"`
}

// WSEvent mirrors the SSE event types over the websocket framing.
type WSEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionId string `json:"session_id,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleChatWebSocket streams chat answers over a websocket connection.
// Each inbound frame is a full conversation, validated the same way as the
// SSE endpoint; outbound frames mirror the SSE event types (status, token,
// error, done).
func HandleChatWebSocket(chatEngine engine.ChatEngine, docsOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := observability.EndpointChatWS

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("Websocket client connected")

		sessionID := uuid.New().String()
		slog.Info("New websocket session started", "sessionID", sessionID)

		if err := sendJSON(ws, map[string]interface{}{
			"action":    "session_created",
			"sessionId": sessionID,
		}); err != nil {
			return // Close if we can't even send the first message
		}

		for {
			var req WSRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				break
			}

			ctx := c.Request.Context()

			chatReq := datatypes.ChatRequest{Messages: req.Messages}
			if err := chatReq.Validate(); err != nil {
				if m := observability.DefaultMetrics; m != nil {
					m.RecordError(endpoint, observability.ErrorCodeValidation)
				}
				if sendJSON(ws, WSEvent{Type: "error", Error: datatypes.ValidationFailedMessage}) != nil {
					return
				}
				continue
			}
			if err := chatReq.ValidateConversation(); err != nil {
				if m := observability.DefaultMetrics; m != nil {
					m.RecordError(endpoint, observability.ErrorCodeValidation)
				}
				if sendJSON(ws, WSEvent{Type: "error", Error: datatypes.ConversationRequiredMessage}) != nil {
					return
				}
				continue
			}

			history, currentTurn := conversation.Split(chatReq.Messages)
			if docsOnly {
				history = conversation.WithDocsOnlyPrompt(history)
			}

			if sendJSON(ws, WSEvent{Type: "status", Message: "Generating response..."}) != nil {
				return
			}

			tokenCount := 0
			streamErr := chatEngine.ChatStream(ctx, currentTurn, history, func(event engine.StreamEvent) error {
				switch event.Type {
				case engine.StreamEventToken:
					tokenCount++
					return sendJSON(ws, WSEvent{Type: "token", Content: event.Content})
				case engine.StreamEventError:
					return sendJSON(ws, WSEvent{Type: "error", Error: sanitizeErrorForClient(event.Err)})
				}
				return nil
			})
			if streamErr != nil {
				slog.Error("Websocket streaming failed",
					"error", streamErr,
					"sessionID", sessionID,
					"tokenCount", tokenCount,
				)
				if m := observability.DefaultMetrics; m != nil {
					m.RecordError(endpoint, observability.ErrorCodeEngine)
				}
				if sendJSON(ws, WSEvent{Type: "error", Error: sanitizeErrorForClient(streamErr.Error())}) != nil {
					return
				}
				continue
			}

			if m := observability.DefaultMetrics; m != nil {
				m.RecordTokens(endpoint, tokenCount)
				m.RecordRequest(endpoint, true)
			}
			if sendJSON(ws, WSEvent{Type: "done", SessionId: sessionID}) != nil {
				return
			}
		}
	}
}
