package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trivia-board-service/internal/app"
)

// WSHandler streams game changes to scoreboard viewers.
type WSHandler struct {
	service  *app.BoardService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.BoardService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type deletedPayload struct {
	GameID string `json:"gameId"`
}

// frame is one queued write; final frames are followed by a close handshake.
type frame struct {
	msg   outboundMessage[any]
	final bool
}

// ServeWS upgrades the request and sends the game on connect and after every change.
// Viewers may send {"type":"refresh"} to receive the current game again.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	// Subscribe before reading so no change between the read and the first update is lost.
	updates, cancel := h.service.Updates().Subscribe(gameID)
	defer cancel()

	game, err := h.service.GetGame(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "game_id", gameID, "error", err)
		return
	}
	defer conn.Close()

	send := make(chan frame, 16)
	send <- frame{msg: outboundMessage[any]{Type: "game", Payload: game}}
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		closing := false
		for f := range send {
			if closing {
				continue
			}
			if err := conn.WriteJSON(f.msg); err != nil {
				slog.Warn("ws write failed", "game_id", gameID, "error", err)
				closing = true
				continue
			}
			if f.final {
				closing = true
				deadline := time.Now().Add(time.Second)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game deleted"), deadline)
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					select {
					case send <- frame{msg: outboundMessage[any]{Type: "deleted", Payload: deletedPayload{GameID: gameID}}, final: true}:
					case <-closeSignals:
					}
					return
				}
				select {
				case send <- frame{msg: outboundMessage[any]{Type: "game", Payload: update}}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			send <- frame{msg: outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid message"}}}
			continue
		}
		switch inbound.Type {
		case "refresh":
			current, err := h.service.GetGame(r.Context(), gameID)
			if err != nil {
				send <- frame{msg: outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}}
				continue
			}
			send <- frame{msg: outboundMessage[any]{Type: "game", Payload: current}}
		default:
			send <- frame{msg: outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
