package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-local/internal/view"
)

const (
	ActionState   = "game:state"
	ActionMove    = "game:move"
	ActionRestart = "game:restart"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type MovePayload struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type ResponsePayload struct {
	Game  *view.Game `json:"game,omitempty"`
	Error string     `json:"error,omitempty"`
}

type Response struct {
	Action  string          `json:"action"`
	Payload ResponsePayload `json:"payload"`
}
