package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
)

const actionView = "view"

// Message is a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	Phase entity.Phase `json:"phase"`
	View  entity.View  `json:"view"`
}
