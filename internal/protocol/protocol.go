package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeCmd     = "CMD"
	TypeResult  = "RESULT"
)

// Grid operations carried by CMD messages.
const (
	OpGet          = "get"
	OpSet          = "set"
	OpGetContext   = "get_context"
	OpWorldToChunk = "world_to_chunk"
	OpRemoveChunk  = "remove_chunk"
	OpClear        = "clear"
	OpView         = "view"
	OpViewChunk    = "view_chunk"
	OpViewRect     = "view_rect"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
