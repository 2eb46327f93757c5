package realtime

import "encoding/json"

type FrameType string

const (
	// Client to server.
	TypeJoin  FrameType = "join"
	TypeLeave FrameType = "leave"

	// Server to client.
	TypeJoined   FrameType = "joined"
	TypeLeft     FrameType = "left"
	TypeError    FrameType = "error"
	TypeShutdown FrameType = "shutdown"
)

func (t FrameType) String() string {
	return string(t)
}

// Frame is the envelope of every websocket message in both directions.
// Domain events such as comment.created reuse the same envelope with the
// event name as the type.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RoomPayload struct {
	WorkspaceID string `json:"workspace_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func marshalFrame(frameType FrameType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, Payload: raw})
}
