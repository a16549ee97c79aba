package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-editor/internal/realtime"
)

// TokenSource supplies the bearer credential for authenticated transports.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// envelope is the framing used when the event name travels inside the payload
// (redis pub/sub, and SSE frames sent as the generic "message" event).
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func decodeEnvelope(raw []byte) (realtime.Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return realtime.Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	name := strings.TrimSpace(env.Event)
	if name == "" {
		return realtime.Message{}, fmt.Errorf("decode envelope: missing event")
	}
	return realtime.Message{Event: realtime.Event(name), Data: env.Data}, nil
}

// Encode frames msg for publishing through a transport that carries envelopes.
func Encode(msg realtime.Message) ([]byte, error) {
	return json.Marshal(envelope{Event: string(msg.Event), Data: msg.Data})
}
