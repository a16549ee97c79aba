package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
)

type Event string

const (
	EventClassData Event = "class_data"
	EventProgress  Event = "progress"
)

// Message is one event from the generation stream. Data is left raw so each
// subscriber decodes only what it needs.
type Message struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Source is a transport that delivers messages for one course until it drops.
// Stream calls onOpen once the subscription is live and returns when the
// transport ends (nil on clean end) or ctx is done.
type Source interface {
	Stream(ctx context.Context, courseID string, onOpen func(), onMsg func(Message)) error
}

type ProgressPayload struct {
	Status   course.GenerationStatus `json:"status"`
	Progress json.RawMessage         `json:"progress,omitempty"`
	Message  string                  `json:"message,omitempty"`
}

func DecodeProgress(raw []byte) (ProgressPayload, error) {
	var p ProgressPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode progress: %w", err)
	}
	p.Status = course.GenerationStatus(strings.ToLower(strings.TrimSpace(string(p.Status))))
	if p.Status != "" && !p.Status.Valid() {
		return p, fmt.Errorf("decode progress: unknown status %q", p.Status)
	}
	return p, nil
}

// ProgressValue returns the numeric percent when the payload carried a number,
// or the raw text otherwise.
func (p ProgressPayload) ProgressValue() (pct int, text string, numeric bool) {
	raw := strings.TrimSpace(string(p.Progress))
	if raw == "" || raw == "null" {
		return 0, "", false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return clampPercent(int(f)), "", true
	}
	var s string
	if err := json.Unmarshal(p.Progress, &s); err == nil {
		return 0, s, false
	}
	return 0, raw, false
}
