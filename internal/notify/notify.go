package notify

import (
	"context"

	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
	"github.com/yungbote/neurobridge-editor/internal/sse"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is user-visible feedback about an editor action.
type Notification struct {
	Level    Level  `json:"level"`
	Message  string `json:"message"`
	CourseID string `json:"course_id,omitempty"`
	ClassID  string `json:"class_id,omitempty"`
	SlideID  string `json:"slide_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// LogSink writes notifications to the structured log.
type LogSink struct{ Log *logger.Logger }

func (s *LogSink) Notify(ctx context.Context, n Notification) {
	if s == nil || s.Log == nil {
		return
	}
	kv := []interface{}{"level", n.Level, "course_id", n.CourseID}
	if n.ClassID != "" {
		kv = append(kv, "class_id", n.ClassID)
	}
	if n.SlideID != "" {
		kv = append(kv, "slide_id", n.SlideID)
	}
	if n.Error != "" {
		kv = append(kv, "error", n.Error)
		s.Log.Warn(n.Message, kv...)
		return
	}
	s.Log.Info(n.Message, kv...)
}

// HubSink fans notifications out to SSE clients watching the course.
type HubSink struct{ Hub *sse.Hub }

func (s *HubSink) Notify(ctx context.Context, n Notification) {
	if s == nil || s.Hub == nil || n.CourseID == "" {
		return
	}
	s.Hub.Broadcast(sse.Message{
		Channel: n.CourseID,
		Event:   sse.EventNotification,
		Data:    n,
	})
}

type multi []Sink

func (m multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}

// Multi delivers to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Recorder buffers notifications for later inspection.
type Recorder struct {
	ch chan Notification
}

func NewRecorder(buf int) *Recorder {
	if buf <= 0 {
		buf = 64
	}
	return &Recorder{ch: make(chan Notification, buf)}
}

func (r *Recorder) Notify(ctx context.Context, n Notification) {
	select {
	case r.ch <- n:
	default:
	}
}

// Drain returns everything recorded so far.
func (r *Recorder) Drain() []Notification {
	var out []Notification
	for {
		select {
		case n := <-r.ch:
			out = append(out, n)
		default:
			return out
		}
	}
}
