package notify

import (
	"context"
	"testing"

	"github.com/yungbote/neurobridge-editor/internal/sse"
)

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	a := NewRecorder(4)
	b := NewRecorder(4)
	s := Multi(a, nil, b)
	s.Notify(context.Background(), Notification{Level: LevelSuccess, Message: "ok"})

	if got := a.Drain(); len(got) != 1 || got[0].Message != "ok" {
		t.Fatalf("first sink: %+v", got)
	}
	if got := b.Drain(); len(got) != 1 {
		t.Fatalf("second sink: want=1 got=%d", len(got))
	}
}

func TestHubSinkBroadcastsOnCourseChannel(t *testing.T) {
	hub := sse.NewHub(nil)
	c := hub.NewClient()
	hub.AddChannel(c, "course-1")

	sink := &HubSink{Hub: hub}
	sink.Notify(context.Background(), Notification{Level: LevelError, Message: "Failed to update class", CourseID: "course-1"})
	sink.Notify(context.Background(), Notification{Level: LevelError, Message: "no course"})

	select {
	case m := <-c.Outbound:
		n, ok := m.Data.(Notification)
		if !ok || n.Message != "Failed to update class" || m.Event != sse.EventNotification {
			t.Fatalf("message: %+v", m)
		}
	default:
		t.Fatalf("no broadcast")
	}
	if len(c.Outbound) != 0 {
		t.Fatalf("notification without course id must not broadcast")
	}
}
