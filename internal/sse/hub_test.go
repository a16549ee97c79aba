package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBroadcastOnlyReachesChannel(t *testing.T) {
	h := NewHub(nil)
	a := h.NewClient()
	b := h.NewClient()
	h.AddChannel(a, "course-1")
	h.AddChannel(b, "course-2")

	h.Broadcast(Message{Channel: "course-1", Event: EventCourseChanged})
	select {
	case m := <-a.Outbound:
		if m.Event != EventCourseChanged {
			t.Fatalf("event: want=%q got=%q", EventCourseChanged, m.Event)
		}
	default:
		t.Fatalf("subscriber did not receive message")
	}
	select {
	case m := <-b.Outbound:
		t.Fatalf("other channel received %+v", m)
	default:
	}

	h.CloseClient(a)
	h.CloseClient(a)
	if n := h.Subscribers("course-1"); n != 0 {
		t.Fatalf("subscribers after close: want=0 got=%d", n)
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub(nil)
	c := h.NewClient()
	h.AddChannel(c, "x")
	for i := 0; i < cap(c.Outbound)+5; i++ {
		h.Broadcast(Message{Channel: "x", Event: EventProgress})
	}
	if len(c.Outbound) != cap(c.Outbound) {
		t.Fatalf("buffer: want full=%d got=%d", cap(c.Outbound), len(c.Outbound))
	}
}

func TestServeHTTPWritesEnvelope(t *testing.T) {
	h := NewHub(nil)
	c := h.NewClient()
	h.AddChannel(c, "course-1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r, c)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: got=%q", ct)
	}

	h.Broadcast(Message{Channel: "course-1", Event: EventNotification, Data: map[string]any{"message": "hi"}})

	br := bufio.NewReader(resp.Body)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var m Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if m.Event != EventNotification || m.Channel != "course-1" {
			t.Fatalf("message: %+v", m)
		}
		return
	}
}
