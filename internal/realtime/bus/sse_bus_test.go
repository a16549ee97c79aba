package bus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/neurobridge-editor/internal/realtime"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func TestReadSSEFrames(t *testing.T) {
	in := ": ping\n\nevent: progress\ndata: {\"status\":\"starting\"}\n\ndata: a\ndata: b\n\nevent: class_data\ndata: {}"
	type frame struct{ event, data string }
	var got []frame
	err := readSSE(strings.NewReader(in), func(event, data string) error {
		got = append(got, frame{event, data})
		return nil
	})
	if err != nil {
		t.Fatalf("readSSE: %v", err)
	}
	want := []frame{
		{"progress", `{"status":"starting"}`},
		{"", "a\nb"},
		{"class_data", "{}"},
	}
	if len(got) != len(want) {
		t.Fatalf("frames: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: want=%v got=%v", i, want[i], got[i])
		}
	}
}

func TestSSESourceStreamsNamedAndEnvelopedEvents(t *testing.T) {
	var (
		gotAuth   string
		gotCourse string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCourse = r.URL.Query().Get("courseId")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: progress\ndata: {\"status\":\"processing\",\"progress\":10}\n\n")
		fmt.Fprint(w, "event: message\ndata: {\"event\":\"class_data\",\"data\":{\"classId\":\"c1\"}}\n\n")
		fmt.Fprint(w, "event: message\ndata: not-json\n\n")
	}))
	defer srv.Close()

	src, err := NewSSESource(nil, srv.URL, staticToken("tok"), srv.Client())
	if err != nil {
		t.Fatalf("NewSSESource: %v", err)
	}
	opened := false
	var msgs []realtime.Message
	err = src.Stream(context.Background(), "course-9", func() { opened = true }, func(m realtime.Message) {
		msgs = append(msgs, m)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !opened {
		t.Fatalf("onOpen not called")
	}
	if gotAuth != "Bearer tok" || gotCourse != "course-9" {
		t.Fatalf("request: auth=%q course=%q", gotAuth, gotCourse)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages: want=2 got=%d", len(msgs))
	}
	if msgs[0].Event != realtime.EventProgress || msgs[1].Event != realtime.EventClassData {
		t.Fatalf("events: %q %q", msgs[0].Event, msgs[1].Event)
	}
	if string(msgs[1].Data) != `{"classId":"c1"}` {
		t.Fatalf("envelope data: got=%s", msgs[1].Data)
	}
}

func TestSSESourceNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	src, _ := NewSSESource(nil, srv.URL, nil, srv.Client())
	opened := false
	err := src.Stream(context.Background(), "c", func() { opened = true }, func(realtime.Message) {})
	if err == nil || !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("want status error got=%v", err)
	}
	if opened {
		t.Fatalf("onOpen must not fire on rejected stream")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw, err := Encode(realtime.Message{Event: realtime.EventProgress, Data: []byte(`{"status":"completed"}`)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, err := decodeEnvelope(raw)
	if err != nil || msg.Event != realtime.EventProgress || string(msg.Data) != `{"status":"completed"}` {
		t.Fatalf("decode: msg=%+v err=%v", msg, err)
	}
	if _, err := decodeEnvelope([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("want error on missing event")
	}
}
