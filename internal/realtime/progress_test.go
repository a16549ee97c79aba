package realtime

import (
	"testing"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
)

func TestParsePercent(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{in: "Generating... 42%", want: 42, ok: true},
		{in: "40%", want: 40, ok: true},
		{in: "step 3 of 5 (60 %)", want: 60, ok: true},
		{in: "Generating class 2", ok: false},
		{in: "", ok: false},
		{in: "999%", want: 100, ok: true},
		{in: "Generating... 42.5%", want: 42, ok: true},
		{in: "7.25 %", want: 7, ok: true},
	}
	for _, tc := range cases {
		got, ok := ParsePercent(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParsePercent(%q): want=(%d,%v) got=(%d,%v)", tc.in, tc.want, tc.ok, got, ok)
		}
	}
}

func TestEstimatePercent(t *testing.T) {
	cases := []struct{ n, expected, want int }{
		{0, 5, 0},
		{1, 5, 20},
		{2, 5, 40},
		{4, 5, 80},
		{5, 5, 95},
		{9, 5, 95},
		{1, 3, 33},
		{1, 0, 20},
	}
	for _, tc := range cases {
		if got := EstimatePercent(tc.n, tc.expected); got != tc.want {
			t.Fatalf("EstimatePercent(%d,%d): want=%d got=%d", tc.n, tc.expected, tc.want, got)
		}
	}
}

func TestProgressTrackerApply(t *testing.T) {
	tr := NewProgressTracker(0)
	if tr.Current().Status != course.GenerationIdle {
		t.Fatalf("initial status: want=idle got=%q", tr.Current().Status)
	}

	p, err := DecodeProgress([]byte(`{"status":"processing","progress":"Generating... 42%"}`))
	if err != nil {
		t.Fatalf("DecodeProgress: %v", err)
	}
	got := tr.Apply(p, 1)
	if got.Status != course.GenerationProcessing || got.Percent != 42 {
		t.Fatalf("text percent: %+v", got)
	}

	p, _ = DecodeProgress([]byte(`{"status":"processing","progress":"working on class 3"}`))
	if got := tr.Apply(p, 3); got.Percent != 60 {
		t.Fatalf("fallback estimate: want=60 got=%d", got.Percent)
	}

	p, _ = DecodeProgress([]byte(`{"status":"processing","progress":"working","message":"Generating... 42%"}`))
	if got := tr.Apply(p, 1); got.Percent != 42 {
		t.Fatalf("message percent behind text progress: want=42 got=%d", got.Percent)
	}

	p, _ = DecodeProgress([]byte(`{"status":"processing","progress":73}`))
	if got := tr.Apply(p, 3); got.Percent != 73 {
		t.Fatalf("numeric percent: want=73 got=%d", got.Percent)
	}

	p, _ = DecodeProgress([]byte(`{"status":"processing","message":"almost 88% done"}`))
	if got := tr.Apply(p, 3); got.Percent != 88 || got.Message != "almost 88% done" {
		t.Fatalf("message percent: %+v", got)
	}

	p, _ = DecodeProgress([]byte(`{"status":"completed"}`))
	if got := tr.Apply(p, 5); got.Status != course.GenerationCompleted || got.Percent != 100 {
		t.Fatalf("completed: %+v", got)
	}
}

func TestDecodeProgressRejectsUnknownStatus(t *testing.T) {
	if _, err := DecodeProgress([]byte(`{"status":"paused"}`)); err == nil {
		t.Fatalf("want error for unknown status")
	}
	p, err := DecodeProgress([]byte(`{"status":"STARTING"}`))
	if err != nil || p.Status != course.GenerationStarting {
		t.Fatalf("case-insensitive status: got=%q err=%v", p.Status, err)
	}
}
