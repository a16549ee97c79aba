package realtime

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
)

// DefaultExpectedClasses is the class count assumed by the percent estimate
// when the stream gives no usable percentage. It is a guess, not a total.
const DefaultExpectedClasses = 5

const maxEstimatedPercent = 95

var percentRe = regexp.MustCompile(`(\d{1,3})(?:\.\d+)?\s*%`)

// ParsePercent extracts the leading integer of the first percentage in text.
// A fraction is truncated: "42.5%" is 42.
func ParsePercent(text string) (int, bool) {
	m := percentRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return clampPercent(n), true
}

// EstimatePercent is min(95, floor(classCount/expected*100)).
func EstimatePercent(classCount, expected int) int {
	if expected <= 0 {
		expected = DefaultExpectedClasses
	}
	if classCount <= 0 {
		return 0
	}
	pct := classCount * 100 / expected
	if pct > maxEstimatedPercent {
		pct = maxEstimatedPercent
	}
	return pct
}

func clampPercent(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}

// ProgressTracker folds progress events into a GenerationProgress.
type ProgressTracker struct {
	mu       sync.RWMutex
	expected int
	state    course.GenerationProgress
}

func NewProgressTracker(expectedClasses int) *ProgressTracker {
	if expectedClasses <= 0 {
		expectedClasses = DefaultExpectedClasses
	}
	return &ProgressTracker{
		expected: expectedClasses,
		state:    course.GenerationProgress{Status: course.GenerationIdle},
	}
}

// Apply updates the tracked state from p. classCount feeds the fallback estimate.
func (t *ProgressTracker) Apply(p ProgressPayload, classCount int) course.GenerationProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.Status != "" {
		t.state.Status = p.Status
	}
	if p.Message != "" {
		t.state.Message = p.Message
	}

	pct, text, numeric := p.ProgressValue()
	switch {
	case numeric:
		t.state.Percent = pct
	case text != "":
		if n, ok := ParsePercent(text); ok {
			t.state.Percent = n
		} else if n, ok := ParsePercent(p.Message); ok {
			t.state.Percent = n
		} else {
			t.state.Percent = EstimatePercent(classCount, t.expected)
		}
		if p.Message == "" {
			t.state.Message = text
		}
	default:
		if n, ok := ParsePercent(p.Message); ok {
			t.state.Percent = n
		} else {
			t.state.Percent = EstimatePercent(classCount, t.expected)
		}
	}
	if t.state.Status == course.GenerationCompleted {
		t.state.Percent = 100
	}
	return t.state
}

// Set overwrites the tracked state.
func (t *ProgressTracker) Set(p course.GenerationProgress) {
	t.mu.Lock()
	t.state = p
	t.mu.Unlock()
}

func (t *ProgressTracker) Current() course.GenerationProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}
