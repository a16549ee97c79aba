package apierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("open course: %w", NotFound("coursetree.UpdateClassMeta", errors.New("class c9")))

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("errors.Is(ErrNotFound): want=true got=false")
	}
	if errors.Is(err, ErrSave) {
		t.Fatalf("errors.Is(ErrSave): want=false got=true")
	}
	if got := KindOf(err); got != KindNotFound {
		t.Fatalf("KindOf: want=%q got=%q", KindNotFound, got)
	}
}

func TestErrorMessageCarriesOpAndStatus(t *testing.T) {
	err := Publish("courseapi.PublishCourse", 409, errors.New("no classes"))
	want := "courseapi.PublishCourse: publish_failed (status 409): no classes"
	if err.Error() != want {
		t.Fatalf("Error(): want=%q got=%q", want, err.Error())
	}
	if StatusOf(err) != 409 {
		t.Fatalf("StatusOf: want=409 got=%d", StatusOf(err))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != "" {
		t.Fatalf("KindOf: want empty got=%q", got)
	}
}
