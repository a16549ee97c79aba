package coursetree

import (
	"errors"
	"reflect"
	"testing"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
	"github.com/yungbote/neurobridge-editor/internal/platform/apierr"
)

func strPtr(s string) *string { return &s }

func basicsClass() course.ClassUnit {
	return course.ClassUnit{
		ID:       "c1",
		Number:   1,
		Title:    "Basics",
		Concepts: []string{"Variables"},
		Slides: []course.Slide{
			{ID: "s1", Number: 1, Title: "Hello"},
		},
	}
}

func TestAppendGeneratedClassIsIdempotent(t *testing.T) {
	tree := New("course-1")

	added, err := tree.AppendGeneratedClass(basicsClass())
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if !added {
		t.Fatalf("first append: want added=true")
	}
	once := tree.Snapshot()

	added, err = tree.AppendGeneratedClass(basicsClass())
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if added {
		t.Fatalf("second append: want added=false")
	}
	if !reflect.DeepEqual(once, tree.Snapshot()) {
		t.Fatalf("tree changed on duplicate append")
	}
}

func TestAppendGeneratedClassAssignsNumberAndCourse(t *testing.T) {
	tree := New("course-1")
	if _, err := tree.AppendGeneratedClass(basicsClass()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := tree.AppendGeneratedClass(course.ClassUnit{ID: "c2", Title: "Loops"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, ok := tree.Class("c2")
	if !ok {
		t.Fatalf("class c2 missing")
	}
	if got.Number != 2 {
		t.Fatalf("Number: want=2 got=%d", got.Number)
	}
	if got.CourseID != "course-1" {
		t.Fatalf("CourseID: want=course-1 got=%q", got.CourseID)
	}
}

func TestAppendGeneratedClassRejectsNumberCollision(t *testing.T) {
	tree := New("course-1")
	if _, err := tree.AppendGeneratedClass(basicsClass()); err != nil {
		t.Fatalf("append: %v", err)
	}
	_, err := tree.AppendGeneratedClass(course.ClassUnit{ID: "other", Number: 1})
	if !errors.Is(err, apierr.ErrLoad) {
		t.Fatalf("want ErrLoad got=%v", err)
	}
	if tree.Len() != 1 {
		t.Fatalf("Len: want=1 got=%d", tree.Len())
	}
}

func TestLoadIsAllOrNothing(t *testing.T) {
	tree := New("course-1")
	if err := tree.Load(course.Course{ID: "course-1", Title: "Go"}, []course.ClassUnit{basicsClass()}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	bad := []course.ClassUnit{
		{ID: "c7", Number: 1, Title: "Fine"},
		{ID: "", Number: 2, Title: "Broken"},
	}
	err := tree.Load(course.Course{ID: "course-1"}, bad)
	if !errors.Is(err, apierr.ErrLoad) {
		t.Fatalf("want ErrLoad got=%v", err)
	}
	classes := tree.Classes()
	if len(classes) != 1 || classes[0].ID != "c1" {
		t.Fatalf("tree was partially replaced: %+v", classes)
	}
	if tree.Course().Title != "Go" {
		t.Fatalf("course title: want=Go got=%q", tree.Course().Title)
	}
}

func TestLoadSortsByNumber(t *testing.T) {
	tree := New("course-1")
	err := tree.Load(course.Course{}, []course.ClassUnit{
		{ID: "b", Number: 2},
		{ID: "a", Number: 1},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	first, _ := tree.First()
	if first.ID != "a" {
		t.Fatalf("First: want=a got=%q", first.ID)
	}
	if got, _ := tree.Class("b"); got.CourseID != "course-1" {
		t.Fatalf("CourseID: want=course-1 got=%q", got.CourseID)
	}
}

func TestUpdateClassMetaNotFound(t *testing.T) {
	tree := New("course-1")
	err := tree.UpdateClassMeta("missing", course.ClassMeta{Title: "x"})
	if !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("want ErrNotFound got=%v", err)
	}
}

func TestUpdateClassMetaDoesNotAliasCaller(t *testing.T) {
	tree := New("course-1")
	_, _ = tree.AppendGeneratedClass(basicsClass())
	concepts := []string{"Loops"}
	if err := tree.UpdateClassMeta("c1", course.ClassMeta{Title: "Fundamentals", Concepts: concepts}); err != nil {
		t.Fatalf("UpdateClassMeta: %v", err)
	}
	concepts[0] = "mutated"
	got, _ := tree.Class("c1")
	if got.Title != "Fundamentals" || got.Concepts[0] != "Loops" {
		t.Fatalf("class meta: got title=%q concepts=%v", got.Title, got.Concepts)
	}
}

func TestAddAndReplaceSlide(t *testing.T) {
	tree := New("course-1")
	_, _ = tree.AppendGeneratedClass(basicsClass())

	added, err := tree.AddSlide("c1", course.Slide{ID: "s2", Title: "Second"})
	if err != nil {
		t.Fatalf("AddSlide: %v", err)
	}
	if added.Number != 2 {
		t.Fatalf("Number: want=2 got=%d", added.Number)
	}

	replaced, err := tree.ReplaceSlide("c1", "s2", course.SlidePatch{Content: strPtr("body")})
	if err != nil {
		t.Fatalf("ReplaceSlide: %v", err)
	}
	if replaced.Title != "Second" || replaced.Content != "body" {
		t.Fatalf("patched slide: %+v", replaced)
	}

	if _, err := tree.ReplaceSlide("c1", "nope", course.SlidePatch{}); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("missing slide: want ErrNotFound got=%v", err)
	}
	if _, err := tree.AddSlide("nope", course.Slide{ID: "s3"}); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("missing class: want ErrNotFound got=%v", err)
	}
}

func TestAddSlideKeepsOrdinalsUnique(t *testing.T) {
	tree := New("course-1")
	cu := basicsClass()
	cu.Slides = append(cu.Slides, course.Slide{ID: "s3", Number: 3})
	if err := tree.Load(course.Course{ID: "course-1"}, []course.ClassUnit{cu}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	added, err := tree.AddSlide("c1", course.Slide{ID: "s4"})
	if err != nil {
		t.Fatalf("AddSlide: %v", err)
	}
	if added.Number != 4 {
		t.Fatalf("Number: want=4 got=%d", added.Number)
	}
	if _, err := tree.AddSlide("c1", course.Slide{ID: "s5", Number: 3}); !errors.Is(err, apierr.ErrConflict) {
		t.Fatalf("duplicate number: want ErrConflict got=%v", err)
	}
	if got, _ := tree.Class("c1"); len(got.Slides) != 3 {
		t.Fatalf("slides: want=3 got=%d", len(got.Slides))
	}
}

func TestLoadRejectsDuplicateSlideNumbers(t *testing.T) {
	tree := New("course-1")
	cu := basicsClass()
	cu.Slides = append(cu.Slides, course.Slide{ID: "s2", Number: 1})
	if err := tree.Load(course.Course{ID: "course-1"}, []course.ClassUnit{cu}); !errors.Is(err, apierr.ErrLoad) {
		t.Fatalf("duplicate slide number: want ErrLoad got=%v", err)
	}
	if tree.Len() != 0 {
		t.Fatalf("tree populated after rejected load")
	}
}

func TestSetQuizzesReplacesWholesale(t *testing.T) {
	tree := New("course-1")
	_, _ = tree.AppendGeneratedClass(basicsClass())
	q := []course.QuizQuestion{{ID: "q1", Question: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1}}
	if err := tree.SetQuizzes("c1", q); err != nil {
		t.Fatalf("SetQuizzes: %v", err)
	}
	if err := tree.SetQuizzes("c1", nil); err != nil {
		t.Fatalf("SetQuizzes(nil): %v", err)
	}
	got, _ := tree.Class("c1")
	if len(got.Quizzes) != 0 {
		t.Fatalf("quizzes: want empty got=%v", got.Quizzes)
	}

	tooMany := []course.QuizQuestion{{ID: "q2", Options: []string{"a", "b", "c", "d", "e"}}}
	if err := tree.SetQuizzes("c1", tooMany); !errors.Is(err, apierr.ErrLoad) {
		t.Fatalf("five options: want ErrLoad got=%v", err)
	}
}

func TestSubscribeReceivesChangesInOrder(t *testing.T) {
	tree := New("course-1")
	var kinds []ChangeKind
	unsubscribe := tree.Subscribe(func(ch Change) { kinds = append(kinds, ch.Kind) })

	_, _ = tree.AppendGeneratedClass(basicsClass())
	_ = tree.UpdateClassMeta("c1", course.ClassMeta{Title: "x"})
	unsubscribe()
	tree.SetPublished(true)

	want := []ChangeKind{ChangeClassAppended, ChangeClassMeta}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("changes: want=%v got=%v", want, kinds)
	}
}
