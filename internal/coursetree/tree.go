package coursetree

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
	"github.com/yungbote/neurobridge-editor/internal/platform/apierr"
)

type ChangeKind string

const (
	ChangeLoaded          ChangeKind = "loaded"
	ChangeCourseUpdated   ChangeKind = "course_updated"
	ChangeClassAppended   ChangeKind = "class_appended"
	ChangeClassMeta       ChangeKind = "class_meta_updated"
	ChangeSlideAdded      ChangeKind = "slide_added"
	ChangeSlideReplaced   ChangeKind = "slide_replaced"
	ChangeQuizzesReplaced ChangeKind = "quizzes_replaced"
)

type Change struct {
	Kind     ChangeKind `json:"kind"`
	CourseID string     `json:"course_id"`
	ClassID  string     `json:"class_id,omitempty"`
	SlideID  string     `json:"slide_id,omitempty"`
}

type Listener func(Change)

type Snapshot struct {
	Course  course.Course      `json:"course"`
	Classes []course.ClassUnit `json:"classes"`
}

// Tree is the in-memory course. All mutation goes through its methods under a
// single mutex; listeners run after the lock is released, in call order.
type Tree struct {
	mu      sync.RWMutex
	course  course.Course
	classes []course.ClassUnit
	index   map[string]int

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func New(courseID string) *Tree {
	return &Tree{
		course:    course.Course{ID: strings.TrimSpace(courseID)},
		index:     make(map[string]int),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l for every subsequent change. The returned func removes it.
func (t *Tree) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	t.lmu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	t.lmu.Unlock()
	return func() {
		t.lmu.Lock()
		delete(t.listeners, id)
		t.lmu.Unlock()
	}
}

func (t *Tree) emit(ch Change) {
	t.lmu.Lock()
	ids := make([]int, 0, len(t.listeners))
	for id := range t.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, t.listeners[id])
	}
	t.lmu.Unlock()
	for _, l := range ls {
		l(ch)
	}
}

// Load replaces the whole tree. It is all-or-nothing: a malformed snapshot
// leaves the previous tree untouched.
func (t *Tree) Load(c course.Course, classes []course.ClassUnit) error {
	const op = "coursetree.Load"
	if strings.TrimSpace(c.ID) == "" {
		c.ID = t.CourseID()
	}
	if c.ID == "" {
		return apierr.Load(op, fmt.Errorf("missing course id"))
	}

	next := make([]course.ClassUnit, 0, len(classes))
	index := make(map[string]int, len(classes))
	numbers := make(map[int]string, len(classes))
	for i, cu := range classes {
		if err := validateClass(cu); err != nil {
			return apierr.Load(op, fmt.Errorf("class[%d]: %w", i, err))
		}
		if _, dup := index[cu.ID]; dup {
			return apierr.Load(op, fmt.Errorf("class[%d]: duplicate id %q", i, cu.ID))
		}
		if other, dup := numbers[cu.Number]; dup {
			return apierr.Load(op, fmt.Errorf("class[%d]: number %d already used by %q", i, cu.Number, other))
		}
		cu = cu.Clone()
		cu.CourseID = c.ID
		index[cu.ID] = len(next)
		numbers[cu.Number] = cu.ID
		next = append(next, cu)
	}
	sort.SliceStable(next, func(i, j int) bool { return next[i].Number < next[j].Number })
	for i := range next {
		index[next[i].ID] = i
	}

	t.mu.Lock()
	t.course = c
	t.classes = next
	t.index = index
	t.mu.Unlock()

	t.emit(Change{Kind: ChangeLoaded, CourseID: c.ID})
	return nil
}

func validateClass(cu course.ClassUnit) error {
	if strings.TrimSpace(cu.ID) == "" {
		return fmt.Errorf("missing id")
	}
	if cu.Number <= 0 {
		return fmt.Errorf("missing class number")
	}
	seen := make(map[string]bool, len(cu.Slides))
	numbers := make(map[int]string, len(cu.Slides))
	for i, s := range cu.Slides {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("slide[%d]: missing id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("slide[%d]: duplicate id %q", i, s.ID)
		}
		if other, dup := numbers[s.Number]; dup {
			return fmt.Errorf("slide[%d]: number %d already used by %q", i, s.Number, other)
		}
		seen[s.ID] = true
		numbers[s.Number] = s.ID
	}
	for i, q := range cu.Quizzes {
		if len(q.Options) > course.MaxQuizOptions {
			return fmt.Errorf("quiz[%d]: %d options exceeds %d", i, len(q.Options), course.MaxQuizOptions)
		}
	}
	return nil
}

// SetCourse replaces course-level metadata without touching classes.
func (t *Tree) SetCourse(c course.Course) {
	t.mu.Lock()
	if strings.TrimSpace(c.ID) == "" {
		c.ID = t.course.ID
	}
	t.course = c
	id := c.ID
	t.mu.Unlock()
	t.emit(Change{Kind: ChangeCourseUpdated, CourseID: id})
}

func (t *Tree) SetPublished(published bool) {
	t.mu.Lock()
	t.course.IsPublished = published
	id := t.course.ID
	t.mu.Unlock()
	t.emit(Change{Kind: ChangeCourseUpdated, CourseID: id})
}

// AppendGeneratedClass inserts cu at the end unless a class with the same id
// already exists. It reports whether the class was newly added.
func (t *Tree) AppendGeneratedClass(cu course.ClassUnit) (bool, error) {
	const op = "coursetree.AppendGeneratedClass"
	if strings.TrimSpace(cu.ID) == "" {
		return false, apierr.Load(op, fmt.Errorf("missing id"))
	}

	t.mu.Lock()
	if _, ok := t.index[cu.ID]; ok {
		t.mu.Unlock()
		return false, nil
	}
	if cu.Number <= 0 {
		cu.Number = t.nextNumberLocked()
	}
	for _, existing := range t.classes {
		if existing.Number == cu.Number {
			t.mu.Unlock()
			return false, apierr.Load(op, fmt.Errorf("class number %d already used by %q", cu.Number, existing.ID))
		}
	}
	if err := validateClass(cu); err != nil {
		t.mu.Unlock()
		return false, apierr.Load(op, err)
	}
	cu = cu.Clone()
	cu.CourseID = t.course.ID
	t.index[cu.ID] = len(t.classes)
	t.classes = append(t.classes, cu)
	courseID := t.course.ID
	t.mu.Unlock()

	t.emit(Change{Kind: ChangeClassAppended, CourseID: courseID, ClassID: cu.ID})
	return true, nil
}

func (t *Tree) nextNumberLocked() int {
	max := 0
	for _, c := range t.classes {
		if c.Number > max {
			max = c.Number
		}
	}
	return max + 1
}

func (t *Tree) UpdateClassMeta(classID string, meta course.ClassMeta) error {
	t.mu.Lock()
	i, ok := t.index[classID]
	if !ok {
		t.mu.Unlock()
		return apierr.NotFound("coursetree.UpdateClassMeta", fmt.Errorf("class %q", classID))
	}
	meta = meta.Clone()
	t.classes[i].Title = meta.Title
	t.classes[i].Concepts = meta.Concepts
	courseID := t.course.ID
	t.mu.Unlock()

	t.emit(Change{Kind: ChangeClassMeta, CourseID: courseID, ClassID: classID})
	return nil
}

// AddSlide appends s to the class. A zero Number is assigned one past the
// highest ordinal; an ordinal already in use is a conflict.
func (t *Tree) AddSlide(classID string, s course.Slide) (course.Slide, error) {
	const op = "coursetree.AddSlide"
	if strings.TrimSpace(s.ID) == "" {
		return course.Slide{}, apierr.Load(op, fmt.Errorf("slide missing id"))
	}

	t.mu.Lock()
	i, ok := t.index[classID]
	if !ok {
		t.mu.Unlock()
		return course.Slide{}, apierr.NotFound(op, fmt.Errorf("class %q", classID))
	}
	cu := &t.classes[i]
	for _, existing := range cu.Slides {
		if existing.ID == s.ID {
			t.mu.Unlock()
			return course.Slide{}, apierr.Conflict(op, fmt.Errorf("slide %q already exists", s.ID))
		}
	}
	if s.Number <= 0 {
		s.Number = cu.NextSlideNumber()
	}
	for _, existing := range cu.Slides {
		if existing.Number == s.Number {
			t.mu.Unlock()
			return course.Slide{}, apierr.Conflict(op, fmt.Errorf("slide number %d already used by %q", s.Number, existing.ID))
		}
	}
	s.ClassID = classID
	cu.Slides = append(cu.Slides, s)
	courseID := t.course.ID
	t.mu.Unlock()

	t.emit(Change{Kind: ChangeSlideAdded, CourseID: courseID, ClassID: classID, SlideID: s.ID})
	return s, nil
}

func (t *Tree) ReplaceSlide(classID, slideID string, patch course.SlidePatch) (course.Slide, error) {
	const op = "coursetree.ReplaceSlide"

	t.mu.Lock()
	i, ok := t.index[classID]
	if !ok {
		t.mu.Unlock()
		return course.Slide{}, apierr.NotFound(op, fmt.Errorf("class %q", classID))
	}
	cu := &t.classes[i]
	j := slideIndex(cu.Slides, slideID)
	if j < 0 {
		t.mu.Unlock()
		return course.Slide{}, apierr.NotFound(op, fmt.Errorf("slide %q in class %q", slideID, classID))
	}
	cu.Slides[j] = patch.Apply(cu.Slides[j])
	out := cu.Slides[j]
	courseID := t.course.ID
	t.mu.Unlock()

	t.emit(Change{Kind: ChangeSlideReplaced, CourseID: courseID, ClassID: classID, SlideID: slideID})
	return out, nil
}

func slideIndex(slides []course.Slide, id string) int {
	for i := range slides {
		if slides[i].ID == id {
			return i
		}
	}
	return -1
}

// SetQuizzes replaces the quiz list wholesale.
func (t *Tree) SetQuizzes(classID string, quizzes []course.QuizQuestion) error {
	const op = "coursetree.SetQuizzes"
	for i, q := range quizzes {
		if len(q.Options) > course.MaxQuizOptions {
			return apierr.Load(op, fmt.Errorf("quiz[%d]: %d options exceeds %d", i, len(q.Options), course.MaxQuizOptions))
		}
	}

	t.mu.Lock()
	i, ok := t.index[classID]
	if !ok {
		t.mu.Unlock()
		return apierr.NotFound(op, fmt.Errorf("class %q", classID))
	}
	next := make([]course.QuizQuestion, len(quizzes))
	for k, q := range quizzes {
		q.ClassID = classID
		q.Options = append([]string(nil), q.Options...)
		next[k] = q
	}
	t.classes[i].Quizzes = next
	courseID := t.course.ID
	t.mu.Unlock()

	t.emit(Change{Kind: ChangeQuizzesReplaced, CourseID: courseID, ClassID: classID})
	return nil
}

func (t *Tree) CourseID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.course.ID
}

func (t *Tree) Course() course.Course {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.course
}

func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.classes)
}

func (t *Tree) Class(classID string) (course.ClassUnit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[classID]
	if !ok {
		return course.ClassUnit{}, false
	}
	return t.classes[i].Clone(), true
}

func (t *Tree) Slide(classID, slideID string) (course.Slide, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[classID]
	if !ok {
		return course.Slide{}, false
	}
	j := slideIndex(t.classes[i].Slides, slideID)
	if j < 0 {
		return course.Slide{}, false
	}
	return t.classes[i].Slides[j], true
}

// First returns the class with the lowest display position, if any.
func (t *Tree) First() (course.ClassUnit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.classes) == 0 {
		return course.ClassUnit{}, false
	}
	return t.classes[0].Clone(), true
}

func (t *Tree) Classes() []course.ClassUnit {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]course.ClassUnit, len(t.classes))
	for i, c := range t.classes {
		out[i] = c.Clone()
	}
	return out
}

func (t *Tree) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := Snapshot{Course: t.course, Classes: make([]course.ClassUnit, len(t.classes))}
	for i, c := range t.classes {
		out.Classes[i] = c.Clone()
	}
	return out
}
