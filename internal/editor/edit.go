package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
	"github.com/yungbote/neurobridge-editor/internal/notify"
	"github.com/yungbote/neurobridge-editor/internal/platform/apierr"
)

type EditState string

const (
	StateViewing EditState = "viewing"
	StateEditing EditState = "editing"
	StateSaving  EditState = "saving"
)

type EditTarget string

const (
	TargetClass EditTarget = "class"
	TargetSlide EditTarget = "slide"
)

var (
	// ErrEditInProgress rejects editing a second entity while one is open.
	ErrEditInProgress = errors.New("another entity is being edited")
	// ErrNotEditing rejects buffer operations outside an edit.
	ErrNotEditing = errors.New("no edit in progress")
)

// EditStatus is the externally visible edit state.
type EditStatus struct {
	State   EditState          `json:"state"`
	Target  EditTarget         `json:"target,omitempty"`
	ClassID string             `json:"class_id,omitempty"`
	SlideID string             `json:"slide_id,omitempty"`
	Buffer  *course.ClassMeta  `json:"buffer,omitempty"`
	Patch   *course.SlidePatch `json:"patch,omitempty"`
}

// CommitError is returned when the API rejects an edit. The displayed values
// have been reverted; Attempted holds what the user tried to save.
type CommitError struct {
	ClassID        string
	SlideID        string
	Attempted      course.ClassMeta
	AttemptedSlide course.SlidePatch
	Err            error
}

func (e *CommitError) Error() string {
	if e.SlideID != "" {
		return fmt.Sprintf("commit slide %s: %v", e.SlideID, e.Err)
	}
	return fmt.Sprintf("commit class %s: %v", e.ClassID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// editSession is the single shared edit buffer. Guarded by Session.mu.
type editSession struct {
	state   EditState
	target  EditTarget
	classID string
	slideID string
	buffer  course.ClassMeta
	patch   course.SlidePatch
}

func (e *editSession) status() EditStatus {
	st := EditStatus{State: e.state}
	if e.state == StateViewing {
		return st
	}
	st.Target = e.target
	st.ClassID = e.classID
	st.SlideID = e.slideID
	switch e.target {
	case TargetClass:
		buf := e.buffer.Clone()
		st.Buffer = &buf
	case TargetSlide:
		p := e.patch
		st.Patch = &p
	}
	return st
}

func (e *editSession) reset() {
	*e = editSession{state: StateViewing}
}

func (s *Session) EditStatus() EditStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edit.status()
}

func (s *Session) emitEditState() {
	if s.onEditState == nil {
		return
	}
	s.onEditState(s.EditStatus())
}

// editLockedFor checks that a new edit may start; re-entering the open edit is
// reported as same=true.
func (s *Session) editLockedFor(target EditTarget, classID, slideID string) (same bool, err error) {
	if s.edit.state == StateViewing {
		return false, nil
	}
	if s.edit.state == StateEditing && s.edit.target == target && s.edit.classID == classID && s.edit.slideID == slideID {
		return true, nil
	}
	return false, apierr.Conflict("editor.EnterEdit", ErrEditInProgress)
}

// EnterEdit opens class title/concepts for editing. An empty classID means the
// displayed class; with nothing displayed it does nothing.
func (s *Session) EnterEdit(classID string) error {
	s.mu.Lock()
	if classID == "" {
		classID = s.current
	}
	if classID == "" {
		s.mu.Unlock()
		return nil
	}
	same, err := s.editLockedFor(TargetClass, classID, "")
	if err != nil || same {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	cu, ok := s.tree.Class(classID)
	if !ok {
		return apierr.NotFound("editor.EnterEdit", fmt.Errorf("class %q", classID))
	}

	s.mu.Lock()
	if same, err := s.editLockedFor(TargetClass, classID, ""); err != nil || same {
		s.mu.Unlock()
		return err
	}
	s.edit = editSession{
		state:   StateEditing,
		target:  TargetClass,
		classID: classID,
		buffer:  cu.Meta(),
	}
	s.mu.Unlock()
	s.emitEditState()
	return nil
}

func (s *Session) classBufferLocked() error {
	if s.edit.state != StateEditing || s.edit.target != TargetClass {
		return apierr.Conflict("editor.edit", ErrNotEditing)
	}
	return nil
}

func (s *Session) SetTitle(title string) error {
	s.mu.Lock()
	if err := s.classBufferLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.edit.buffer.Title = title
	s.mu.Unlock()
	s.emitEditState()
	return nil
}

// AddConcept appends text to the buffer. Blank text is ignored.
func (s *Session) AddConcept(text string) error {
	s.mu.Lock()
	if err := s.classBufferLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.mu.Unlock()
		return nil
	}
	s.edit.buffer.Concepts = append(s.edit.buffer.Concepts, text)
	s.mu.Unlock()
	s.emitEditState()
	return nil
}

func (s *Session) RemoveConcept(index int) error {
	s.mu.Lock()
	if err := s.classBufferLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	concepts := s.edit.buffer.Concepts
	if index < 0 || index >= len(concepts) {
		s.mu.Unlock()
		return apierr.NotFound("editor.RemoveConcept", fmt.Errorf("concept index %d of %d", index, len(concepts)))
	}
	next := make([]string, 0, len(concepts)-1)
	next = append(next, concepts[:index]...)
	next = append(next, concepts[index+1:]...)
	s.edit.buffer.Concepts = next
	s.mu.Unlock()
	s.emitEditState()
	return nil
}

// Commit saves the buffer. On success the tree takes the new values; on
// failure the buffer is dropped and the class keeps its last saved values.
// Either way the session returns to viewing.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	if err := s.classBufferLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.edit.state = StateSaving
	classID := s.edit.classID
	meta := s.edit.buffer.Clone()
	s.mu.Unlock()
	s.emitEditState()

	err := s.repo.UpdateClassMeta(ctx, classID, meta)
	if err == nil {
		err = s.tree.UpdateClassMeta(classID, meta)
	}

	s.mu.Lock()
	s.edit.reset()
	s.mu.Unlock()
	s.emitEditState()

	if err != nil {
		s.log.Warn("Class update failed", "class_id", classID, "error", err)
		s.notify(ctx, notify.LevelError, "Failed to update class", classID, "", err)
		return &CommitError{ClassID: classID, Attempted: meta, Err: err}
	}
	s.notify(ctx, notify.LevelSuccess, "Class details updated successfully", classID, "", nil)
	return nil
}

// Cancel drops the open edit without saving. It cannot interrupt a save.
func (s *Session) Cancel() error {
	s.mu.Lock()
	switch s.edit.state {
	case StateViewing:
		s.mu.Unlock()
		return nil
	case StateSaving:
		s.mu.Unlock()
		return apierr.Conflict("editor.Cancel", errors.New("save in progress"))
	}
	s.edit.reset()
	s.mu.Unlock()
	s.emitEditState()
	return nil
}

// EnterSlideEdit opens one slide for editing under the same single-entity lock.
func (s *Session) EnterSlideEdit(classID, slideID string) error {
	if _, ok := s.tree.Slide(classID, slideID); !ok {
		return apierr.NotFound("editor.EnterSlideEdit", fmt.Errorf("slide %q in class %q", slideID, classID))
	}
	s.mu.Lock()
	same, err := s.editLockedFor(TargetSlide, classID, slideID)
	if err != nil || same {
		s.mu.Unlock()
		return err
	}
	s.edit = editSession{
		state:   StateEditing,
		target:  TargetSlide,
		classID: classID,
		slideID: slideID,
	}
	s.mu.Unlock()
	s.emitEditState()
	return nil
}

func (s *Session) slideBufferLocked() error {
	if s.edit.state != StateEditing || s.edit.target != TargetSlide {
		return apierr.Conflict("editor.slide", ErrNotEditing)
	}
	return nil
}

// SetSlideField layers patch over the pending slide changes.
func (s *Session) SetSlideField(patch course.SlidePatch) error {
	s.mu.Lock()
	if err := s.slideBufferLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.edit.patch = s.edit.patch.Merge(patch)
	s.mu.Unlock()
	s.emitEditState()
	return nil
}

// CommitSlide saves the pending slide changes, applying them locally only
// after the API confirms.
func (s *Session) CommitSlide(ctx context.Context) error {
	s.mu.Lock()
	if err := s.slideBufferLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	classID, slideID, patch := s.edit.classID, s.edit.slideID, s.edit.patch
	if patch.Empty() {
		s.edit.reset()
		s.mu.Unlock()
		s.emitEditState()
		return nil
	}
	s.edit.state = StateSaving
	s.mu.Unlock()
	s.emitEditState()

	err := s.repo.UpdateSlide(ctx, slideID, patch)
	if err == nil {
		_, err = s.tree.ReplaceSlide(classID, slideID, patch)
	}

	s.mu.Lock()
	s.edit.reset()
	s.mu.Unlock()
	s.emitEditState()

	if err != nil {
		s.log.Warn("Slide update failed", "slide_id", slideID, "error", err)
		s.notify(ctx, notify.LevelError, "Failed to update slide", classID, slideID, err)
		return &CommitError{ClassID: classID, SlideID: slideID, AttemptedSlide: patch, Err: err}
	}
	s.notify(ctx, notify.LevelSuccess, "Slide updated successfully", classID, slideID, nil)
	return nil
}

func (s *Session) CancelSlide() error {
	s.mu.Lock()
	if s.edit.state == StateEditing && s.edit.target != TargetSlide {
		s.mu.Unlock()
		return apierr.Conflict("editor.CancelSlide", ErrEditInProgress)
	}
	s.mu.Unlock()
	return s.Cancel()
}
