package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yungbote/neurobridge-editor/internal/clients/courseapi"
	"github.com/yungbote/neurobridge-editor/internal/clients/redis"
	"github.com/yungbote/neurobridge-editor/internal/coursetree"
	"github.com/yungbote/neurobridge-editor/internal/domain/course"
	"github.com/yungbote/neurobridge-editor/internal/notify"
	"github.com/yungbote/neurobridge-editor/internal/platform/apierr"
	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
	"github.com/yungbote/neurobridge-editor/internal/realtime"
)

// ErrNoClasses rejects publishing a course that has nothing in it yet.
var ErrNoClasses = errors.New("course has no classes")

type Mode string

const (
	// ModeEdit loads an already generated course in one fetch.
	ModeEdit Mode = "edit"
	// ModeGeneration builds the course from the progress stream.
	ModeGeneration Mode = "generation"
)

// Repository is the slice of the Course Repository API the editor needs.
type Repository interface {
	FetchCourseForEdit(ctx context.Context, courseID string) (courseapi.EditCourse, error)
	FetchCourseMeta(ctx context.Context, courseID string) (course.Course, error)
	AddSlide(ctx context.Context, classID string, s course.Slide) (string, error)
	UpdateSlide(ctx context.Context, slideID string, patch course.SlidePatch) error
	UpdateClassMeta(ctx context.Context, classID string, meta course.ClassMeta) error
	PublishCourse(ctx context.Context, courseID string) error
}

// EventChannel is the subscription surface of realtime.Channel.
type EventChannel interface {
	Subscribe(event realtime.Event, h realtime.Handler) realtime.Subscription
	Unsubscribe(s realtime.Subscription)
	Start(ctx context.Context)
	Close()
}

type Options struct {
	CourseID        string
	Mode            Mode
	Repo            Repository
	Channel         EventChannel
	Flags           redis.FlagStore
	Notify          notify.Sink
	Log             *logger.Logger
	ExpectedClasses int

	OnProgress  func(course.GenerationProgress)
	OnEditState func(EditStatus)
}

type populatedBy int

const (
	populatedNone populatedBy = iota
	populatedBulk
	populatedStream
)

// Session reconciles one course: it owns the tree, decides which source fills
// it, tracks the displayed class and arbitrates edits.
type Session struct {
	courseID string
	mode     Mode
	repo     Repository
	channel  EventChannel
	flags    redis.FlagStore
	sink     notify.Sink
	log      *logger.Logger

	onProgress  func(course.GenerationProgress)
	onEditState func(EditStatus)

	tree     *coursetree.Tree
	progress *realtime.ProgressTracker

	mu        sync.Mutex
	source    populatedBy
	current   string
	explicit  bool
	loading   bool
	loadErr   error
	ready     chan struct{}
	readyOnce sync.Once
	subs      []realtime.Subscription
	opened    bool
	closed    bool
	marked    bool
	edit      editSession
}

func New(opts Options) (*Session, error) {
	courseID := strings.TrimSpace(opts.CourseID)
	if courseID == "" {
		return nil, fmt.Errorf("course id required")
	}
	if opts.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeGeneration
	}
	if mode != ModeEdit && mode != ModeGeneration {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if mode == ModeGeneration && opts.Channel == nil {
		return nil, fmt.Errorf("generation mode requires an event channel")
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	sink := opts.Notify
	if sink == nil {
		sink = &notify.LogSink{Log: log}
	}
	flags := opts.Flags
	if flags == nil {
		flags = redis.NewMemoryFlagStore(0)
	}
	return &Session{
		courseID:    courseID,
		mode:        mode,
		repo:        opts.Repo,
		channel:     opts.Channel,
		flags:       flags,
		sink:        sink,
		log:         log.With("component", "EditorSession", "course_id", courseID, "mode", string(mode)),
		onProgress:  opts.OnProgress,
		onEditState: opts.OnEditState,
		tree:        coursetree.New(courseID),
		progress:    realtime.NewProgressTracker(opts.ExpectedClasses),
		loading:     true,
		ready:       make(chan struct{}),
		edit:        editSession{state: StateViewing},
	}, nil
}

func (s *Session) CourseID() string { return s.courseID }

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) Tree() *coursetree.Tree { return s.tree }

// Ready is closed once the first class is in the tree.
func (s *Session) Ready() <-chan struct{} { return s.ready }

func (s *Session) Progress() course.GenerationProgress { return s.progress.Current() }

// Open populates the tree from exactly one source. In edit mode that is a
// single bulk fetch; in generation mode the course title is fetched and
// classes arrive through the event channel.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		return nil
	}
	s.opened = true
	s.mu.Unlock()

	if s.mode == ModeEdit {
		return s.openForEdit(ctx)
	}
	return s.openForGeneration(ctx)
}

func (s *Session) openForEdit(ctx context.Context) error {
	ec, err := s.repo.FetchCourseForEdit(ctx, s.courseID)
	if err != nil {
		s.failLoad(ctx, err, "Failed to load course")
		return err
	}
	if err := s.applySnapshot(ec); err != nil {
		s.failLoad(ctx, err, "Failed to load course")
		return err
	}
	s.log.Info("Course loaded for edit", "classes", s.tree.Len())
	return nil
}

func (s *Session) openForGeneration(ctx context.Context) error {
	if meta, err := s.repo.FetchCourseMeta(ctx, s.courseID); err != nil {
		s.log.Warn("Course meta fetch failed", "error", err)
		s.notify(ctx, notify.LevelError, "Failed to load course details", "", "", err)
	} else {
		s.tree.SetCourse(meta)
	}

	if active, err := s.flags.Active(ctx, s.courseID); err != nil {
		s.log.Warn("Generation flag lookup failed", "error", err)
	} else if active {
		s.mu.Lock()
		s.marked = true
		s.mu.Unlock()
		p := course.GenerationProgress{Status: course.GenerationStarting}
		s.progress.Set(p)
		s.emitProgress(p)
	}

	subs := []realtime.Subscription{
		s.channel.Subscribe(realtime.EventClassData, s.handleClassData),
		s.channel.Subscribe(realtime.EventProgress, s.handleProgress),
	}
	s.mu.Lock()
	s.subs = subs
	s.mu.Unlock()
	s.channel.Start(ctx)
	return nil
}

// applySnapshot installs a bulk load. It is refused once streaming has
// populated the tree.
func (s *Session) applySnapshot(ec courseapi.EditCourse) error {
	const op = "editor.applySnapshot"
	s.mu.Lock()
	if s.source == populatedStream {
		s.mu.Unlock()
		return apierr.Conflict(op, fmt.Errorf("course %s is being populated by generation", s.courseID))
	}
	s.mu.Unlock()

	if err := s.tree.Load(ec.Course, ec.Classes); err != nil {
		return err
	}

	s.mu.Lock()
	s.source = populatedBulk
	s.loadErr = nil
	if !s.explicit {
		s.current = ""
		if first, ok := s.tree.First(); ok {
			s.current = first.ID
		}
	}
	s.mu.Unlock()
	s.dismissLoading()
	return nil
}

func (s *Session) failLoad(ctx context.Context, err error, msg string) {
	s.mu.Lock()
	s.loadErr = err
	s.loading = false
	s.mu.Unlock()
	s.log.Error(msg, "error", err)
	s.notify(ctx, notify.LevelError, msg, "", "", err)
}

func (s *Session) dismissLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Session) handleClassData(msg realtime.Message) {
	ctx := context.Background()
	s.mu.Lock()
	if s.mode != ModeGeneration || s.source == populatedBulk || s.closed {
		s.mu.Unlock()
		s.log.Debug("Dropping class_data outside generation session")
		return
	}
	s.mu.Unlock()

	cu, err := courseapi.DecodeClass(msg.Data, s.courseID)
	if err != nil {
		s.log.Warn("Rejected generated class", "error", err)
		s.notify(ctx, notify.LevelError, "Received malformed class data", "", "", err)
		return
	}
	added, err := s.tree.AppendGeneratedClass(cu)
	if err != nil {
		s.log.Warn("Generated class not applied", "class_id", cu.ID, "error", err)
		s.notify(ctx, notify.LevelError, "Received malformed class data", cu.ID, "", err)
		return
	}
	if !added {
		s.log.Debug("Duplicate class_data ignored", "class_id", cu.ID)
		return
	}

	s.mu.Lock()
	s.source = populatedStream
	if s.current == "" && !s.explicit {
		s.current = cu.ID
	}
	s.mu.Unlock()
	s.dismissLoading()
	s.log.Info("Generated class received", "class_id", cu.ID, "number", cu.Number, "classes", s.tree.Len())
}

func (s *Session) handleProgress(msg realtime.Message) {
	ctx := context.Background()
	payload, err := realtime.DecodeProgress(msg.Data)
	if err != nil {
		s.log.Warn("Rejected progress event", "error", err)
		return
	}
	p := s.progress.Apply(payload, s.tree.Len())

	switch {
	case p.Status == course.GenerationStarting || p.Status == course.GenerationProcessing:
		s.mu.Lock()
		mark := !s.marked
		s.marked = true
		s.mu.Unlock()
		if mark {
			if err := s.flags.Mark(ctx, s.courseID); err != nil {
				s.log.Warn("Generation flag mark failed", "error", err)
			}
		}
	case p.Status.Terminal():
		s.clearFlag(ctx)
		if p.Status == course.GenerationFailed {
			s.notify(ctx, notify.LevelError, "Course generation failed", "", "", errors.New(p.Message))
		} else {
			s.notify(ctx, notify.LevelSuccess, "Course generation completed", "", "", nil)
		}
	}
	s.emitProgress(p)
}

func (s *Session) clearFlag(ctx context.Context) {
	s.mu.Lock()
	s.marked = false
	s.mu.Unlock()
	if err := s.flags.Clear(ctx, s.courseID); err != nil {
		s.log.Warn("Generation flag clear failed", "error", err)
	}
}

func (s *Session) emitProgress(p course.GenerationProgress) {
	if s.onProgress != nil {
		s.onProgress(p)
	}
}

// Select makes classID the displayed class. Explicit selection wins over
// auto-selection for the rest of the session.
func (s *Session) Select(classID string) error {
	if _, ok := s.tree.Class(classID); !ok {
		return apierr.NotFound("editor.Select", fmt.Errorf("class %q", classID))
	}
	s.mu.Lock()
	s.current = classID
	s.explicit = true
	s.mu.Unlock()
	return nil
}

// Current returns the displayed class.
func (s *Session) Current() (course.ClassUnit, bool) {
	s.mu.Lock()
	id := s.current
	s.mu.Unlock()
	if id == "" {
		return course.ClassUnit{}, false
	}
	return s.tree.Class(id)
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// View is the read model served to clients.
type View struct {
	Course         course.Course             `json:"course"`
	Classes        []course.ClassUnit        `json:"classes"`
	CurrentClassID string                    `json:"current_class_id,omitempty"`
	Progress       course.GenerationProgress `json:"progress"`
	Mode           Mode                      `json:"mode"`
	Loading        bool                      `json:"loading"`
	LoadError      string                    `json:"load_error,omitempty"`
	Edit           EditStatus                `json:"edit"`
}

func (s *Session) Snapshot() View {
	snap := s.tree.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Course:         snap.Course,
		Classes:        snap.Classes,
		CurrentClassID: s.current,
		Progress:       s.progress.Current(),
		Mode:           s.mode,
		Loading:        s.loading,
		Edit:           s.edit.status(),
	}
	if s.loadErr != nil {
		// Failed loads show an empty course rather than partial data.
		v.Classes = nil
		v.LoadError = s.loadErr.Error()
	}
	if v.Classes == nil {
		v.Classes = []course.ClassUnit{}
	}
	return v
}

// Publish marks the course published. A course with no classes is rejected
// without contacting the API.
func (s *Session) Publish(ctx context.Context) error {
	const op = "editor.Publish"
	if s.tree.Len() == 0 {
		err := apierr.Publish(op, 0, ErrNoClasses)
		s.notify(ctx, notify.LevelError, "Add at least one class before publishing", "", "", err)
		return err
	}
	if err := s.repo.PublishCourse(ctx, s.courseID); err != nil {
		s.log.Warn("Publish failed", "error", err)
		s.notify(ctx, notify.LevelError, "Failed to publish course", "", "", err)
		return err
	}
	s.tree.SetPublished(true)
	s.notify(ctx, notify.LevelSuccess, "Course published successfully", "", "", nil)
	return nil
}

// AddSlide creates draft on the server and inserts it with the server id.
// Nothing is inserted locally when the API rejects it.
func (s *Session) AddSlide(ctx context.Context, classID string, draft course.Slide) (course.Slide, error) {
	const op = "editor.AddSlide"
	cu, ok := s.tree.Class(classID)
	if !ok {
		return course.Slide{}, apierr.NotFound(op, fmt.Errorf("class %q", classID))
	}
	draft.ID = course.NewTempID()
	draft.ClassID = classID
	draft.Number = cu.NextSlideNumber()

	id, err := s.repo.AddSlide(ctx, classID, draft)
	if err != nil {
		s.log.Warn("Add slide failed", "class_id", classID, "error", err)
		s.notify(ctx, notify.LevelError, "Failed to add slide", classID, "", err)
		return course.Slide{}, err
	}
	draft.ID = id
	out, err := s.tree.AddSlide(classID, draft)
	if err != nil {
		return course.Slide{}, err
	}
	s.notify(ctx, notify.LevelSuccess, "Slide added successfully", classID, out.ID, nil)
	return out, nil
}

// SetQuizzes relays a quiz list from the quiz manager into the tree.
func (s *Session) SetQuizzes(classID string, quizzes []course.QuizQuestion) error {
	const op = "editor.SetQuizzes"
	for i, q := range quizzes {
		if len(q.Options) == 0 || len(q.Options) > course.MaxQuizOptions {
			return apierr.Load(op, fmt.Errorf("quiz[%d]: %d options, want 1..%d", i, len(q.Options), course.MaxQuizOptions))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return apierr.Load(op, fmt.Errorf("quiz[%d]: correct option %d out of range", i, q.CorrectOption))
		}
	}
	return s.tree.SetQuizzes(classID, quizzes)
}

// Close ends the session. The generation flag survives unless the job has
// finished, so a reopened editor resumes the progress view.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	if s.channel != nil {
		for _, sub := range subs {
			s.channel.Unsubscribe(sub)
		}
		s.channel.Close()
	}
	if s.progress.Current().Status.Terminal() {
		s.clearFlag(ctx)
	}
	s.log.Info("Editor session closed")
}

func (s *Session) notify(ctx context.Context, level notify.Level, msg, classID, slideID string, err error) {
	n := notify.Notification{
		Level:    level,
		Message:  msg,
		CourseID: s.courseID,
		ClassID:  classID,
		SlideID:  slideID,
	}
	if err != nil {
		n.Error = err.Error()
	}
	s.sink.Notify(ctx, n)
}
