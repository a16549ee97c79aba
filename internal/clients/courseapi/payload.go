package courseapi

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
)

// Wire shapes of the Course Repository API. The class shape is shared with the
// progress stream's class_data event. A missing classNo is left at zero so the
// course tree assigns the next ordinal.

type ClassPayload struct {
	ClassNo    int            `json:"classNo" validate:"gte=0"`
	ClassID    string         `json:"classId" validate:"required"`
	ClassTitle string         `json:"classTitle"`
	Concepts   []string       `json:"concepts"`
	Slides     []SlidePayload `json:"slides" validate:"dive"`
	FAQs       []FAQPayload   `json:"faqs" validate:"dive"`
	Quizzes    []QuizPayload  `json:"quizzes" validate:"dive"`
}

type SlidePayload struct {
	ID              string `json:"id" validate:"required"`
	SlideNo         int    `json:"slideNo"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	VoiceoverScript string `json:"voiceoverScript"`
	VisualPrompt    string `json:"visualPrompt"`
	Example         string `json:"example,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
}

type FAQPayload struct {
	ID       string `json:"id" validate:"required"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QuizPayload struct {
	ID            string   `json:"id" validate:"required"`
	Question      string   `json:"question"`
	Options       []string `json:"options" validate:"max=4"`
	CorrectOption int      `json:"correctOption" validate:"gte=0"`
}

type courseForEditResponse struct {
	CourseInfo *courseInfoPayload `json:"courseInfo" validate:"required"`
	Classes    []ClassPayload     `json:"classes" validate:"dive"`
}

type courseInfoPayload struct {
	CourseTitle string `json:"courseTitle"`
	IsPublished bool   `json:"isPublished"`
}

type courseMetaResponse struct {
	Course *struct {
		CourseTitle string `json:"courseTitle"`
	} `json:"course" validate:"required"`
}

type slideCreateRequest struct {
	ClassID         string `json:"classId"`
	SlideNo         int    `json:"slideNo"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	VoiceoverScript string `json:"voiceoverScript"`
	VisualPrompt    string `json:"visualPrompt"`
	Example         string `json:"example,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
}

type slideCreateResponse struct {
	Data struct {
		ID string `json:"id" validate:"required"`
	} `json:"data"`
}

type slideUpdateRequest struct {
	Title           *string `json:"title,omitempty"`
	Content         *string `json:"content,omitempty"`
	VoiceoverScript *string `json:"voiceoverScript,omitempty"`
	VisualPrompt    *string `json:"visualPrompt,omitempty"`
	Example         *string `json:"example,omitempty"`
	ImageURL        *string `json:"imageUrl,omitempty"`
}

type classUpdateRequest struct {
	ClassTitle string   `json:"classTitle"`
	Concepts   []string `json:"concepts"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
}

func (e *errorEnvelope) text() string {
	if e == nil {
		return ""
	}
	if s := strings.TrimSpace(e.Message); s != "" {
		return s
	}
	switch v := e.Error.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if m, ok := v["message"].(string); ok {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names so errors match the wire payload.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

func validatePayload(v any) error {
	if err := validatorInstance().Struct(v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// DecodeClass parses and validates one class payload.
func DecodeClass(raw []byte, courseID string) (course.ClassUnit, error) {
	var p ClassPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return course.ClassUnit{}, fmt.Errorf("decode class: %w", err)
	}
	if err := validatePayload(&p); err != nil {
		return course.ClassUnit{}, err
	}
	return p.ToDomain(courseID), nil
}

func (p ClassPayload) ToDomain(courseID string) course.ClassUnit {
	cu := course.ClassUnit{
		ID:       strings.TrimSpace(p.ClassID),
		CourseID: courseID,
		Number:   p.ClassNo,
		Title:    p.ClassTitle,
		Concepts: append([]string{}, p.Concepts...),
		Slides:   make([]course.Slide, 0, len(p.Slides)),
		FAQs:     make([]course.FAQ, 0, len(p.FAQs)),
		Quizzes:  make([]course.QuizQuestion, 0, len(p.Quizzes)),
	}
	positional := !distinctPositive(p.Slides)
	for i, s := range p.Slides {
		n := s.SlideNo
		if positional {
			n = i + 1
		}
		cu.Slides = append(cu.Slides, course.Slide{
			ID:              s.ID,
			ClassID:         cu.ID,
			Number:          n,
			Title:           s.Title,
			Content:         s.Content,
			VoiceoverScript: s.VoiceoverScript,
			VisualPrompt:    s.VisualPrompt,
			Example:         s.Example,
			ImageURL:        s.ImageURL,
		})
	}
	for _, f := range p.FAQs {
		cu.FAQs = append(cu.FAQs, course.FAQ{ID: f.ID, ClassID: cu.ID, Question: f.Question, Answer: f.Answer})
	}
	for _, q := range p.Quizzes {
		cu.Quizzes = append(cu.Quizzes, course.QuizQuestion{
			ID:            q.ID,
			ClassID:       cu.ID,
			Question:      q.Question,
			Options:       append([]string{}, q.Options...),
			CorrectOption: q.CorrectOption,
		})
	}
	return cu
}

// distinctPositive reports whether every slide carries its own ordinal. When
// any is missing or repeated, slides are numbered by position instead.
func distinctPositive(slides []SlidePayload) bool {
	seen := make(map[int]bool, len(slides))
	for _, s := range slides {
		if s.SlideNo <= 0 || seen[s.SlideNo] {
			return false
		}
		seen[s.SlideNo] = true
	}
	return true
}
