package course

import (
	"strings"

	"github.com/google/uuid"
)

// MaxQuizOptions bounds QuizQuestion.Options.
const MaxQuizOptions = 4

const tempIDPrefix = "tmp-"

type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsPublished bool   `json:"is_published"`
	OwnerID     string `json:"owner_id,omitempty"`
}

// ClassUnit is one lesson of a course. Number is the 1-based display order.
type ClassUnit struct {
	ID       string         `json:"id"`
	CourseID string         `json:"course_id"`
	Number   int            `json:"number"`
	Title    string         `json:"title"`
	Concepts []string       `json:"concepts"`
	Slides   []Slide        `json:"slides"`
	FAQs     []FAQ          `json:"faqs"`
	Quizzes  []QuizQuestion `json:"quizzes"`
}

type Slide struct {
	ID              string `json:"id"`
	ClassID         string `json:"class_id"`
	Number          int    `json:"number"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	VoiceoverScript string `json:"voiceover_script"`
	VisualPrompt    string `json:"visual_prompt"`
	Example         string `json:"example,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
}

// Pending reports whether the slide still carries a local id.
func (s Slide) Pending() bool { return IsTempID(s.ID) }

type FAQ struct {
	ID       string `json:"id"`
	ClassID  string `json:"class_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QuizQuestion struct {
	ID            string   `json:"id"`
	ClassID       string   `json:"class_id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// ClassMeta is the editable part of a ClassUnit.
type ClassMeta struct {
	Title    string   `json:"title"`
	Concepts []string `json:"concepts"`
}

func (m ClassMeta) Clone() ClassMeta {
	return ClassMeta{Title: m.Title, Concepts: cloneStrings(m.Concepts)}
}

// SlidePatch carries the fields to overwrite; nil means unchanged.
type SlidePatch struct {
	Title           *string `json:"title,omitempty"`
	Content         *string `json:"content,omitempty"`
	VoiceoverScript *string `json:"voiceover_script,omitempty"`
	VisualPrompt    *string `json:"visual_prompt,omitempty"`
	Example         *string `json:"example,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
}

func (p SlidePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.VoiceoverScript == nil &&
		p.VisualPrompt == nil && p.Example == nil && p.ImageURL == nil
}

func (p SlidePatch) Apply(s Slide) Slide {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Content != nil {
		s.Content = *p.Content
	}
	if p.VoiceoverScript != nil {
		s.VoiceoverScript = *p.VoiceoverScript
	}
	if p.VisualPrompt != nil {
		s.VisualPrompt = *p.VisualPrompt
	}
	if p.Example != nil {
		s.Example = *p.Example
	}
	if p.ImageURL != nil {
		s.ImageURL = *p.ImageURL
	}
	return s
}

// Merge layers next over p.
func (p SlidePatch) Merge(next SlidePatch) SlidePatch {
	if next.Title != nil {
		p.Title = next.Title
	}
	if next.Content != nil {
		p.Content = next.Content
	}
	if next.VoiceoverScript != nil {
		p.VoiceoverScript = next.VoiceoverScript
	}
	if next.VisualPrompt != nil {
		p.VisualPrompt = next.VisualPrompt
	}
	if next.Example != nil {
		p.Example = next.Example
	}
	if next.ImageURL != nil {
		p.ImageURL = next.ImageURL
	}
	return p
}

func NewTempID() string { return tempIDPrefix + uuid.NewString() }

func IsTempID(id string) bool { return strings.HasPrefix(id, tempIDPrefix) }

func (c ClassUnit) Meta() ClassMeta {
	return ClassMeta{Title: c.Title, Concepts: cloneStrings(c.Concepts)}
}

// NextSlideNumber is one past the highest slide ordinal in the class.
func (c ClassUnit) NextSlideNumber() int {
	max := 0
	for _, s := range c.Slides {
		if s.Number > max {
			max = s.Number
		}
	}
	return max + 1
}

// Clone deep-copies the class so callers can hold it across model updates.
func (c ClassUnit) Clone() ClassUnit {
	out := c
	out.Concepts = cloneStrings(c.Concepts)
	if c.Slides != nil {
		out.Slides = append([]Slide(nil), c.Slides...)
	}
	if c.FAQs != nil {
		out.FAQs = append([]FAQ(nil), c.FAQs...)
	}
	if c.Quizzes != nil {
		out.Quizzes = make([]QuizQuestion, len(c.Quizzes))
		for i, q := range c.Quizzes {
			q.Options = cloneStrings(q.Options)
			out.Quizzes[i] = q
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
