package courseapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
	"github.com/yungbote/neurobridge-editor/internal/platform/apierr"
	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
)

// TokenSource supplies the access credential attached to every call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	Tokens     TokenSource
	HTTPClient *http.Client
	Log        *logger.Logger
}

// Client talks to the Course Repository API. It never touches the course
// tree; callers apply results after success.
type Client struct {
	rc     *resty.Client
	tokens TokenSource
	log    *logger.Logger
	tracer trace.Tracer
}

// EditCourse is the full edit-mode fetch result.
type EditCourse struct {
	Course  course.Course
	Classes []course.ClassUnit
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("token source required")
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	if opts.MaxRetries > 0 {
		// Only reads are retried; a retried write could double-create a slide.
		rc.SetRetryCount(opts.MaxRetries).
			SetRetryWaitTime(250 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
					return false
				}
				return err != nil || r.StatusCode() >= 500
			})
	}

	return &Client{
		rc:     rc,
		tokens: opts.Tokens,
		log:    log.With("component", "CourseAPIClient"),
		tracer: otel.Tracer("github.com/yungbote/neurobridge-editor/internal/clients/courseapi"),
	}, nil
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return c.rc.R().SetContext(ctx).SetAuthToken(tok).SetError(&errorEnvelope{}), nil
}

func (c *Client) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "courseapi."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// responseError turns a non-2xx response into a plain error carrying the
// server message.
func responseError(resp *resty.Response) error {
	msg := ""
	if env, ok := resp.Error().(*errorEnvelope); ok {
		msg = env.text()
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return errors.New(msg)
}

// FetchCourseForEdit loads the whole course with classes, slides, FAQs and quizzes.
func (c *Client) FetchCourseForEdit(ctx context.Context, courseID string) (out EditCourse, err error) {
	const op = "courseapi.FetchCourseForEdit"
	ctx, span := c.startSpan(ctx, "FetchCourseForEdit", attribute.String("course.id", courseID))
	defer func() { endSpan(span, err) }()

	req, err := c.request(ctx)
	if err != nil {
		return out, apierr.Fetch(op, 0, err)
	}
	resp, err := req.SetPathParam("courseId", courseID).Get("/course-for-edit/{courseId}")
	if err != nil {
		c.log.Warn("fetch course for edit failed", "course_id", courseID, "error", err)
		return out, apierr.Fetch(op, 0, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return out, apierr.NotFound(op, fmt.Errorf("course %q", courseID))
	case resp.IsError():
		return out, apierr.Fetch(op, resp.StatusCode(), responseError(resp))
	}

	var body courseForEditResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return out, apierr.Load(op, fmt.Errorf("decode: %w", err))
	}
	if err := validatePayload(&body); err != nil {
		return out, apierr.Load(op, err)
	}

	out.Course = course.Course{
		ID:          courseID,
		Title:       body.CourseInfo.CourseTitle,
		IsPublished: body.CourseInfo.IsPublished,
	}
	out.Classes = make([]course.ClassUnit, 0, len(body.Classes))
	for _, p := range body.Classes {
		out.Classes = append(out.Classes, p.ToDomain(courseID))
	}
	c.log.Debug("fetched course for edit", "course_id", courseID, "classes", len(out.Classes))
	return out, nil
}

// FetchCourseMeta is the title-only fetch used while classes stream in.
func (c *Client) FetchCourseMeta(ctx context.Context, courseID string) (out course.Course, err error) {
	const op = "courseapi.FetchCourseMeta"
	ctx, span := c.startSpan(ctx, "FetchCourseMeta", attribute.String("course.id", courseID))
	defer func() { endSpan(span, err) }()

	req, err := c.request(ctx)
	if err != nil {
		return out, apierr.Fetch(op, 0, err)
	}
	resp, err := req.SetPathParam("courseId", courseID).Get("/course-editor-details/{courseId}")
	if err != nil {
		return out, apierr.Fetch(op, 0, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return out, apierr.NotFound(op, fmt.Errorf("course %q", courseID))
	case resp.IsError():
		return out, apierr.Fetch(op, resp.StatusCode(), responseError(resp))
	}

	var body courseMetaResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return out, apierr.Load(op, fmt.Errorf("decode: %w", err))
	}
	if err := validatePayload(&body); err != nil {
		return out, apierr.Load(op, err)
	}
	return course.Course{ID: courseID, Title: body.Course.CourseTitle}, nil
}

// AddSlide creates a slide and returns the server-assigned id.
func (c *Client) AddSlide(ctx context.Context, classID string, s course.Slide) (id string, err error) {
	const op = "courseapi.AddSlide"
	ctx, span := c.startSpan(ctx, "AddSlide", attribute.String("class.id", classID))
	defer func() { endSpan(span, err) }()

	req, err := c.request(ctx)
	if err != nil {
		return "", apierr.Save(op, 0, err)
	}
	resp, err := req.
		SetBody(slideCreateRequest{
			ClassID:         classID,
			SlideNo:         s.Number,
			Title:           s.Title,
			Content:         s.Content,
			VoiceoverScript: s.VoiceoverScript,
			VisualPrompt:    s.VisualPrompt,
			Example:         s.Example,
			ImageURL:        s.ImageURL,
		}).
		Post("/slide")
	if err != nil {
		c.log.Warn("add slide failed", "class_id", classID, "error", err)
		return "", apierr.Save(op, 0, err)
	}
	if resp.IsError() {
		return "", apierr.Save(op, resp.StatusCode(), responseError(resp))
	}
	var body slideCreateResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", apierr.Save(op, resp.StatusCode(), fmt.Errorf("decode: %w", err))
	}
	if err := validatePayload(&body); err != nil {
		return "", apierr.Save(op, resp.StatusCode(), err)
	}
	return body.Data.ID, nil
}

func (c *Client) UpdateSlide(ctx context.Context, slideID string, patch course.SlidePatch) (err error) {
	const op = "courseapi.UpdateSlide"
	ctx, span := c.startSpan(ctx, "UpdateSlide", attribute.String("slide.id", slideID))
	defer func() { endSpan(span, err) }()

	if course.IsTempID(slideID) {
		return apierr.Save(op, 0, fmt.Errorf("slide %q has not been created yet", slideID))
	}
	req, err := c.request(ctx)
	if err != nil {
		return apierr.Save(op, 0, err)
	}
	resp, err := req.
		SetPathParam("slideId", slideID).
		SetBody(slideUpdateRequest(patch)).
		Put("/slide/{slideId}")
	if err != nil {
		return apierr.Save(op, 0, err)
	}
	if resp.IsError() {
		return apierr.Save(op, resp.StatusCode(), responseError(resp))
	}
	return nil
}

func (c *Client) UpdateClassMeta(ctx context.Context, classID string, meta course.ClassMeta) (err error) {
	const op = "courseapi.UpdateClassMeta"
	ctx, span := c.startSpan(ctx, "UpdateClassMeta", attribute.String("class.id", classID))
	defer func() { endSpan(span, err) }()

	req, err := c.request(ctx)
	if err != nil {
		return apierr.Save(op, 0, err)
	}
	concepts := meta.Concepts
	if concepts == nil {
		concepts = []string{}
	}
	resp, err := req.
		SetPathParam("classId", classID).
		SetBody(classUpdateRequest{ClassTitle: meta.Title, Concepts: concepts}).
		Put("/class/{classId}")
	if err != nil {
		return apierr.Save(op, 0, err)
	}
	if resp.IsError() {
		return apierr.Save(op, resp.StatusCode(), responseError(resp))
	}
	return nil
}

func (c *Client) PublishCourse(ctx context.Context, courseID string) (err error) {
	const op = "courseapi.PublishCourse"
	ctx, span := c.startSpan(ctx, "PublishCourse", attribute.String("course.id", courseID))
	defer func() { endSpan(span, err) }()

	req, err := c.request(ctx)
	if err != nil {
		return apierr.Publish(op, 0, err)
	}
	resp, err := req.SetPathParam("courseId", courseID).Post("/course/{courseId}/publish")
	if err != nil {
		return apierr.Publish(op, 0, err)
	}
	if resp.IsError() {
		return apierr.Publish(op, resp.StatusCode(), responseError(resp))
	}
	c.log.Info("course published", "course_id", courseID)
	return nil
}
