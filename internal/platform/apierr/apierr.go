package apierr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindFetch    Kind = "fetch_failed"
	KindNotFound Kind = "not_found"
	KindSave     Kind = "save_failed"
	KindPublish  Kind = "publish_failed"
	KindLoad     Kind = "load_failed"
	KindConflict Kind = "conflict"
)

// Sentinels for errors.Is. Any *Error of the matching kind compares equal.
var (
	ErrFetch    = errors.New(string(KindFetch))
	ErrNotFound = errors.New(string(KindNotFound))
	ErrSave     = errors.New(string(KindSave))
	ErrPublish  = errors.New(string(KindPublish))
	ErrLoad     = errors.New(string(KindLoad))
	ErrConflict = errors.New(string(KindConflict))
)

var sentinels = map[Kind]error{
	KindFetch:    ErrFetch,
	KindNotFound: ErrNotFound,
	KindSave:     ErrSave,
	KindPublish:  ErrPublish,
	KindLoad:     ErrLoad,
	KindConflict: ErrConflict,
}

type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func New(kind Kind, op string, status int, err error) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Err: err}
}

func Fetch(op string, status int, err error) *Error   { return New(KindFetch, op, status, err) }
func NotFound(op string, err error) *Error            { return New(KindNotFound, op, 0, err) }
func Save(op string, status int, err error) *Error    { return New(KindSave, op, status, err) }
func Publish(op string, status int, err error) *Error { return New(KindPublish, op, status, err) }
func Load(op string, err error) *Error                { return New(KindLoad, op, 0, err) }
func Conflict(op string, err error) *Error            { return New(KindConflict, op, 0, err) }

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the upstream HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
