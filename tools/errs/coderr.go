package errs

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CodeError is the error currency of the whole module: a stable numeric
// code plus a short message, with an optional free-form detail trail.
// Codes are compared by Is, so callers can classify failures without
// string matching.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: e.Detail,
	}
}

// WithDetail returns a copy carrying extra detail text.
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail += ", " + detail
	}
	return c
}

// Wrap attaches a stack trace to the code error.
func (e *CodeError) Wrap() error {
	return errors.WithStack(e.clone())
}

// WrapMsg appends formatted detail (msg plus alternating key/value pairs)
// and attaches a stack trace.
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	c := e.clone()
	if msg != "" || len(kv) > 0 {
		detail := toString(msg, kv)
		if c.Detail == "" {
			c.Detail = detail
		} else {
			c.Detail += ", " + detail
		}
	}
	return errors.WithStack(c)
}

// Is reports whether err carries the same code as e, unwrapping as needed.
func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !stderrors.As(err, &ce) {
		return err == nil && e == nil
	}
	if e == nil {
		return false
	}
	return e.Code == ce.Code
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// New creates a plain stack-carrying error; used where no code applies.
func New(msg string, kv ...any) error {
	return errors.New(toString(msg, kv))
}

// WrapMsg wraps an arbitrary error with formatted detail.
func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(errors.WithMessage(err, toString(msg, kv)))
}

// Unwrap walks to the innermost error.
func Unwrap(err error) error {
	for err != nil {
		u, ok := err.(interface {
			error
			Unwrap() error
		})
		if !ok {
			break
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
	return err
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i > 0 || msg != "" {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		}
	}
	return sb.String()
}
