// Package skerr provides error wrapping that records the call sites an error
// passed through, so that the eventual log line points back at the code that
// produced and propagated the failure.
package skerr

import (
	"fmt"
	"runtime"
	"strings"
)

// StackFrame identifies one call site an error passed through.
type StackFrame struct {
	File string
	Line int
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}

// ErrorWithContext wraps an error with an optional message and the call stack
// accumulated via Wrap/Wrapf.
type ErrorWithContext struct {
	Wrapped error
	Message string
	Stack   []StackFrame
}

// Error implements the error interface.
func (e *ErrorWithContext) Error() string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
		b.WriteString(": ")
	}
	b.WriteString(e.Wrapped.Error())
	if len(e.Stack) > 0 {
		frames := make([]string, 0, len(e.Stack))
		for _, f := range e.Stack {
			frames = append(frames, f.String())
		}
		b.WriteString(" At ")
		b.WriteString(strings.Join(frames, " "))
	}
	return b.String()
}

// Unwrap supports errors.Is and errors.As.
func (e *ErrorWithContext) Unwrap() error {
	return e.Wrapped
}

func callerFrame(skip int) StackFrame {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return StackFrame{File: "unknown", Line: 0}
	}
	// Trim the path down to the last two elements, which is enough to locate
	// the file within the repo.
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return StackFrame{File: file, Line: line}
}

// Fmt is like fmt.Errorf but records the call site.
func Fmt(format string, args ...interface{}) error {
	return &ErrorWithContext{
		Wrapped: fmt.Errorf(format, args...),
		Stack:   []StackFrame{callerFrame(1)},
	}
}

// Wrap returns err annotated with the caller's location. If err is already an
// *ErrorWithContext the location is appended to its stack rather than nesting.
func Wrap(err error) error {
	return wrap(err, "")
}

// Wrapf is Wrap with an additional message, e.g.
//
//	skerr.Wrapf(err, "loading alert for advertiser %d", id)
func Wrapf(err error, format string, args ...interface{}) error {
	return wrap(err, fmt.Sprintf(format, args...))
}

func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	frame := callerFrame(2)
	if ctx, ok := err.(*ErrorWithContext); ok {
		stack := append([]StackFrame{}, ctx.Stack...)
		message := ctx.Message
		if msg != "" {
			if message != "" {
				message = msg + ": " + message
			} else {
				message = msg
			}
		}
		return &ErrorWithContext{
			Wrapped: ctx.Wrapped,
			Message: message,
			Stack:   append(stack, frame),
		}
	}
	return &ErrorWithContext{
		Wrapped: err,
		Message: msg,
		Stack:   []StackFrame{frame},
	}
}

// Unwrap returns the originally-wrapped error, or err itself if it carries no
// context.
func Unwrap(err error) error {
	if ctx, ok := err.(*ErrorWithContext); ok {
		return ctx.Wrapped
	}
	return err
}
