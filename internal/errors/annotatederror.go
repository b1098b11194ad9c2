package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError includes more context than a plain error that is useful for troubleshooting.
type AnnotatedError struct {
	// msg is the error message.
	msg string
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) AnnotatedError {
	return newAnnotatedError(msg, 3, attrs) //nolint:mnd // skip runtime.Callers, newAnnotatedError and New.
}

func newAnnotatedError(msg string, skip int, attrs []slog.Attr) AnnotatedError {
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	return AnnotatedError{
		msg:   msg,
		pc:    pcs[0],
		attrs: attrs,
	}
}

// NewSentinel creates a plain error without other context that can be used as sentinel error that can be detected
// with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Wrap annotates err with msg and attrs. The source location points to the caller of Wrap.
//
// The returned error matches both err and any sentinel err wraps with errors.Is.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return newAnnotatedError(msg, 3, attrs).Wrap(err) //nolint:mnd // skip runtime.Callers, newAnnotatedError and Wrap.
}

// Mark tags err with sentinel so that errors.Is(err, sentinel) holds without changing the annotation of err.
func Mark(err error, sentinel error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Wrap is a convenience function for wrapping errors, e.g., adding context to a sentinel error.
func (err AnnotatedError) Wrap(wrapped error) error {
	return fmt.Errorf("%w: %w", err, wrapped)
}

// Error implements error interface.
func (err AnnotatedError) Error() string {
	return err.msg
}

// LogValue formats the error for useful logging.
func (err AnnotatedError) LogValue() slog.Value {
	// Retrieve the source location of the error so that developers can locate it faster.
	frames := runtime.CallersFrames([]uintptr{err.pc})
	source, _ := frames.Next()
	sourceAttr := slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line))

	attrs := append(
		[]slog.Attr{sourceAttr},
		err.attrs...,
	)

	return slog.GroupValue(attrs...)
}

// SlogError returns a slog attribute for err. Every AnnotatedError in the chain contributes its source location and
// attributes so that the log event contains the whole context.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	attrs := []slog.Attr{slog.String("message", err.Error())}
	for i, annotated := range annotations(err) {
		attrs = append(attrs, slog.Any(fmt.Sprintf("annotation%d", i), annotated))
	}
	return slog.Attr{Key: "error", Value: slog.GroupValue(attrs...)}
}

// annotations collects the AnnotatedErrors in err's tree, outermost first.
func annotations(err error) []AnnotatedError {
	var found []AnnotatedError
	queue := []error{err}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if annotated, ok := current.(AnnotatedError); ok {
			found = append(found, annotated)
			continue
		}
		switch unwrapper := current.(type) { //nolint:errorlint // walking the tree manually.
		case interface{ Unwrap() []error }:
			queue = append(queue, unwrapper.Unwrap()...)
		case interface{ Unwrap() error }:
			if next := unwrapper.Unwrap(); next != nil {
				queue = append(queue, next)
			}
		}
	}
	return found
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
