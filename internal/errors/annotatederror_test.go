package errors

import (
	"github.com/stretchr/testify/require"
	"log/slog"
	"slices"
	"testing"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := err.Wrap(sentinel)
	require.ErrorIs(t, wrapped, sentinel)

	// Ensure log values are coming through.
	group := err.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestWrap(t *testing.T) {
	sentinel := NewSentinel("store down")
	err := Wrap(sentinel, "insert row", slog.Int64("id", 7))
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, "insert row: store down", err.Error())

	var annotated AnnotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.Int64("id", 7))
	require.Contains(t, group[0].Value.String(), "annotatederror_test.go")
}

func TestMark(t *testing.T) {
	sentinel := NewSentinel("unavailable")
	cause := NewSentinel("disk I/O error")
	err := Wrap(Mark(cause, sentinel), "update questionnaire")
	require.ErrorIs(t, err, sentinel)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "update questionnaire: unavailable: disk I/O error", err.Error())
}

func TestSlogError(t *testing.T) {
	inner := Wrap(NewSentinel("boom"), "inner", slog.String("k", "v"))
	outer := Wrap(inner, "outer")
	attr := SlogError(outer)
	require.Equal(t, "error", attr.Key)
	group := attr.Value.Group()
	require.Equal(t, slog.String("message", "outer: inner: boom"), group[0])
	require.Len(t, group, 3, "message plus one entry per annotation")
}
