package main

import (
	"testing"
	"time"

	"github.com/myrjola/survey/internal/errors"
	"github.com/stretchr/testify/require"
)

func Test_registry(t *testing.T) {
	t.Parallel()
	r := newRegistry[*int]()
	value := 1
	key := r.add(&value).String()
	require.Equal(t, 1, r.size())

	require.NoError(t, r.with(key, func(v *int) error {
		*v++
		return nil
	}))
	require.Equal(t, 2, value)

	errBoom := errors.NewSentinel("boom")
	require.ErrorIs(t, r.with(key, func(*int) error { return errBoom }), errBoom)

	tests := []struct {
		name string
		key  string
	}{
		{"empty key", ""},
		{"malformed key", "not-a-uuid"},
		{"unknown key", "6f1c2a52-9a43-4cf4-9b0f-7e5b8f0b0d7e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.with(tt.key, func(*int) error { return nil })
			require.ErrorIs(t, err, errNoActiveSession)
		})
	}

	require.Zero(t, r.expire(time.Now().Add(-time.Hour)))
	require.Equal(t, 1, r.expire(time.Now().Add(time.Hour)))
	require.Zero(t, r.size())
	require.ErrorIs(t, r.with(key, func(*int) error { return nil }), errNoActiveSession)

	r.remove("not-a-uuid")
}
