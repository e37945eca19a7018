package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldSetIfUnknown(t *testing.T) {
	var f Field[string]
	require.False(t, f.Ok())
	require.Equal(t, "fallback", f.Or("fallback"))

	f.SetIfUnknown("first")
	f.SetIfUnknown("second")
	require.Equal(t, "first", f.Value())

	v, ok := f.Get()
	require.True(t, ok)
	require.Equal(t, "first", v)
}

func TestDimensionsString(t *testing.T) {
	d := Dimensions{Length: 48, Width: 40, Height: 36}
	require.Equal(t, "48x40x36", d.String())
}

func TestHasContactEmail(t *testing.T) {
	var r LoadRecord
	require.False(t, r.HasContactEmail())
	r.ContactEmail = Known("x@y.com")
	require.True(t, r.HasContactEmail())
}
