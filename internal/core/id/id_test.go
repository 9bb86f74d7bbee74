package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsTimeOrderedV7(t *testing.T) {
	a, b := New(), New()
	assert.EqualValues(t, 7, a.Version())
	assert.False(t, IsNil(a))
	assert.LessOrEqual(t, a.String()[:12], b.String()[:12])
}

func TestParse(t *testing.T) {
	v := New()
	got, err := Parse(v.String())
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = Parse("not-an-id")
	assert.Error(t, err)
	assert.True(t, IsNil(Nil()))
}
