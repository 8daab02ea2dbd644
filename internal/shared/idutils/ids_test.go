package idutils

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)

	_, err := ulid.Parse(a)
	require.NoError(t, err)
}
