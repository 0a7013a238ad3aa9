package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecureString(t *testing.T) {
	s1, err := SecureString(32)
	assert.NoError(t, err)
	assert.Len(t, s1, 32)

	s2, err := SecureString(32)
	assert.NoError(t, err)
	assert.Len(t, s2, 32)

	assert.NotEqual(t, s1, s2)

	long, err := SecureString(1000)
	assert.NoError(t, err)
	for _, c := range long {
		assert.True(t, strings.ContainsRune(alphabet, c))
	}

	_, err = SecureString(0)
	assert.Error(t, err)
}

func TestState(t *testing.T) {
	state, err := State()
	assert.NoError(t, err)
	assert.Len(t, state, 32)
}
