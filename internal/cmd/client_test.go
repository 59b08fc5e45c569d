package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientMaxRetriesMapsExplicitZeroToDisabled(t *testing.T) {
	assert.Equal(t, -1, clientMaxRetries(0))
	assert.Equal(t, 3, clientMaxRetries(3))
	assert.Equal(t, 1, clientMaxRetries(1))
	assert.Equal(t, -1, clientMaxRetries(-1))
}
