package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBusyGroup(t *testing.T) {
	assert.True(t, isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroup(errors.New("ERR no such key")))
	assert.False(t, isBusyGroup(nil))
}
