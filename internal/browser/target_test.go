package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownTarget(t *testing.T) {
	assert.True(t, KnownTarget("chrome"))
	assert.True(t, KnownTarget("chromium"))
	assert.True(t, KnownTarget("edge"))
	assert.False(t, KnownTarget("firefox"))
	assert.False(t, KnownTarget(""))
}

func TestFindBinaryUnknownTarget(t *testing.T) {
	_, err := findBinary("netscape")
	assert.True(t, errors.Is(err, ErrUnknownTarget))
	assert.Contains(t, err.Error(), "netscape")
}

func TestConditionString(t *testing.T) {
	assert.Equal(t, "present", Present.String())
	assert.Equal(t, "clickable", Clickable.String())
	assert.Equal(t, "visible", Visible.String())
}
