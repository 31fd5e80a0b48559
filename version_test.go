package cw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMinimumVersionEmptyAlwaysSatisfied(t *testing.T) {
	assert.NoError(t, CheckMinimumVersion(""))
}

func TestCheckMinimumVersionSatisfied(t *testing.T) {
	assert.NoError(t, CheckMinimumVersion("0.1.0"))
}

func TestCheckMinimumVersionTooNew(t *testing.T) {
	assert.ErrorIs(t, CheckMinimumVersion("999.0.0"), ErrNotSupported)
}

func TestCheckMinimumVersionUnparsable(t *testing.T) {
	assert.ErrorIs(t, CheckMinimumVersion("not-a-version"), ErrInvalid)
}
