package logrotate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	when := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	name, err := Name(DefaultPattern, when)
	require.NoError(t, err)
	assert.Equal(t, "nbplink-20260305.log", name)
}

func TestNameBadPattern(t *testing.T) {
	_, err := Name("%Q", time.Now())
	assert.Error(t, err)
}
