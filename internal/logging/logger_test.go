package logging

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"info", DEFAULT},
		{"", DEFAULT},
		{"verbose", VERBOSE},
		{"DEBUG", DEBUG},
		{"trace", TRACE},
		{"nonsense", DEFAULT},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", true)
	require.NoError(t, err)

	assert.True(t, log.V(DEBUG).Enabled())
	assert.False(t, log.V(TRACE).Enabled())
}

func TestOrDiscard(t *testing.T) {
	var zero logr.Logger
	assert.NotPanics(t, func() { OrDiscard(zero).Info("dropped") })

	log := NewTestLogger()
	assert.True(t, OrDiscard(log).V(TRACE).Enabled())
}
