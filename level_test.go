package ctxlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{" warning ", LevelWarning, false},
		{"warn", LevelWarning, false},
		{"Error", LevelError, false},
		{"critical", LevelCritical, false},
		{"trace", LevelNotSet, true},
		{"", LevelNotSet, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_Order(t *testing.T) {
	ordered := []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical}
	for i := range ordered {
		for j := range ordered {
			assert.Equal(t, i >= j, ordered[i].Enabled(ordered[j]), "%s vs %s", ordered[i], ordered[j])
		}
	}
}

func TestLevel_Text(t *testing.T) {
	var l Level
	require.NoError(t, l.UnmarshalText([]byte("warning")))
	assert.Equal(t, LevelWarning, l)

	b, err := LevelCritical.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "critical", string(b))

	assert.Error(t, l.UnmarshalText([]byte("loud")))
	assert.Equal(t, "", LevelNotSet.String())
	assert.Equal(t, "level(7)", Level(7).String())
}
