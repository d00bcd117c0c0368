package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("TEST_KEY", "")
	assert.Equal(t, "default", GetEnvString("TEST_KEY", "default"))

	t.Setenv("TEST_KEY", "set")
	assert.Equal(t, "set", GetEnvString("TEST_KEY", "default"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "")
	assert.Equal(t, 42, GetEnvInt("TEST_INT", 42))

	t.Setenv("TEST_INT", "7")
	assert.Equal(t, 7, GetEnvInt("TEST_INT", 42))

	t.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 42, GetEnvInt("TEST_INT", 42))
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"1", false, true},
		{"true", false, true},
		{"TRUE", false, true},
		{"0", true, false},
		{"false", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, GetEnvBool("TEST_BOOL", tt.def))
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "")
	assert.Equal(t, time.Minute, GetEnvDuration("TEST_DUR", time.Minute))

	t.Setenv("TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, GetEnvDuration("TEST_DUR", time.Minute))

	t.Setenv("TEST_DUR", "soon")
	assert.Equal(t, time.Minute, GetEnvDuration("TEST_DUR", time.Minute))
}

func TestGetEnvStringList(t *testing.T) {
	def := []string{"a", "b"}

	t.Setenv("TEST_LIST", "")
	assert.Equal(t, def, GetEnvStringList("TEST_LIST", def))

	t.Setenv("TEST_LIST", "x, y ,z")
	assert.Equal(t, []string{"x", "y", "z"}, GetEnvStringList("TEST_LIST", def))

	t.Setenv("TEST_LIST", " , ,")
	assert.Equal(t, def, GetEnvStringList("TEST_LIST", def))
}

func TestValidateDurations(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Second))
	assert.Error(t, ValidatePositiveDuration(0))
	assert.Error(t, ValidatePositiveDuration(-time.Second))

	assert.NoError(t, ValidateNonNegativeDuration(0))
	assert.Error(t, ValidateNonNegativeDuration(-time.Second))

	assert.NoError(t, ValidateDurationRange(time.Minute, time.Second, time.Hour))
	assert.Error(t, ValidateDurationRange(time.Second, time.Minute, time.Hour))
	assert.Error(t, ValidateDurationRange(2*time.Hour, time.Second, time.Hour))
	assert.Error(t, ValidateDurationRange(time.Minute, time.Hour, time.Second))
}
