package circuitbreaker

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerExecute(t *testing.T) {
	t.Run("passes through success", func(t *testing.T) {
		cb := New(DefaultConfig("test"))
		result, err := cb.Execute(func() (interface{}, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, gobreaker.StateClosed, cb.State())
	})

	t.Run("passes through failure while closed", func(t *testing.T) {
		cb := New(DefaultConfig("test"))
		sentinel := errors.New("boom")
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.False(t, cb.IsOpen())
	})

	t.Run("opens after failure threshold", func(t *testing.T) {
		cfg := DefaultConfig("trip-test")
		cfg.MinRequests = 3
		cfg.FailureThreshold = 1.0
		cb := New(cfg)

		for i := 0; i < 3; i++ {
			_, _ = cb.Execute(func() (interface{}, error) {
				return nil, errors.New("boom")
			})
		}

		assert.True(t, cb.IsOpen())

		_, err := cb.Execute(func() (interface{}, error) {
			t.Fatal("function must not run while circuit is open")
			return nil, nil
		})
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	})

	t.Run("stays closed under min requests", func(t *testing.T) {
		cfg := DefaultConfig("min-test")
		cfg.MinRequests = 10
		cb := New(cfg)

		for i := 0; i < 5; i++ {
			_, _ = cb.Execute(func() (interface{}, error) {
				return nil, errors.New("boom")
			})
		}
		assert.False(t, cb.IsOpen())
	})
}

func TestPresetConfigs(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"ollama", OllamaConfig()},
		{"anthropic", AnthropicConfig()},
		{"openai", OpenAIConfig()},
		{"feed reader", FeedReaderConfig()},
		{"mail", MailConfig()},
		{"db", DBConfig()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.cfg.Name)
			assert.Positive(t, tt.cfg.MaxRequests)
			assert.Positive(t, tt.cfg.MinRequests)
			assert.Greater(t, tt.cfg.FailureThreshold, 0.0)
			assert.LessOrEqual(t, tt.cfg.FailureThreshold, 1.0)
		})
	}
}

func TestName(t *testing.T) {
	cb := New(DefaultConfig("named"))
	assert.Equal(t, "named", cb.Name())
}
