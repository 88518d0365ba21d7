package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accesskit/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf)).Info("hello")

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText)).Info("hello")

		assert.Contains(t, buf.String(), "level=INFO")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("static attributes", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithAttr(slog.String("component", "authstate"))).Info("msg")

		assert.Equal(t, "authstate", decode(t, buf)["component"])
	})

	t.Run("context extractors", func(t *testing.T) {
		t.Parallel()
		type key struct{}
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
				if v, ok := ctx.Value(key{}).(uuid.UUID); ok {
					return logger.IdentityID(v), true
				}
				return slog.Attr{}, false
			}),
		)

		id := uuid.New()
		log.InfoContext(context.WithValue(context.Background(), key{}, id), "signed in")
		assert.Equal(t, id.String(), decode(t, buf)["identity_id"])

		buf.Reset()
		log.InfoContext(context.Background(), "anonymous")
		assert.NotContains(t, decode(t, buf), "identity_id")
	})

	t.Run("secrets are redacted", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithRedactedKeys("invite_token"))

		log.Info("attempt",
			slog.String("password", "hunter2"),
			slog.String("Pending_Token", "abc"),
			slog.String("invite_token", "xyz"),
			slog.String("email_hash", "kept"),
		)
		entry := decode(t, buf)
		assert.Equal(t, "[REDACTED]", entry["password"])
		assert.Equal(t, "[REDACTED]", entry["Pending_Token"])
		assert.Equal(t, "[REDACTED]", entry["invite_token"])
		assert.Equal(t, "kept", entry["email_hash"])
		assert.NotContains(t, buf.String(), "hunter2")
	})
}

func TestWithLevelName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     string
		debugSeen bool
		warnSeen  bool
	}{
		{"debug", "debug", true, true},
		{"warn", "WARN", false, true},
		{"error", "error", false, false},
		{"unknown keeps info", "verbose", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			log := logger.New(logger.WithOutput(buf), logger.WithLevelName(tt.level))

			log.Debug("debug line")
			assert.Equal(t, tt.debugSeen, bytes.Contains(buf.Bytes(), []byte("debug line")))

			log.Warn("warn line")
			assert.Equal(t, tt.warnSeen, bytes.Contains(buf.Bytes(), []byte("warn line")))
		})
	}
}

func TestWithLevel(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelError))

	log.Warn("dropped")
	assert.Zero(t, buf.Len())
	log.Error("kept")
	assert.Equal(t, "kept", decode(t, buf)["msg"])
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("development is text and debug", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithEnvironment("development", "accessdemo"), logger.WithOutput(buf)).Debug("msg")

		out := buf.String()
		assert.Contains(t, out, "level=DEBUG")
		assert.Contains(t, out, "service=accessdemo")
		assert.Contains(t, out, "env=development")
	})

	t.Run("prod alias is json", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithEnvironment("prod", "accessdemo"), logger.WithOutput(buf)).Info("msg")

		entry := decode(t, buf)
		assert.Equal(t, "production", entry["env"])
		assert.Equal(t, "accessdemo", entry["service"])
	})
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := logger.Discard()
	require.NotNil(t, log)
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}

func TestWithFormatPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}
