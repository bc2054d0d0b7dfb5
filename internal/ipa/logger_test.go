package ipa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFields(t *testing.T) {
	fields := map[string]any{
		"user":     "jdoe",
		"Password": "hunter2",
		"token":    "abc",
		"body":     "user=admin&password=hunter2",
		"count":    3,
	}

	sanitized := SanitizeFields(fields)

	assert.Equal(t, "jdoe", sanitized["user"])
	assert.Equal(t, "[REDACTED]", sanitized["Password"])
	assert.Equal(t, "[REDACTED]", sanitized["token"])
	assert.Equal(t, "[REDACTED]", sanitized["body"])
	assert.Equal(t, 3, sanitized["count"])
	assert.Equal(t, "hunter2", fields["Password"], "input must not be modified")
}

func TestLogOperation(t *testing.T) {
	ctx := context.Background()

	fields := map[string]any{"user": "jdoe"}
	err := LogOperation(ctx, SubsystemIPA, "user_show", fields, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, "user_show", fields["operation"])
	assert.Contains(t, fields, "duration_ms")

	notFound := &IPAError{Category: ErrorCategoryNotFound, Message: "ipa user does not exist"}
	fields = map[string]any{}
	err = LogOperation(ctx, SubsystemIPA, "user_show", fields, func() error { return notFound })
	assert.Same(t, notFound, err)
	assert.Equal(t, string(ErrorCategoryNotFound), fields["error_category"])

	err = LogOperation(ctx, SubsystemIPA, "ping", nil, func() error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
}

func TestSurfaceOperationLogging(t *testing.T) {
	ctx := context.Background()

	fields := map[string]any{"group": "developers"}
	done := LogResourceOperation(ctx, "ipa_group_membership", "apply", fields)
	done(nil)
	done = LogDataSourceOperation(ctx, "ipa_users", "read", fields)
	done(errors.New("search failed"))

	assert.Equal(t, map[string]any{"group": "developers"}, fields, "caller fields must not be modified")
}

func TestTFLogger(t *testing.T) {
	var logger Logger = NewTFLogger(context.Background(), SubsystemIPA)

	assert.NotPanics(t, func() {
		logger.Trace("trace", nil)
		logger.Debug("debug", map[string]any{"k": "v"})
		logger.Info("info", nil)
		logger.Warn("warn", nil)
		logger.Error("error", nil)
	})
}
