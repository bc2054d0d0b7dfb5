package ipa

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Logging subsystems.
const (
	SubsystemIPA      = "ipa"
	SubsystemKerberos = "kerberos"
	SubsystemHost     = "host"
	SubsystemProvider = "provider"
)

// Logger interface for IPA operations.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Trace(msg string, fields map[string]any)
}

// TFLogger wraps tflog for use in the ipa package.
type TFLogger struct {
	ctx       context.Context
	subsystem string
}

var _ Logger = (*TFLogger)(nil)

// NewTFLogger creates a new logger bound to a subsystem.
func NewTFLogger(ctx context.Context, subsystem string) *TFLogger {
	return &TFLogger{
		ctx:       ctx,
		subsystem: subsystem,
	}
}

func (l *TFLogger) Debug(msg string, fields map[string]any) {
	tflog.SubsystemDebug(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Info(msg string, fields map[string]any) {
	tflog.SubsystemInfo(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Warn(msg string, fields map[string]any) {
	tflog.SubsystemWarn(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Error(msg string, fields map[string]any) {
	tflog.SubsystemError(l.ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Trace(msg string, fields map[string]any) {
	tflog.SubsystemTrace(l.ctx, l.subsystem, msg, fields)
}

// LogOperation is a helper function to log an operation with timing.
func LogOperation(ctx context.Context, subsystem, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	if fields == nil {
		fields = make(map[string]any)
	}
	fields["operation"] = operation

	tflog.SubsystemDebug(ctx, subsystem, "Starting operation", fields)

	err := fn()

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		fields["error"] = err.Error()
		fields["error_category"] = string(GetErrorCategory(err))
		tflog.SubsystemError(ctx, subsystem, "Operation failed", fields)
	} else {
		tflog.SubsystemDebug(ctx, subsystem, "Operation completed successfully", fields)
	}

	return err
}

// LogRPCError logs the error object of a failed RPC.
func LogRPCError(ctx context.Context, method string, rpcErr *RPCError, fields map[string]any) {
	if rpcErr == nil {
		return
	}
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["method"] = method
	fields["ipa_error_code"] = rpcErr.Code
	fields["ipa_error_name"] = rpcErr.Name
	fields["ipa_error_message"] = rpcErr.Message
	if name := rpcErr.DataName(); name != "" {
		fields["ipa_error_field"] = name
	}

	// EmptyModlist is reported by the server but is not a failure.
	if rpcErr.Code == CodeEmptyModlist {
		tflog.SubsystemDebug(ctx, SubsystemIPA, "RPC reported no modifications", fields)
		return
	}

	tflog.SubsystemWarn(ctx, SubsystemIPA, "RPC returned an error", fields)
}

// LogSessionEvent logs session-related events.
func LogSessionEvent(ctx context.Context, event string, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["event"] = event

	switch event {
	case "session_established", "authentication_success":
		tflog.SubsystemInfo(ctx, SubsystemIPA, "Session event", fields)
	case "session_failed", "authentication_failed":
		tflog.SubsystemError(ctx, SubsystemIPA, "Session event", fields)
	default:
		tflog.SubsystemDebug(ctx, SubsystemIPA, "Session event", fields)
	}
}

// LogKerberosEvent logs Kerberos-specific events.
func LogKerberosEvent(ctx context.Context, event string, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["event"] = event

	switch event {
	case "ticket_acquired", "keytab_loaded", "ccache_loaded":
		tflog.SubsystemInfo(ctx, SubsystemKerberos, "Kerberos event", fields)
	case "ticket_acquisition_failed", "keytab_load_failed", "ccache_load_failed":
		tflog.SubsystemError(ctx, SubsystemKerberos, "Kerberos event", fields)
	default:
		tflog.SubsystemTrace(ctx, SubsystemKerberos, "Kerberos event", fields)
	}
}

// SanitizeFields removes sensitive information from log fields.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any)

	sensitiveKeys := map[string]bool{
		"password":     true,
		"passwd":       true,
		"userpassword": true,
		"secret":       true,
		"token":        true,
		"private_key":  true,
		"credential":   true,
		"credentials":  true,
	}

	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if str, ok := v.(string); ok && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		sanitized[k] = v
	}

	return sanitized
}

func containsSensitivePattern(s string) bool {
	patterns := []string{
		"password=",
		"passwd=",
		"secret=",
		"token=",
	}

	lower := strings.ToLower(s)
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}

// LogResourceOperation provides standardized entry/exit logging for Terraform resource operations.
func LogResourceOperation(ctx context.Context, resource, operation string, fields map[string]any) func(error) {
	return logSurfaceOperation(ctx, "resource", resource, operation, fields)
}

// LogDataSourceOperation provides standardized entry/exit logging for Terraform data source operations.
func LogDataSourceOperation(ctx context.Context, dataSource, operation string, fields map[string]any) func(error) {
	return logSurfaceOperation(ctx, "data_source", dataSource, operation, fields)
}

func logSurfaceOperation(ctx context.Context, kind, name, operation string, fields map[string]any) func(error) {
	start := time.Now()

	if fields == nil {
		fields = make(map[string]any)
	}

	entryFields := make(map[string]any)
	maps.Copy(entryFields, fields)
	entryFields[kind] = name
	entryFields["operation"] = operation

	label := strings.ReplaceAll(kind, "_", " ")
	tflog.SubsystemDebug(ctx, SubsystemProvider, "Starting "+label+" operation", entryFields)

	return func(err error) {
		exitFields := make(map[string]any)
		maps.Copy(exitFields, fields)
		exitFields[kind] = name
		exitFields["operation"] = operation
		exitFields["duration_ms"] = time.Since(start).Milliseconds()
		exitFields["has_error"] = err != nil

		if err != nil {
			exitFields["error"] = err.Error()
			tflog.SubsystemError(ctx, SubsystemProvider, "Operation failed", exitFields)
		} else {
			tflog.SubsystemDebug(ctx, SubsystemProvider, "Operation completed", exitFields)
		}
	}
}
