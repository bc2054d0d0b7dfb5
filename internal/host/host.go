// Package host wraps the local NSS and SSSD utilities used alongside FreeIPA:
// getent for name/id lookups and sss_cache for cache invalidation.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

const subsystem = "host"

// ErrNoEntry is returned when getent finds no matching database entry.
var ErrNoEntry = errors.New("no such entry")

// Result holds the outcome of a command. Output is trimmed of surrounding whitespace.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands. ExecRunner is the production implementation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	return RunCommand(ctx, name, args...)
}

// RunCommand runs name with args and captures its output. A non-zero exit status
// is reported through Result.ExitCode, not as an error; the error is reserved for
// commands that could not be started.
func RunCommand(ctx context.Context, name string, args ...string) (*Result, error) {
	start := time.Now()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	fields := map[string]any{
		"command":     name,
		"args":        args,
		"exit_code":   result.ExitCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fields["error"] = err.Error()
		tflog.SubsystemError(ctx, subsystem, "Command could not be run", fields)
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}

	tflog.SubsystemDebug(ctx, subsystem, "Command completed", fields)
	return result, nil
}

// Config holds the paths of the host utilities.
type Config struct {
	GetentPath   string `default:"getent"`
	SudoPath     string `default:"sudo"`
	SSSCachePath string `default:"/sbin/sss_cache"`
	NoSudo       bool   // Run sss_cache directly instead of through sudo
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() *Config {
	config := &Config{}
	_ = defaults.Set(config)
	return config
}

// Resolver performs NSS lookups and SSSD cache maintenance on the local host.
type Resolver struct {
	config *Config
	runner Runner
}

// NewResolver creates a resolver. A nil config uses the defaults; a nil runner uses ExecRunner.
func NewResolver(config *Config, runner Runner) *Resolver {
	if config == nil {
		config = DefaultConfig()
	} else {
		_ = defaults.Set(config)
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Resolver{config: config, runner: runner}
}

// GroupNameByGID returns the name of the group with the given gid.
func (r *Resolver) GroupNameByGID(ctx context.Context, gid int) (string, error) {
	fields, err := r.getent(ctx, "group", strconv.Itoa(gid))
	if err != nil {
		return "", err
	}
	return fields[0], nil
}

// UserNameByUID returns the login name of the user with the given uid.
func (r *Resolver) UserNameByUID(ctx context.Context, uid int) (string, error) {
	fields, err := r.getent(ctx, "passwd", strconv.Itoa(uid))
	if err != nil {
		return "", err
	}
	return fields[0], nil
}

// GIDByGroupName returns the gid of the named group.
func (r *Resolver) GIDByGroupName(ctx context.Context, name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("group name cannot be empty")
	}

	fields, err := r.getent(ctx, "group", name)
	if err != nil {
		return 0, err
	}
	if len(fields) < 3 {
		return 0, fmt.Errorf("malformed group entry for %s", name)
	}

	gid, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, fmt.Errorf("malformed gid %q for group %s: %w", fields[2], name, err)
	}
	return gid, nil
}

// ClearSSSDCache invalidates every entry in the SSSD cache.
func (r *Resolver) ClearSSSDCache(ctx context.Context) error {
	name, args := r.config.SudoPath, []string{r.config.SSSCachePath, "-E"}
	if r.config.NoSudo {
		name, args = r.config.SSSCachePath, []string{"-E"}
	}

	result, err := r.runner.Run(ctx, name, args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		tflog.SubsystemWarn(ctx, subsystem, "SSSD cache invalidation failed", map[string]any{
			"exit_code": result.ExitCode,
			"stderr":    result.Stderr,
		})
		return fmt.Errorf("sss_cache exited with status %d: %s", result.ExitCode, result.Stderr)
	}

	tflog.SubsystemDebug(ctx, subsystem, "SSSD cache invalidated")
	return nil
}

// getent looks up key in database and returns the colon-separated fields of the
// first line. A non-zero exit status yields ErrNoEntry.
func (r *Resolver) getent(ctx context.Context, database, key string) ([]string, error) {
	result, err := r.runner.Run(ctx, r.config.GetentPath, database, key)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("getent %s %s: %w", database, key, ErrNoEntry)
	}

	line, _, _ := strings.Cut(result.Stdout, "\n")
	return strings.Split(line, ":"), nil
}
