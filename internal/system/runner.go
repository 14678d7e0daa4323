// Package system provides the privileged command execution primitive used
// by the routing and tunnel controllers.
package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pgj1978/PI-VPN-Router/internal/logging"
)

// Runner executes OS commands. A non-zero exit is not an error condition:
// it is reported as ok=false with the process's stderr as output. Callers
// decide whether a failed command is fatal for them.
type Runner interface {
	Run(privileged bool, args ...string) (ok bool, output string)
}

// CommandError records a required command that failed, for paths where a
// non-zero exit must be surfaced to the caller.
type CommandError struct {
	Args   []string
	Output string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", strings.Join(e.Args, " "), strings.TrimSpace(e.Output))
}

// ExecRunner runs commands through os/exec, prefixing privileged commands
// with sudo when not already running as root.
type ExecRunner struct {
	// Sudo prefixes privileged commands with sudo. Leave false when the
	// daemon itself runs as root.
	Sudo bool
	// Timeout bounds each command; zero means DefaultTimeout.
	Timeout time.Duration

	logger *logging.Logger
}

// DefaultTimeout bounds a single command invocation.
const DefaultTimeout = 30 * time.Second

// NewExecRunner creates a runner for live use.
func NewExecRunner(sudo bool, logger *logging.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.Default()
	}
	return &ExecRunner{
		Sudo:    sudo,
		Timeout: DefaultTimeout,
		logger:  logger.WithComponent("exec"),
	}
}

// Run executes a command and captures its output. Stdout is returned on
// success, stderr on failure.
func (r *ExecRunner) Run(privileged bool, args ...string) (bool, string) {
	if len(args) == 0 {
		return false, "empty command"
	}

	if privileged && r.Sudo {
		args = append([]string{"sudo", "-n"}, args...)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		out := stderr.String()
		if out == "" {
			out = err.Error()
		}
		r.logger.Debug("command failed", "args", strings.Join(args, " "), "error", strings.TrimSpace(out))
		return false, out
	}

	return true, stdout.String()
}
