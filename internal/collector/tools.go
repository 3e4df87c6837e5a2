package collector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Runner invokes an external diagnostic tool and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs tools as local processes. Privileged tools are run
// through sudo unless the process already has root privileges.
type ExecRunner struct {
	Timeout time.Duration
	UseSudo bool
}

// NewExecRunner returns an ExecRunner that elevates through sudo only when
// the current process is not privileged.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Timeout: 30 * time.Second,
		UseSudo: !isPrivileged(),
	}
}

// Run executes name with args. Standard error is discarded.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w", name, err)
	}
	return stdout.String(), nil
}

// privileged runs name through sudo when the runner is configured to.
func (r *ExecRunner) privileged(ctx context.Context, name string, args ...string) (string, error) {
	if r.UseSudo {
		return r.Run(ctx, "sudo", append([]string{name}, args...)...)
	}
	return r.Run(ctx, name, args...)
}

// privilegedRun elevates through ExecRunner when possible; other runners
// are called directly.
func privilegedRun(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	if er, ok := r.(*ExecRunner); ok {
		return er.privileged(ctx, name, args...)
	}
	return r.Run(ctx, name, args...)
}
