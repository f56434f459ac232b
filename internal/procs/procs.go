// Package procs provides handles on session processes for the monitor: a
// child started by packguard, or an already running process found by pid.
package procs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Process is what the monitor needs from a session.
type Process interface {
	// Exited reports, without blocking, whether the process has ended.
	Exited() bool
	// Kill forcibly terminates the process. Killing an ended process is a
	// no-op.
	Kill() error
}

// waitDelay bounds how long Wait keeps copying output after the process has
// ended, for grandchildren that inherited its stdout.
const waitDelay = 2 * time.Second

// Cmd is a child process started by Start and reaped in the background.
type Cmd struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu   sync.Mutex
	err  error
	code int
}

// Start launches name with args in dir. Stdout and stderr both go to output;
// a nil output discards them. The process is killed if ctx is cancelled.
func Start(ctx context.Context, name string, args []string, dir string, output io.Writer) (*Cmd, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.WaitDelay = waitDelay
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	c := &Cmd{cmd: cmd, done: make(chan struct{}), code: -1}
	go c.reap()
	return c, nil
}

func (c *Cmd) reap() {
	err := c.cmd.Wait()
	c.mu.Lock()
	c.err = err
	if c.cmd.ProcessState != nil {
		c.code = c.cmd.ProcessState.ExitCode()
	}
	c.mu.Unlock()
	close(c.done)
}

// Pid returns the operating system process id.
func (c *Cmd) Pid() int { return c.cmd.Process.Pid }

// Done is closed once the process has been reaped.
func (c *Cmd) Done() <-chan struct{} { return c.done }

func (c *Cmd) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Cmd) Kill() error {
	if c.Exited() {
		return nil
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", c.Pid(), err)
	}
	return nil
}

// Wait blocks until the process ends and returns its exit error, if any.
func (c *Cmd) Wait() error {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ExitCode returns the exit status, or -1 while running or when the process
// was killed by a signal.
func (c *Cmd) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// Attached is a process packguard did not start.
type Attached struct {
	p *process.Process
}

// Attach looks up a running process by pid.
func Attach(pid int) (*Attached, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("attach: invalid pid %d", pid)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("attach pid %d: %w", pid, err)
	}
	return &Attached{p: p}, nil
}

// Pid returns the attached process id.
func (a *Attached) Pid() int { return int(a.p.Pid) }

// Name returns the executable name, or "" when it cannot be read.
func (a *Attached) Name() string {
	name, err := a.p.Name()
	if err != nil {
		return ""
	}
	return name
}

// Exited treats a process whose state cannot be read as ended.
func (a *Attached) Exited() bool {
	running, err := a.p.IsRunning()
	return err != nil || !running
}

func (a *Attached) Kill() error {
	if a.Exited() {
		return nil
	}
	if err := a.p.Kill(); err != nil {
		return fmt.Errorf("kill pid %d: %w", a.p.Pid, err)
	}
	return nil
}
