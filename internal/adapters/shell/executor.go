// Package shell provides a shell-based executor for running work items.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/creack/pty"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/term"
)

// Executor implements ports.Executor by handing command lines to the platform shell.
type Executor struct {
	logger ports.Logger
	shell  []string
	tty    bool
	size   func() (rows, cols int, err error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithTTY runs commands attached to a pseudo-terminal so that tools which
// detect a terminal keep their interactive formatting.
func WithTTY(enabled bool) Option {
	return func(e *Executor) { e.tty = enabled }
}

// WithShell overrides the shell invocation. The command line is appended as the last argument.
func WithShell(argv ...string) Option {
	return func(e *Executor) { e.shell = argv }
}

// SetTTY switches pseudo-terminal execution on or off. It must not be
// called while commands are running.
func (e *Executor) SetTTY(enabled bool) {
	e.tty = enabled
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger: logger,
		shell:  defaultShell(),
		size:   terminalSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// Run executes command in dir and waits for it to complete. Combined stdout
// and stderr are written to out and mirrored line by line to the debug log.
func (e *Executor) Run(ctx context.Context, dir, command string, out io.Writer) (int, error) {
	args := append(append([]string{}, e.shell[1:]...), command)
	cmd := exec.CommandContext(ctx, e.shell[0], args...) //nolint:gosec // user provided command
	cmd.Dir = dir
	cmd.Env = os.Environ()

	debugLog := &logWriter{logger: e.logger}
	defer func() { _ = debugLog.Close() }()
	w := io.MultiWriter(out, debugLog)

	var wait func() error
	if e.tty {
		proc, err := e.startTTY(cmd, w)
		if err != nil {
			return -1, startError(dir, command, err)
		}
		wait = proc.Wait
	} else {
		cmd.Stdout = w
		cmd.Stderr = w
		if err := cmd.Start(); err != nil {
			return -1, startError(dir, command, err)
		}
		wait = cmd.Wait
	}

	err := wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code, nil
		}
		// Terminated by a signal.
		return 1, nil
	}
	return -1, zerr.With(zerr.Wrap(err, "command failed"), "dir", dir)
}

func startError(dir, command string, cause error) error {
	err := zerr.Wrap(domain.ErrCommandStartFailed, cause.Error())
	return zerr.With(zerr.With(err, "dir", dir), "command", command)
}

func (e *Executor) startTTY(cmd *exec.Cmd, w io.Writer) (*ptyProcess, error) {
	var ws *pty.Winsize
	if rows, cols, err := e.size(); err == nil {
		ws, _ = winsize(rows, cols)
	}

	ptmx, err := pty.StartWithSize(cmd, ws)
	if err != nil {
		return nil, err
	}

	proc := &ptyProcess{cmd: cmd, ptmx: ptmx, ioDone: make(chan struct{})}
	go proc.copy(w)
	return proc, nil
}

type ptyProcess struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	ioDone chan struct{}
}

func (p *ptyProcess) copy(w io.Writer) {
	defer close(p.ioDone)
	// Reading the master side fails with EIO once the child exits; that is the end of output.
	_, _ = io.Copy(w, p.ptmx)
}

// Wait waits for the command to exit and for its output to drain.
func (p *ptyProcess) Wait() error {
	err := p.cmd.Wait()
	<-p.ioDone
	_ = p.ptmx.Close()
	return err
}

func terminalSize() (int, int, error) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	return rows, cols, err
}

func winsize(rows, cols int) (*pty.Winsize, error) {
	if rows > math.MaxUint16 || cols > math.MaxUint16 || rows <= 0 || cols <= 0 {
		return nil, errors.New("terminal size out of bounds")
	}
	return &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}, nil
}

// logWriter forwards complete lines to the debug log.
type logWriter struct {
	logger ports.Logger
	buf    []byte
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	// PTYs may introduce \r.
	w.logger.Debug(strings.TrimSuffix(string(line), "\r"))
}
