// Package runner executes the external parser, rewriter and generator
// processes and streams their output.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stream identifies which output stream a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Command describes a process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// FromArgv builds a Command from a configured argv plus extra arguments.
func FromArgv(argv []string, extra ...string) (Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return Command{}, errors.New("empty command")
	}
	args := append(append([]string(nil), argv[1:]...), extra...)
	return Command{Name: argv[0], Args: args}, nil
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// ExitError is returned when the process did not complete successfully.
type ExitError struct {
	Command  string
	ExitCode int
	TimedOut bool
	Err      error
}

func (e *ExitError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s timed out", e.Command)
	case e.ExitCode >= 0:
		return fmt.Sprintf("%s failed (exit %d)", e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
}

func (e *ExitError) Unwrap() error { return e.Err }

// waitDelay bounds how long Wait keeps copying output after the process
// exits or is killed, so an orphaned grandchild holding the pipes open cannot
// stall a timed-out run.
const waitDelay = 2 * time.Second

// LineFunc receives every output line as it arrives.
type LineFunc func(stream Stream, line string)

// Run starts the process, forwards each stdout/stderr line to onLine and
// returns the captured stdout. A non-zero exit, a failure to start and a
// context deadline or cancellation all return an *ExitError.
func Run(ctx context.Context, c Command, onLine LineFunc) (string, error) {
	if onLine == nil {
		onLine = func(Stream, string) {}
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return "", &ExitError{Command: c.String(), ExitCode: -1, Err: err}
	}

	var (
		mu       sync.Mutex
		captured bytes.Buffer
	)
	emit := func(stream Stream, line string) {
		mu.Lock()
		defer mu.Unlock()
		if stream == Stdout {
			captured.WriteString(line)
			captured.WriteByte('\n')
		}
		onLine(stream, line)
	}

	var g errgroup.Group
	g.Go(func() error { return pump(stdoutR, Stdout, emit) })
	g.Go(func() error { return pump(stderrR, Stderr, emit) })

	waitErr := cmd.Wait()
	stdoutW.Close()
	stderrW.Close()
	pumpErr := g.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return captured.String(), &ExitError{
			Command:  c.String(),
			ExitCode: -1,
			TimedOut: errors.Is(ctxErr, context.DeadlineExceeded),
			Err:      ctxErr,
		}
	}
	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return captured.String(), &ExitError{Command: c.String(), ExitCode: code, Err: waitErr}
	}
	if pumpErr != nil {
		return captured.String(), &ExitError{Command: c.String(), ExitCode: -1, Err: pumpErr}
	}
	return captured.String(), nil
}

func pump(r io.Reader, stream Stream, emit func(Stream, string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		emit(stream, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
