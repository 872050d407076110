package fsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Process errors - 程序錯誤
var (
	// ErrInvalidPipeMode indicates a Popen mode other than "r" or "w"
	ErrInvalidPipeMode = errors.New("pipe mode must be \"r\" or \"w\"")

	// ErrPipeDirection indicates a read on a write pipe or the reverse
	ErrPipeDirection = errors.New("pipe not open in this direction")

	// ErrInvalidCommand indicates a command line that does not parse
	ErrInvalidCommand = errors.New("invalid command")
)

// Getwd returns the process working directory
func Getwd() (string, error) {
	return native.Getwd()
}

// Chdir changes the process working directory
func Chdir(path string) error {
	return native.Chdir(path)
}

// parseCommand parses a POSIX shell command line. Commands run through
// the same interpreter on every platform.
func parseCommand(command string) (*syntax.File, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return prog, nil
}

// run executes prog in the current working directory and converts the
// shell exit status
func run(ctx context.Context, prog *syntax.File, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	wd, err := Getwd()
	if err != nil {
		return -1, err
	}
	runner, err := interp.New(
		interp.Dir(wd),
		interp.StdIO(stdin, stdout, stderr),
	)
	if err != nil {
		return -1, fmt.Errorf("create interpreter: %w", err)
	}

	err = runner.Run(ctx, prog)
	if err == nil {
		return 0, nil
	}
	var status interp.ExitStatus
	if errors.As(err, &status) {
		return int(status), nil
	}
	return -1, err
}

// Execute runs command with the process's standard streams and returns
// its exit status. A non-zero status is not an error.
func Execute(ctx context.Context, command string) (int, error) {
	prog, err := parseCommand(command)
	if err != nil {
		return -1, err
	}
	return run(ctx, prog, os.Stdin, os.Stdout, os.Stderr)
}

// Pipe is one end of a running command. In "r" mode reads return the
// command's standard output; in "w" mode writes feed its standard input.
type Pipe struct {
	r *io.PipeReader
	w *io.PipeWriter

	done   chan struct{}
	status int
	err    error
}

// Popen starts command with its output ("r") or input ("w") connected to
// the returned pipe. Standard error goes to the process's own.
func Popen(ctx context.Context, command, mode string) (*Pipe, error) {
	if mode != "r" && mode != "w" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPipeMode, mode)
	}
	prog, err := parseCommand(command)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	p := &Pipe{done: make(chan struct{})}

	var stdin io.Reader
	var stdout io.Writer = os.Stdout
	if mode == "r" {
		p.r, stdout = pr, pw
	} else {
		p.w, stdin = pw, pr
	}

	go func() {
		defer close(p.done)
		p.status, p.err = run(ctx, prog, stdin, stdout, os.Stderr)
		if mode == "r" {
			pw.Close()
		} else {
			// unblock writers once the command stops reading
			pr.Close()
		}
	}()
	return p, nil
}

// Read reads the command's output
func (p *Pipe) Read(b []byte) (int, error) {
	if p.r == nil {
		return 0, ErrPipeDirection
	}
	return p.r.Read(b)
}

// Write sends b to the command's input
func (p *Pipe) Write(b []byte) (int, error) {
	if p.w == nil {
		return 0, ErrPipeDirection
	}
	return p.w.Write(b)
}

// Wait closes the caller's end and returns the command's exit status
// once it finishes. Unread output is discarded.
func (p *Pipe) Wait() (int, error) {
	if p.w != nil {
		p.w.Close()
	}
	if p.r != nil {
		p.r.Close()
	}
	<-p.done
	return p.status, p.err
}

// Close waits for the command and reports a non-zero exit as an error
func (p *Pipe) Close() error {
	status, err := p.Wait()
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("command exited with status %d", status)
	}
	return nil
}

var _ io.ReadWriteCloser = (*Pipe)(nil)
