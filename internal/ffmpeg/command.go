package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// stderrTailSize is how many recent stderr lines are kept for error reports.
const stderrTailSize = 40

// CommandBuilder builds FFmpeg command lines with a fluent API. An encode
// may carry several outputs, each with its own args and target.
type CommandBuilder struct {
	binary     string
	globalArgs []string
	inputArgs  []string
	input      string
	outputs    []commandOutput
	logLevel   string
}

type commandOutput struct {
	args   []string
	target string
}

// NewCommandBuilder creates a new FFmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		binary:   ffmpegPath,
		logLevel: "error",
	}
}

// LogLevel sets the FFmpeg log level.
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	b.logLevel = level
	return b
}

// GlobalArgs adds arbitrary global arguments.
func (b *CommandBuilder) GlobalArgs(args ...string) *CommandBuilder {
	b.globalArgs = append(b.globalArgs, args...)
	return b
}

// InputArgs adds arguments that apply to the input (decoder selection,
// hwaccel flags).
func (b *CommandBuilder) InputArgs(args ...string) *CommandBuilder {
	b.inputArgs = append(b.inputArgs, args...)
	return b
}

// Input sets the input file.
func (b *CommandBuilder) Input(input string) *CommandBuilder {
	b.input = input
	return b
}

// Output appends one output with its arguments and target path.
func (b *CommandBuilder) Output(target string, args ...string) *CommandBuilder {
	b.outputs = append(b.outputs, commandOutput{args: args, target: target})
	return b
}

// Args assembles the final argument list.
func (b *CommandBuilder) Args() []string {
	args := []string{"-hide_banner", "-loglevel", b.logLevel, "-stats", "-y"}
	args = append(args, b.globalArgs...)
	args = append(args, b.inputArgs...)
	args = append(args, "-i", b.input)
	for _, out := range b.outputs {
		args = append(args, out.args...)
		args = append(args, out.target)
	}
	return args
}

// Binary returns the ffmpeg binary path.
func (b *CommandBuilder) Binary() string {
	return b.binary
}

// String renders the full command line for logging.
func (b *CommandBuilder) String() string {
	return b.binary + " " + strings.Join(b.Args(), " ")
}

// Process is a running FFmpeg child. Stderr is consumed line by line; status
// lines feed the progress callback and the last lines are retained for error
// reporting.
type Process struct {
	cmd *exec.Cmd

	mu   sync.Mutex
	tail []string

	waitOnce sync.Once
	waitErr  error
	done     chan struct{}
}

// StartProcess launches ffmpeg with the given arguments. When lowPriority is
// set the child runs under nice (and ionice where present) so transcoding
// does not starve playback. onProgress may be nil.
func StartProcess(ctx context.Context, binary string, args []string, lowPriority bool, onProgress func(Progress)) (*Process, error) {
	name := binary
	argv := args

	if lowPriority {
		if nicePath, err := exec.LookPath("nice"); err == nil {
			wrapped := []string{"-n", "19"}
			if ionicePath, err := exec.LookPath("ionice"); err == nil {
				wrapped = append(wrapped, ionicePath, "-c", "3")
			}
			wrapped = append(wrapped, binary)
			wrapped = append(wrapped, args...)
			name = nicePath
			argv = wrapped
		}
	}

	cmd := exec.CommandContext(ctx, name, argv...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	p := &Process{
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		// ffmpeg emits status updates with \r; split on both.
		scanner.Split(scanCRLines)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			p.appendTail(line)
			if onProgress != nil {
				if prog, ok := ParseProgressLine(line); ok {
					onProgress(prog)
				}
			}
		}
		close(p.done)
	}()

	return p, nil
}

// scanCRLines is a bufio.SplitFunc splitting on \r or \n.
func scanCRLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (p *Process) appendTail(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tail = append(p.tail, line)
	if len(p.tail) > stderrTailSize {
		p.tail = p.tail[len(p.tail)-stderrTailSize:]
	}
}

// StderrTail returns the retained stderr lines joined with newlines.
func (p *Process) StderrTail() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.tail, "\n")
}

// PID returns the child process id.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Wait blocks until the child exits and returns its exit error. Signal
// deaths are reported by signal name and the stderr tail is attached so the
// caller can classify the failure.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		<-p.done
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
					switch ws.Signal() {
					case syscall.SIGTERM:
						err = fmt.Errorf("ffmpeg terminated by SIGTERM")
					case syscall.SIGKILL:
						err = fmt.Errorf("ffmpeg killed by SIGKILL")
					}
				}
			}
			tail := p.StderrTail()
			if tail != "" {
				err = fmt.Errorf("%w: %s", err, lastLines(tail, 3))
			}
		}
		p.waitErr = err
	})
	return p.waitErr
}

// Terminate sends SIGTERM for a graceful shutdown.
func (p *Process) Terminate() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	}
}

// Kill forcibly stops the child.
func (p *Process) Kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
