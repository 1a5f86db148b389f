package terminator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"connbreaker/internal/log"
)

// Tool argument placeholders. {name} lets the tool match every process
// with the target's executable name instead of one PID.
const (
	PIDPlaceholder  = "{pid}"
	NamePlaceholder = "{name}"
)

// DefaultArgs closes every TCP/UDP connection of the process with CurrPorts:
// cports.exe /close <local addr> <local port> <remote addr> <remote port> <process>
var DefaultArgs = []string{"/close", "*", "*", "*", "*", PIDPlaceholder}

var (
	// ErrToolInvocation wraps every failure of the external closing utility.
	ErrToolInvocation = errors.New("external tool invocation failed")

	ErrToolNotFound     = fmt.Errorf("%w: tool not found", ErrToolInvocation)
	ErrToolExit         = fmt.Errorf("%w: non-zero exit", ErrToolInvocation)
	ErrUnparsableOutput = fmt.Errorf("%w: unparsable output", ErrToolInvocation)
)

// Report is what a Tool learned from one invocation.
type Report struct {
	Closed  int
	Counted bool // false when the tool does not report how many it closed
	Output  string
}

// Target identifies the process whose connections are closed.
type Target struct {
	PID  int
	Name string
}

// Tool closes the network connections owned by a process.
type Tool interface {
	CloseConnections(ctx context.Context, target Target) (Report, error)
}

// runFunc executes name with args and returns combined output and exit code.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, int, error)

// CommandTool runs an external command-line utility.
type CommandTool struct {
	Path         string
	Args         []string       // PIDPlaceholder is substituted
	CountPattern *regexp.Regexp // first capture group is the closed count
	Timeout      time.Duration

	run runFunc
}

// NewCommandTool builds a tool for path. Nil args means DefaultArgs; an empty
// pattern disables count parsing.
func NewCommandTool(path string, args []string, countPattern string, timeout time.Duration) (*CommandTool, error) {
	if len(args) == 0 {
		args = DefaultArgs
	}
	t := &CommandTool{
		Path:    path,
		Args:    append([]string(nil), args...),
		Timeout: timeout,
		run:     runCommand,
	}
	if countPattern != "" {
		re, err := regexp.Compile(countPattern)
		if err != nil {
			return nil, fmt.Errorf("compiling count pattern: %w", err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("count pattern %q needs a capture group", countPattern)
		}
		t.CountPattern = re
	}
	return t, nil
}

// CloseConnections invokes the tool once for target and waits for it to exit.
func (t *CommandTool) CloseConnections(ctx context.Context, target Target) (Report, error) {
	if err := t.checkPath(); err != nil {
		return Report{}, err
	}
	if target.Name == "" && usesPlaceholder(t.Args, NamePlaceholder) {
		return Report{}, fmt.Errorf("%w: %s needs a process name, pid %d has none", ErrToolInvocation, NamePlaceholder, target.PID)
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	args := expandArgs(t.Args, target)
	log.Debug(log.CatTerm, "invoking tool", "path", t.Path, "args", strings.Join(args, " "))

	out, code, err := t.run(ctx, t.Path, args...)
	output := strings.TrimSpace(string(out))
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return Report{Output: output}, fmt.Errorf("%w: %s", ErrToolNotFound, t.Path)
		}
		return Report{Output: output}, fmt.Errorf("%w: running %s: %w", ErrToolInvocation, t.Path, err)
	}
	if code != 0 {
		return Report{Output: output}, fmt.Errorf("%w: %s exited with code %d%s", ErrToolExit, t.Path, code, snippet(output))
	}

	if t.CountPattern == nil {
		return Report{Output: output}, nil
	}

	m := t.CountPattern.FindStringSubmatch(output)
	if m == nil {
		return Report{Output: output}, fmt.Errorf("%w: no match for %q%s", ErrUnparsableOutput, t.CountPattern, snippet(output))
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return Report{Output: output}, fmt.Errorf("%w: bad count %q", ErrUnparsableOutput, m[1])
	}
	return Report{Closed: n, Counted: true, Output: output}, nil
}

func (t *CommandTool) checkPath() error {
	if t.Path == "" {
		return fmt.Errorf("%w: no tool path configured", ErrToolNotFound)
	}
	// Bare names are resolved through PATH by exec.
	if !strings.ContainsAny(t.Path, `/\`) {
		if _, err := exec.LookPath(t.Path); err != nil {
			return fmt.Errorf("%w: %s", ErrToolNotFound, t.Path)
		}
		return nil
	}
	info, err := os.Stat(t.Path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrToolNotFound, t.Path)
	}
	return nil
}

func expandArgs(tmpl []string, target Target) []string {
	r := strings.NewReplacer(PIDPlaceholder, strconv.Itoa(target.PID), NamePlaceholder, target.Name)
	args := make([]string, len(tmpl))
	for i, a := range tmpl {
		args[i] = r.Replace(a)
	}
	return args
}

func usesPlaceholder(args []string, placeholder string) bool {
	for _, a := range args {
		if strings.Contains(a, placeholder) {
			return true
		}
	}
	return false
}

func snippet(output string) string {
	const limit = 200
	if output == "" {
		return ""
	}
	if len(output) > limit {
		output = output[:limit] + "…"
	}
	return ": " + output
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return buf.Bytes(), -1, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return buf.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return buf.Bytes(), -1, err
	}
	return buf.Bytes(), 0, nil
}
