// Package `execx` provides utility functions that supplement the stdlib
// package `os/exec`.
//
// `LookTool()` locates external command line tools, like `rsync`, and checks
// their version output before they are used to move service data.
// `Tool.CommandContext()` runs a located tool with an English locale, so that
// its diagnostics can be matched reliably.
package execx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// `ToolSpec` is used to tell `LookTool()` how to look for an external tool.
type ToolSpec struct {
	Program   string
	CheckArgs []string
	CheckText string
}

type Tool struct {
	Path string
}

func LookTool(s ToolSpec) (*Tool, error) {
	path, err := exec.LookPath(s.Program)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to find path of `%s`: %v", s.Program, err,
		)
	}

	o, err := exec.Command(path, s.CheckArgs...).Output()
	if err != nil {
		return nil, fmt.Errorf(
			"failed to execute `%s %s`: %v", path,
			strings.Join(s.CheckArgs, ", "), err,
		)
	}
	if !strings.Contains(string(o), s.CheckText) {
		return nil, fmt.Errorf(
			"`%s %s` did not print `%s`.", s.Program,
			strings.Join(s.CheckArgs, ", "), s.CheckText,
		)
	}

	return &Tool{path}, nil
}

// `MustLookTool()` is like `LookTool()` but panics if the tool cannot be
// found.
func MustLookTool(s ToolSpec) *Tool {
	t, err := LookTool(s)
	if err != nil {
		msg := fmt.Sprintf("%v", err)
		panic(msg)
	}
	return t
}

// `CommandContext()` returns a command for the tool.  The environment forces
// `C.UTF-8`, which most distros ship as a fallback locale, so that messages
// are English.
func (t *Tool) CommandContext(
	ctx context.Context, args ...string,
) *exec.Cmd {
	cmd := exec.CommandContext(ctx, t.Path, args...)
	cmd.Env = append(os.Environ(),
		"LC_ALL=C.UTF-8",
		"LANG=C.UTF-8",
		"LANGUAGE=C.UTF-8",
	)
	return cmd
}

// `ExitCode()` returns the exit code of a failed command, or -1 if `err` is
// not an exit error.
func ExitCode(err error) int {
	if errExit, ok := err.(*exec.ExitError); ok {
		return errExit.ExitCode()
	}
	return -1
}
