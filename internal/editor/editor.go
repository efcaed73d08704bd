package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Editor is the external edit step: it blocks until the user is done with
// the file at path. Implementations are injected so the engine never knows
// how editing happens.
type Editor interface {
	Edit(ctx context.Context, path string) error
}

// ExecEditor runs the user's configured editor as a blocking subprocess with
// the terminal attached. Command defaults to $VISUAL, then $EDITOR, then vi.
type ExecEditor struct {
	Command string
}

func (e *ExecEditor) Edit(ctx context.Context, path string) error {
	command := e.Command
	if command == "" {
		command = os.Getenv("VISUAL")
	}
	if command == "" {
		command = os.Getenv("EDITOR")
	}
	if command == "" {
		command = "vi"
	}

	// The command may carry arguments ("code --wait"); split on whitespace.
	parts := strings.Fields(command)
	cmd := exec.CommandContext(ctx, parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q: %w", parts[0], err)
	}
	return nil
}

// Func adapts a plain function into an Editor, mainly for tests.
type Func func(ctx context.Context, path string) error

func (f Func) Edit(ctx context.Context, path string) error { return f(ctx, path) }
