package gateway

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ExecLauncher starts the gateway as a detached child process.
type ExecLauncher struct {
	Path string
	Args []string
	Env  []string
}

// Start spawns the gateway process. The child is reaped in the background;
// connection health is observed through the transport, not the process
// handle.
func (l *ExecLauncher) Start(ctx context.Context) error {
	if l.Path == "" {
		return fmt.Errorf("gateway command is not configured")
	}
	cmd := exec.CommandContext(ctx, l.Path, l.Args...)
	cmd.Env = append(os.Environ(), l.Env...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start gateway process: %w", err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
