// Package hook runs user-supplied shell commands around the local stage.
package hook

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Run executes command via /bin/sh -c from /. Combined output is logged at
// debug level, or at error level with the failure. An empty command is a no-op.
func Run(ctx context.Context, name, command string, log *slog.Logger) error {
	if strings.TrimSpace(command) == "" {
		return nil
	}
	log.Info("running hook", "hook", name, "command", command)

	c := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	c.Dir = "/"
	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out
	err := c.Run()
	output := strings.TrimSpace(out.String())
	if err != nil {
		log.Error("hook failed", "hook", name, "error", err, "output", output)
		return fmt.Errorf("%s hook %q failed: %w", name, command, err)
	}
	if output != "" {
		log.Debug("hook output", "hook", name, "output", output)
	}
	return nil
}
