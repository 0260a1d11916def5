// CLAUDE:SUMMARY Starts and stops an Xvfb virtual display for headful recording on servers.
package browser

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// xvfbReadyTimeout bounds the wait for the display socket.
const xvfbReadyTimeout = 3 * time.Second

// display is a virtual X server a headful Chrome draws into on machines
// without a screen.
type display struct {
	name   string
	cmd    *exec.Cmd
	logger *slog.Logger
}

// startDisplay runs Xvfb on name (":99") and waits for its socket.
func startDisplay(name string, logger *slog.Logger) (*display, error) {
	cmd := exec.Command("Xvfb", name, "-screen", "0", "1920x1080x24", "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start xvfb: %w", err)
	}
	d := &display{name: name, cmd: cmd, logger: logger}

	if !waitSocket(displaySocket(name), xvfbReadyTimeout) {
		// Some builds put the socket elsewhere; Chrome retries the
		// connection, so a missing socket is only worth a warning.
		logger.Warn("browser: xvfb socket not seen", "display", name, "timeout", xvfbReadyTimeout)
	}
	logger.Info("browser: xvfb started", "display", name, "pid", cmd.Process.Pid)
	return d, nil
}

// env is the environment entry pointing Chrome at the display.
func (d *display) env() string { return "DISPLAY=" + d.name }

func (d *display) stop() {
	if d == nil || d.cmd.Process == nil {
		return
	}
	d.cmd.Process.Kill()
	d.cmd.Wait()
	d.logger.Info("browser: xvfb stopped", "display", d.name)
}

// displaySocket maps ":99" (or ":99.0") to /tmp/.X11-unix/X99.
func displaySocket(name string) string {
	n := strings.TrimPrefix(name, ":")
	if i := strings.IndexByte(n, '.'); i >= 0 {
		n = n[:i]
	}
	return filepath.Join(os.TempDir(), ".X11-unix", "X"+n)
}

func waitSocket(path string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}
