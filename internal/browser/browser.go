// Package browser opens URLs in the system's default web browser and decides
// when a launch should be skipped in favor of printing the URL instead.
package browser

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// linuxBrowsers are the launchers probed on Linux, in preference order.
var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// OpenURL opens the URL in the default browser. The open-golang library is
// tried first; when it fails, the platform launch command is used directly.
//
// Returns:
//   - An error if no launch mechanism worked, otherwise nil.
func OpenURL(url string) error {
	fmt.Printf("Opening URL in browser: %s\n", url)

	err := open.Run(url)
	if err == nil {
		log.Debug("opened URL via open-golang")
		return nil
	}
	log.Debugf("open-golang failed: %v, falling back to platform command", err)

	cmd, err := platformCommand(url)
	if err != nil {
		return err
	}
	log.Debugf("launching %s", cmd.Path)
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	return nil
}

// platformCommand builds the OS-specific command that opens url.
func platformCommand(url string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case "linux":
		for _, name := range linuxBrowsers {
			if _, err := exec.LookPath(name); err == nil {
				return exec.Command(name, url), nil
			}
		}
		return nil, fmt.Errorf("no suitable browser found on Linux system")
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// IsAvailable reports whether a browser launch command exists on this
// platform. The probe is LookPath-only; nothing is opened.
func IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin":
		_, err := exec.LookPath("open")
		return err == nil
	case "windows":
		_, err := exec.LookPath("rundll32")
		return err == nil
	case "linux":
		for _, name := range linuxBrowsers {
			if _, err := exec.LookPath(name); err == nil {
				return true
			}
		}
	}
	return false
}

// ShouldSuppress reports whether launching a browser should be skipped for
// the current environment. Headless and automated environments get the
// authentication URL printed instead of a surprise browser window.
//
// Returns:
//   - true when the environment indicates a browser launch is unwanted or
//     would fail, false otherwise.
func ShouldSuppress() bool {
	if os.Getenv("NO_BROWSER") != "" {
		return true
	}
	if os.Getenv("CI") != "" {
		return true
	}
	if os.Getenv("DEBIAN_FRONTEND") == "noninteractive" {
		return true
	}
	// SSH sessions have no local display to open a browser on.
	if os.Getenv("SSH_CONNECTION") != "" {
		return true
	}
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" && os.Getenv("MIR_SOCKET") == "" {
			return true
		}
	}
	return false
}
