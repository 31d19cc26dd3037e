// Package browser opens URLs for the OAuth login flow.
package browser

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupported is returned when no way to open a browser is known.
var ErrUnsupported = errors.New("no browser available on this platform")

// Open opens the specified URL in the default browser.
// $BROWSER, when set, takes precedence over the platform opener.
func Open(url string) error {
	name, args, err := command(runtime.GOOS, os.Getenv("BROWSER"), url)
	if err != nil {
		return err
	}

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the opener; the browser outlives it
	go func() { _ = cmd.Wait() }()
	return nil
}

// command returns the program and arguments that open url on goos.
func command(goos, browserEnv, url string) (string, []string, error) {
	if fields := strings.Fields(browserEnv); len(fields) > 0 {
		return fields[0], append(fields[1:], url), nil
	}

	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, ErrUnsupported
	}
}
