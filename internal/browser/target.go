package browser

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/go-rod/rod/lib/launcher"
)

// ErrUnknownTarget is returned for browser names outside the supported set.
var ErrUnknownTarget = errors.New("unknown browser target")

// Supported targets are the CDP-drivable vendors. Each maps to the binary
// names probed on PATH, most specific first.
var binaries = map[string][]string{
	"chrome":   {"google-chrome", "google-chrome-stable", "chrome"},
	"chromium": {"chromium", "chromium-browser"},
	"edge":     {"microsoft-edge", "microsoft-edge-stable", "msedge"},
}

// KnownTarget reports whether name is a supported browser target.
func KnownTarget(name string) bool {
	_, ok := binaries[name]
	return ok
}

// Targets lists the supported target names.
func Targets() []string {
	return []string{"chrome", "chromium", "edge"}
}

func findBinary(target string) (string, error) {
	names, ok := binaries[target]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	// Fall back to whatever browser the launcher can locate on this host.
	if path, has := launcher.LookPath(); has {
		return path, nil
	}
	return "", fmt.Errorf("no %s binary found", target)
}
