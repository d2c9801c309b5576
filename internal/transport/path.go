package transport

import (
	"path/filepath"
	"strings"
)

const (
	EnvRuntimeDir = "XDG_RUNTIME_DIR"
	EnvDisplay    = "WAYLAND_DISPLAY"
)

// SocketPath resolves $XDG_RUNTIME_DIR/$WAYLAND_DISPLAY. An absolute
// WAYLAND_DISPLAY is used as is. getenv is usually os.Getenv.
func SocketPath(getenv func(string) string) (string, error) {
	display := strings.TrimSpace(getenv(EnvDisplay))
	if display == "" {
		return "", ErrMissingDisplay
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	runtimeDir := strings.TrimSpace(getenv(EnvRuntimeDir))
	if runtimeDir == "" {
		return "", ErrMissingRuntimeDir
	}
	return filepath.Join(runtimeDir, display), nil
}
