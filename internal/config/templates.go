package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "discover", "":
		return discoverTemplate, nil
	case "monitor":
		return monitorTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const discoverTemplate = `# socket_path = "/run/user/1000/wayland-0"
interests = ["wl_compositor", "wl_seat", "wl_shm", "xdg_wm_base"]
dmabuf = false
read_buffer_size = 4096
max_buffered = 1048576
roundtrip = false
connect_attempts = 1
connect_backoff = "250ms"
`

const monitorTemplate = `interests = ["wl_compositor", "wl_seat", "wl_shm", "xdg_wm_base"]
dmabuf = false
roundtrip = true
connect_attempts = 5
connect_backoff = "250ms"
status_addr = "127.0.0.1:9480"
# status_token = "change-me"
cors_origins = ["http://localhost:3000"]
log_level = "info"

[versions]
wl_seat = 7
`
