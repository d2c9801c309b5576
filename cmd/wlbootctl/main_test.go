package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/wlboot/internal/protocol"
	"github.com/danmuck/wlboot/internal/protocol/session"
	"github.com/danmuck/wlboot/internal/testutil/testlog"
	"github.com/danmuck/wlboot/internal/transport"
)

// fakeCompositor accepts one client, advertises globals and drains what the
// client writes.
func fakeCompositor(t *testing.T, globals ...session.Global) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wayland-test")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	var stream []byte
	for _, g := range globals {
		raw, err := protocol.NewRequest(2, 0).Uint32(g.Name).String(g.Interface).Uint32(g.Version).Encode()
		if err != nil {
			t.Fatalf("encode global: %v", err)
		}
		stream = append(stream, raw...)
	}

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = c.Write(stream)
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 256)
		for {
			if _, err := c.Read(buf); err != nil {
				return
			}
		}
	}()
	return path
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wlboot.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func noEnv(string) string { return "" }

func TestRunPrintsBindings(t *testing.T) {
	testlog.Start(t)
	sock := fakeCompositor(t,
		session.Global{Name: 5, Interface: "wl_compositor", Version: 4},
		session.Global{Name: 6, Interface: "wl_shm", Version: 1},
		session.Global{Name: 7, Interface: "wl_seat", Version: 7},
	)
	cfgPath := writeConfig(t, "interests = [\"wl_compositor\", \"wl_seat\"]\n")

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-config", cfgPath, "-socket", sock}, &out, noEnv); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, want := out.String(), "wl_compositor=3\nwl_seat=4\n"; got != want {
		t.Fatalf("output=%q want %q", got, want)
	}
}

func TestRunJSONAppliesVersionCaps(t *testing.T) {
	testlog.Start(t)
	sock := fakeCompositor(t, session.Global{Name: 7, Interface: "wl_seat", Version: 9})
	cfgPath := writeConfig(t, "interests = [\"wl_seat\"]\n[versions]\nwl_seat = 5\n")

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-config", cfgPath, "-socket", sock, "-json"}, &out, noEnv); err != nil {
		t.Fatalf("run: %v", err)
	}
	var bindings []session.Binding
	if err := json.Unmarshal(out.Bytes(), &bindings); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if len(bindings) != 1 || bindings[0].Version != 5 || bindings[0].ID != 3 {
		t.Fatalf("bindings=%+v", bindings)
	}
}

func TestRunMissingEnvironment(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	if err := run(context.Background(), nil, &out, noEnv); err == nil {
		t.Fatalf("expected error without a socket")
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	testlog.Start(t)
	cfgPath := writeConfig(t, "interests = []\n")
	if err := run(context.Background(), []string{"-config", cfgPath}, &bytes.Buffer{}, noEnv); err == nil {
		t.Fatalf("expected config error")
	}
}

// hangupCompositor accepts one client and closes straight away.
func hangupCompositor(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wayland-hangup")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		_ = c.Close()
	}()
	return path
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestRunMonitorKeepsStatusAfterFailedDiscovery(t *testing.T) {
	testlog.Start(t)
	sock := hangupCompositor(t)
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-socket", sock, "-status-addr", addr}, &bytes.Buffer{}, noEnv)
	}()

	var body map[string]any
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/ready")
		if err == nil {
			code := resp.StatusCode
			body = nil
			_ = json.NewDecoder(resp.Body).Decode(&body)
			_ = resp.Body.Close()
			if code == http.StatusServiceUnavailable && body["state"] == "failed" {
				break
			}
		}
		select {
		case err := <-done:
			t.Fatalf("run returned before cancel: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never reported failure, last body=%v", body)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if body["error"] == nil {
		t.Fatalf("ready body missing error: %v", body)
	}

	cancel()
	select {
	case err := <-done:
		// The hangup races the handshake write.
		if !errors.Is(err, transport.ErrEOF) && !errors.Is(err, transport.ErrPeerClosed) {
			t.Fatalf("run err=%v want ErrEOF or ErrPeerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}
