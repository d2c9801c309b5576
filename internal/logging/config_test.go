package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) got=%v ok=%v want=%v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("unknown level accepted")
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("empty level accepted")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogTimestamp, "nope")
	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel {
		t.Fatalf("level got=%v", cfg.Level)
	}
	if !cfg.NoColor {
		t.Fatalf("nocolor override ignored")
	}
	if !cfg.Timestamp {
		t.Fatalf("invalid timestamp override should keep the default")
	}
}

func TestInstallBypassWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	install(Config{Level: zerolog.DebugLevel, Bypass: true, Out: &buf})
	t.Cleanup(func() { install(defaultConfig(ProfileTest)) })

	log.Info().Str("iface", "wl_seat").Msg("bound")
	if !strings.Contains(buf.String(), `"iface":"wl_seat"`) {
		t.Fatalf("expected json output, got %q", buf.String())
	}
}
