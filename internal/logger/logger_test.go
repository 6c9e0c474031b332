package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, c := range cases {
		SetLevel(c.in)
		if got := zerolog.GlobalLevel(); got != c.want {
			t.Errorf("SetLevel(%q): level %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSetOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("info")

	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	zl := Zerolog()
	zl.Warn().Str("pin", "clk").Msg("via zerolog")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "via zerolog") {
		t.Errorf("missing log lines: %q", out)
	}
}
