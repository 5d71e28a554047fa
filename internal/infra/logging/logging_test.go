//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"svmedia/internal/config"
)

func TestWithAttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithUserID(WithTraceID(context.Background(), "trace-1"), "user-9")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["trace_id"] != "trace-1" || line["user_id"] != "user-9" || line["message"] != "hello" {
		t.Errorf("unexpected log line %v", line)
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("TraceID returned %q", TraceID(ctx))
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %s", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("warn must be written")
	}

	buf.Reset()
	l = newWithWriter(config.LogConfig{Level: "bogus"}, false, &buf)
	l.Debug().Msg("dropped")
	l.Info().Msg("kept")
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Errorf("unknown level must fall back to info, got %s", buf.String())
	}
}

func TestRedact(t *testing.T) {
	cases := []struct {
		in   string
		dev  bool
		want string
	}{
		{"aB3dE6gH", false, "***"},
		{"aB3dE6gH9k", false, "aB3d...9k"},
		{"aB3dE6gH9k", true, "aB3dE6gH9k"},
	}
	for _, tc := range cases {
		if got := Redact(tc.in, tc.dev); got != tc.want {
			t.Errorf("Redact(%q, %v) = %q, want %q", tc.in, tc.dev, got, tc.want)
		}
	}
}
