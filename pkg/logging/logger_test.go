package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
	if cfg.Output == nil {
		t.Error("Expected default output to be set")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"WARNING", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   LogLevel
		visible []string
		hidden  []string
	}{
		{LevelDebug, []string{"debug line", "info line", "warn line"}, nil},
		{LevelInfo, []string{"info line", "warn line"}, []string{"debug line"}},
		{LevelWarn, []string{"warn line", "error line"}, []string{"debug line", "info line"}},
		{LevelError, []string{"error line"}, []string{"info line", "warn line"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			Setup(Config{Level: tt.level, Output: buf})

			logger := NewLogger("test")
			logger.Debug().Msg("debug line")
			logger.Info().Msg("info line")
			logger.Warn().Msg("warn line")
			logger.Error().Msg("error line")

			out := buf.String()
			for _, want := range tt.visible {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q at level %s, got %q", want, tt.level, out)
				}
			}
			for _, unwanted := range tt.hidden {
				if strings.Contains(out, unwanted) {
					t.Errorf("%q should be filtered at level %s", unwanted, tt.level)
				}
			}
		})
	}
}

func TestSetup_ServiceAndComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{
		Level:   LevelInfo,
		Service: "storefront-gateway",
		Output:  buf,
	})

	logger := NewLogger("gateway")
	logger.Info().Msg("started")

	out := buf.String()
	if !strings.Contains(out, `"service":"storefront-gateway"`) {
		t.Errorf("Expected service field, got %q", out)
	}
	if !strings.Contains(out, `"component":"gateway"`) {
		t.Errorf("Expected component field, got %q", out)
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{
		Level:  LevelInfo,
		Pretty: true,
		Output: buf,
	})

	logger := NewLogger("feed")
	logger.Info().Msg("page appended")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("Pretty output should not be JSON, got %q", out)
	}
	if !strings.Contains(out, "page appended") {
		t.Errorf("Expected message in output, got %q", out)
	}
}

func TestRequestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})
	base := NewLogger("gateway")

	t.Run("fallback_without_logger", func(t *testing.T) {
		buf.Reset()
		Ctx(context.Background(), base).Info().Msg("no request")

		if !strings.Contains(buf.String(), `"component":"gateway"`) {
			t.Errorf("Expected fallback logger output, got %q", buf.String())
		}
	})

	t.Run("request_id_attached", func(t *testing.T) {
		buf.Reset()
		ctx := WithRequestID(context.Background(), base, "req-42")
		Ctx(ctx, zerolog.Nop()).Info().Msg("handled")

		out := buf.String()
		if !strings.Contains(out, `"request_id":"req-42"`) {
			t.Errorf("Expected request_id field, got %q", out)
		}
		if !strings.Contains(out, `"component":"gateway"`) {
			t.Errorf("Expected component field carried over, got %q", out)
		}
	})
}
