package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
)

func TestWithLogger_StoresLoggerInContext(t *testing.T) {
	l := NewLogger(&bytes.Buffer{})
	ctx := WithLogger(context.Background(), l)

	got := FromContext(ctx)
	if got != l {
		t.Error("expected FromContext to return the logger stored by WithLogger")
	}
}

func TestFromContext_ReturnsDefaultWhenMissing(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("expected FromContext to return a non-nil default logger")
	}
	if got.GetLevel() != log.WarnLevel {
		t.Errorf("expected default logger at WarnLevel, got %v", got.GetLevel())
	}
}

func TestConfigure_Levels(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  log.Level
	}{
		{"default", Flags{}, log.WarnLevel},
		{"verbose", Flags{Verbose: true}, log.DebugLevel},
		{"quiet", Flags{Quiet: true}, log.ErrorLevel},
		{"quiet wins over verbose", Flags{Quiet: true, Verbose: true}, log.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLogger(&bytes.Buffer{})
			Configure(l, tt.flags)
			if got := l.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewTestContext_CapturesOutput(t *testing.T) {
	ctx, buf := NewTestContext(Flags{Verbose: true})
	FromContext(ctx).Debug("probe")
	if buf.Len() == 0 {
		t.Error("expected debug output in the buffer")
	}
}
