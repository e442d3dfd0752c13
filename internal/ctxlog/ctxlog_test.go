package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got != slog.Default() {
		t.Error("FromContext() without a logger did not return slog.Default()")
	}

	var buf bytes.Buffer
	logger := New(&buf, true)
	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext() did not return the stored logger")
	}
}

func TestNewLevels(t *testing.T) {
	var quiet, verbose bytes.Buffer
	New(&quiet, false).Debug("hidden")
	New(&verbose, true).Debug("shown", "key", "value")

	if quiet.Len() != 0 {
		t.Errorf("quiet logger wrote %q", quiet.String())
	}
	if !strings.Contains(verbose.String(), "key=value") {
		t.Errorf("verbose logger output = %q, want key=value", verbose.String())
	}
}
