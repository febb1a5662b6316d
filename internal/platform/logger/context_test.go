package logger

import (
	"context"
	"regexp"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext()

	if ctx.Value(KeyLogger) == nil {
		t.Errorf("Want not nil, got nil")
	}

	requestID, ok := ctx.Value(KeyRequestID).(string)
	if !ok {
		t.Fatalf("Expected request ID value to be set")
	}

	if len(requestID) != 36 {
		t.Errorf("Got %v, want %v", len(requestID), 36)
	}
}

func TestContextWithRequestID(t *testing.T) {
	ctx := context.Background()

	gotNotSet := RequestIDFromContext(ctx)

	pattern := "unknown/[[:ascii:]]{36}"
	match, _ := regexp.MatchString(pattern, gotNotSet)

	if !match {
		t.Errorf("%v did not match %v", gotNotSet, pattern)
	}

	want := "foo"
	ctx = ContextWithRequestID(ctx, want)

	if ctx.Value(KeyLogger) == nil {
		t.Errorf("Want not nil, got nil")
	}

	got := RequestIDFromContext(ctx)
	if got != want {
		t.Errorf("Got %v, want %v", got, want)
	}
}

func TestContextWithLogger(t *testing.T) {
	ctx := context.Background()

	logger, _ := zap.NewProduction()
	ctx = ContextWithLogger(ctx, logger)

	if ctx.Value(KeyLogger) != logger {
		t.Errorf("Want %v, got %v", logger, ctx.Value(KeyLogger))
	}
}

func TestNewLoggerFromContext_nilLogger(t *testing.T) {
	logger := NewLoggerFromContext(context.Background())

	if logger == nil {
		t.Errorf("Want non-nil Logger")
	}
}

func TestContextWithPoll(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))

	ctx = ContextWithPoll(ctx, "cities")

	if got := PollFromContext(ctx); got != "cities" {
		t.Errorf("Got %v, want %v", got, "cities")
	}

	Info(ctx, "Vote accepted : %d", 1)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Got %d entries, want 1", len(entries))
	}

	if entries[0].Message != "Vote accepted : 1" {
		t.Errorf("Got message %q", entries[0].Message)
	}

	if entries[0].ContextMap()[fieldPoll] != "cities" {
		t.Errorf("Got fields %v, want poll field", entries[0].ContextMap())
	}
}

func TestLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))

	Verbose(ctx, "hidden")
	Info(ctx, "info")
	Warn(ctx, "warn")
	Error(ctx, "error")

	if got := logs.Len(); got != 3 {
		t.Errorf("Got %d entries, want 3", got)
	}
}

func TestNewContextWithNamedLogger(t *testing.T) {
	ctx := NewContextWithNamedLogger("foo")

	requestID := RequestIDFromContext(ctx)

	if len(requestID) == 0 {
		t.Errorf("Expected non-zero length requestID")
	}

	if NewLoggerFromContext(ctx) == nil {
		t.Errorf("Want non-nil Logger")
	}
}
