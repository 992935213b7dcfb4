package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsAppearInOutput(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithOrderID(context.Background(), "ord-123")
	ctx = logg.WithJob(ctx, "fulfillment")
	logg.Info(ctx, "batch started")

	line := buf.String()
	if !strings.Contains(line, `"order_id":"ord-123"`) {
		t.Fatalf("missing order_id field: %s", line)
	}
	if !strings.Contains(line, `"job":"fulfillment"`) {
		t.Fatalf("missing job field: %s", line)
	}
	if !strings.Contains(line, `"service":"test"`) {
		t.Fatalf("missing service field: %s", line)
	}
}

func TestNilContextUsesBase(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Info(nil, "no context")
	if !strings.Contains(buf.String(), "no context") {
		t.Fatalf("expected base logger output, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("expected debug level")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("expected info fallback")
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("expected info fallback for unknown level")
	}
}
