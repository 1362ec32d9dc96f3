package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestGetSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"Error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := getSlogLevel(in); got != want {
			t.Fatalf("getSlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCloudRunHandlerWritesSeverityAndData(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newCloudRunHandler(slog.LevelInfo, &buf)).With("request_id", "req-1")

	log.Warn("payment failed", "error", errors.New("boom"), "transaction_id", "tx-1")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if event["severity"] != "WARNING" {
		t.Fatalf("severity = %v, want WARNING", event["severity"])
	}
	if event["message"] != "payment failed" {
		t.Fatalf("message = %v", event["message"])
	}
	data, ok := event["data"].(map[string]any)
	if !ok {
		t.Fatalf("data missing: %v", event)
	}
	if data["error"] != "boom" {
		t.Fatalf("error attr = %v, want boom", data["error"])
	}
	if data["request_id"] != "req-1" || data["transaction_id"] != "tx-1" {
		t.Fatalf("attrs not propagated: %v", data)
	}
}

func TestCloudRunHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newCloudRunHandler(slog.LevelWarn, &buf))

	log.Info("ignored")
	if buf.Len() != 0 {
		t.Fatalf("info record written below warn level: %q", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	base := New("debug", NewTestHandler)
	ctx := ToContext(context.Background(), base)

	if FromContext(ctx) != base {
		t.Fatalf("FromContext did not return stored logger")
	}
	if !IsDebugEnabled(ctx) {
		t.Fatalf("expected debug to be enabled")
	}
	if FromContext(context.Background()) == nil {
		t.Fatalf("FromContext must never return nil")
	}

	_, ctx = With(ctx, "uid", "u-1")
	if FromContext(ctx) == base {
		t.Fatalf("With should store a derived logger")
	}
}
