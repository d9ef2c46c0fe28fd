package utils

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestLogEventFormatsModuleAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	LogEvent("req-1", "dispatch", "assign", "trip 5 assigned")
	line := buf.String()
	if !strings.Contains(line, "[DISPATCH]") {
		t.Fatalf("module tag should be uppercased, got %q", line)
	}
	if !strings.Contains(line, "request_id=req-1") {
		t.Fatalf("request id missing from %q", line)
	}
}

func TestLogEventBlankRequestIDPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	LogEvent("  ", "lifecycle", "start", "trip 5 departed")
	if !strings.Contains(buf.String(), "request_id=-") {
		t.Fatalf("blank request id should log as -, got %q", buf.String())
	}
}
