package tapelog

import (
	"bytes"
	"strings"
	"testing"
)

func TestHandlerFlattensAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	logger.Info("reading record", "kind", "OPL", "seq", 3)

	out := buf.String()
	if !strings.Contains(out, "reading record") {
		t.Fatalf("output %q missing message", out)
	}
	if !strings.Contains(out, "kind=OPL") {
		t.Fatalf("output %q missing flattened kind attr", out)
	}
	if !strings.Contains(out, "seq=3") {
		t.Fatalf("output %q missing flattened seq attr", out)
	}
}

func TestDebugLevelEnablesDebugRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true)
	logger.Debug("skipping words", "n", 5)

	if !strings.Contains(buf.String(), "skipping words") {
		t.Fatalf("debug record suppressed despite debug=true")
	}
}

func TestNonDebugSuppressesDebugRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	logger.Debug("skipping words", "n", 5)

	if buf.Len() != 0 {
		t.Fatalf("expected no output at Info level for a Debug record, got %q", buf.String())
	}
}
