package rectype

import (
	"testing"

	"cdctape/internal/dcode"
)

func TestIdentifyEmptyAndEOF(t *testing.T) {
	m := dcode.New(false)
	if got := Identify(m, nil, false).Kind; got != Empty {
		t.Fatalf("Identify(nil) = %v, want EMPTY", got)
	}
	if got := Identify(m, []byte{1, 2, 3}, true).Kind; got != EOF {
		t.Fatalf("Identify(eof) = %v, want EOF", got)
	}
}

func TestIdentifyProc(t *testing.T) {
	m := dcode.New(false)
	buf := make([]byte, 30)
	copy(buf, []byte{057, 020, 022, 017, 003, 056})
	// name field: "ABCDEFG" in display code right after the prefix.
	copy(buf[6:], []byte{1, 2, 3, 4, 5, 6, 7})
	r := Identify(m, buf, false)
	if r.Kind != Proc {
		t.Fatalf("Kind = %v, want PROC", r.Kind)
	}
	if r.Name != "ABCDEFG" {
		t.Fatalf("Name = %q, want ABCDEFG", r.Name)
	}
}

func TestIdentifySequentialUPL(t *testing.T) {
	m := dcode.New(false)
	buf := make([]byte, 10)
	copy(buf, []byte{003, 010, 005, 003, 013, 0, 036})
	r := Identify(m, buf, false)
	if r.Kind != UPL {
		t.Fatalf("Kind = %v, want UPL", r.Kind)
	}
	if r.Extra != "3" {
		t.Fatalf("Extra = %q, want 3", r.Extra)
	}
}

func TestIdentifyFixedHeaderREL(t *testing.T) {
	m := dcode.New(false)
	buf := make([]byte, 20)
	// hdr = 03400: bytes 0,1 encode (b0<<6)|b1 == 03400 octal = 1792 decimal.
	hdr := 03400
	buf[0] = byte(hdr >> 6)
	buf[1] = byte(hdr & 077)
	r := Identify(m, buf, false)
	if r.Kind != REL {
		t.Fatalf("Kind = %v, want REL", r.Kind)
	}
}

func TestIdentifyTextFallback(t *testing.T) {
	m := dcode.New(false)
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	r := Identify(m, buf, false)
	if r.Kind != Text {
		t.Fatalf("Kind = %v, want TEXT", r.Kind)
	}
}
