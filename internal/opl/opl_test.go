package opl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cdctape/internal/cdcrecord"
	"cdctape/internal/outfile"
	"cdctape/internal/simh"
)

// writeRecord writes words (each a 10-byte display-code word) as one
// logical record terminated by a short block, through a fresh simh tape.
func writeRecord(t *testing.T, path string, words [][]byte) {
	t.Helper()
	w, err := simh.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	cw := cdcrecord.NewWriter(w)
	for _, word := range words {
		if err := cw.PutWord(word); err != nil {
			t.Fatalf("PutWord: %v", err)
		}
	}
	if err := cw.WriteEOR(); err != nil {
		t.Fatalf("WriteEOR: %v", err)
	}
	if err := w.WriteMark(); err != nil {
		t.Fatalf("WriteMark: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func openRecord(t *testing.T, path string) *cdcrecord.Reader {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	tr := simh.NewReader(f)
	block, err := tr.ReadBlock()
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	return cdcrecord.NewReader(tr, block)
}

func TestReadHistoryNoHistory(t *testing.T) {
	cp := make([]byte, 10)
	cd := &cdcrecord.Reader{}
	if got := ReadHistory(cd, cp, 4, 0); got != -1 {
		t.Fatalf("ReadHistory = %d, want -1", got)
	}
}

func TestReadHistoryOneEntry(t *testing.T) {
	cp := make([]byte, 10)
	// Entry at idx=4: hist = 0200005 (activated, modnum=5).
	hist := 0200005
	cp[4] = byte(hist >> 12)
	cp[5] = byte((hist >> 6) & 077)
	cp[6] = byte(hist & 077)
	cd := &cdcrecord.Reader{}
	if got := ReadHistory(cd, cp, 4, 0); got != 5 {
		t.Fatalf("ReadHistory = %d, want 5", got)
	}
}

func TestExtractOPLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tape.tap")

	hdrWord := make([]byte, 10)
	hdrWord[0] = 077
	hdrWord[1] = 0
	hdrWord[2] = 0
	hdrWord[3] = 1 // length = 1: only the deck-name word; no date fields, no charset table

	nameWord := make([]byte, 10) // 7700 table word 1 (deck name; ExtractOPL takes the name from its caller)

	modWord := make([]byte, 10)
	modWord[0] = 070
	modWord[1] = 1
	modWord[8] = 0
	modWord[9] = 0 // nmods = 1 (the deck itself)

	lineWord := make([]byte, 10)
	lineWord[0] = 040 | 1 // active, wc=1
	lineWord[1], lineWord[2], lineWord[3] = 0, 0, 1
	// one history entry, 0200000: activated by mod 0 (the deck itself);
	// the compressed text word follows
	lineWord[4] = 020

	textWord := []byte{1, 2, 3, 0, 0, 0, 0, 0, 0, 0} // "ABC" then 00 00 terminates line

	writeRecord(t, path, [][]byte{hdrWord, nameWord, modWord, lineWord, textWord})

	cd := openRecord(t, path)
	out := outfile.New(dir, false)
	if err := ExtractOPL(cd, "TESTDECK", out, true); err != nil {
		t.Fatalf("ExtractOPL: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "TESTDECK.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Contains(data, []byte("TESTDECK")) {
		t.Fatalf("output %q missing mod name", data)
	}
	if !strings.Contains(string(data), "ABC") {
		t.Fatalf("output %q missing decompressed text", data)
	}
}

func TestExpandTextSimpleLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tape.tap")
	textWord := []byte{1, 2, 3, 0, 0, 0, 0, 0, 0, 0}
	writeRecord(t, path, [][]byte{textWord})
	cd := openRecord(t, path)

	line, rem := ExpandText(cd, 1, 0)
	if rem != 0 {
		t.Fatalf("remaining = %d, want 0", rem)
	}
	if line != "ABC" {
		t.Fatalf("line = %q, want ABC", line)
	}
}

func TestExtractUPLInvalidHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tape.tap")
	bad := make([]byte, 10)
	writeRecord(t, path, [][]byte{bad})
	cd := openRecord(t, path)
	out := outfile.New(dir, false)

	if err := ExtractUPL(cd, "X", time.Time{}, out, false); err == nil {
		t.Fatalf("expected error for invalid OLDPL header")
	}
}

