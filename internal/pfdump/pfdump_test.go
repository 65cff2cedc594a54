package pfdump

import (
	"os"
	"path/filepath"
	"testing"

	"cdctape/internal/cdcrecord"
	"cdctape/internal/simh"
)

func TestUIToUNKnown(t *testing.T) {
	if got := UIToUN(0377701); got != "SYSLIB" {
		t.Fatalf("UIToUN(SYSLIB ui) = %q, want SYSLIB", got)
	}
}

func TestUIToUNUnknown(t *testing.T) {
	if got := UIToUN(012345); got != "12345" {
		t.Fatalf("UIToUN(unknown) = %q, want octal literal", got)
	}
}

func TestUNToUI(t *testing.T) {
	ui, ok := UNToUI("syslib")
	if !ok || ui != 0377701 {
		t.Fatalf("UNToUI(syslib) = %d, %v, want 0377701/true", ui, ok)
	}
	if _, ok := UNToUI("nope"); ok {
		t.Fatalf("expected no match for unknown un")
	}
}

func writeControlRecord(t *testing.T, path string, words [][]byte) {
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

func ctrlWord(btype, flag, length int) []byte {
	w := make([]byte, 10)
	w[7] = byte(btype & 07)
	w[8] = byte(((flag & 07) << 3) | ((length >> 6) & 07))
	w[9] = byte(length & 077)
	return w
}

func TestExtractPFDumpOneEntry(t *testing.T) {
	dir := t.TempDir()

	nameUI := make([]byte, 10)
	nameUI[7], nameUI[8], nameUI[9] = 037, 077, 077 // ui = 0377777 (SYSTEMX)

	mdateWord := make([]byte, 10)
	mdateWord[4] = 54 // 2024
	mdateWord[5] = 3  // March
	mdateWord[6] = 15
	mdateWord[7], mdateWord[8], mdateWord[9] = 10, 30, 0

	words := [][]byte{
		ctrlWord(1, 0, 4), // catalog entry, length 4
		nameUI,
		make([]byte, 10), // word 2 (skipped)
		make([]byte, 10), // word 3 (skipped)
		mdateWord,
		ctrlWord(3, 1, 1), // data, flag=EOR, 1 word
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		ctrlWord(7, 0, 0), // end
	}
	path := filepath.Join(dir, "outer.tap")
	writeControlRecord(t, path, words)
	cd := openRecord(t, path)

	if err := ExtractPFDump(cd, "MYFILE", dir); err != nil {
		t.Fatalf("ExtractPFDump: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "SYSTEMX", "MYFILE")); err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}
}

func TestExtractPFDumpNoCatalogEntry(t *testing.T) {
	dir := t.TempDir()
	words := [][]byte{ctrlWord(7, 0, 0)}
	path := filepath.Join(dir, "outer.tap")
	writeControlRecord(t, path, words)
	cd := openRecord(t, path)

	if err := ExtractPFDump(cd, "NOCAT", dir); err == nil {
		t.Fatalf("expected error for record with no catalog entry")
	}
}
