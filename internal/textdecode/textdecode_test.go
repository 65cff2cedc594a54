package textdecode

import (
	"os"
	"path/filepath"
	"testing"

	"cdctape/internal/cdcrecord"
	"cdctape/internal/dcode"
	"cdctape/internal/outfile"
	"cdctape/internal/simh"
)

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

func TestExtractShortLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tape.tap")
	// "ABC" then trailing zeros: oc = 3, a short line, ends with '\n'.
	writeRecord(t, path, [][]byte{{1, 2, 3, 0, 0, 0, 0, 0, 0, 0}})

	cd := openRecord(t, path)
	m := dcode.New(false)
	out := outfile.New(dir, false)
	if err := Extract(cd, "FOO", m, false, out); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "FOO.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "ABC\n" {
		t.Fatalf("data = %q, want %q", data, "ABC\n")
	}
}
