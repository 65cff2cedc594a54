package cdcrecord

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"cdctape/internal/simh"
	"cdctape/internal/sixbit"
)

func wordChars(fill byte) []byte {
	w := make([]byte, wordLen)
	for i := range w {
		w[i] = fill
	}
	return w
}

func TestWriteThenReadOneShortRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.tap")

	tw, err := simh.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	rw := NewWriter(tw)
	words := [][]byte{wordChars(1), wordChars(2), wordChars(3)}
	for _, w := range words {
		if err := rw.PutWord(w); err != nil {
			t.Fatalf("PutWord: %v", err)
		}
	}
	if err := rw.WriteEOR(); err != nil {
		t.Fatalf("WriteEOR: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tw.Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	tr := simh.NewReader(f)
	block, err := tr.ReadBlock()
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}

	rr := NewReader(tr, block)
	for i, want := range words {
		got, ok := rr.GetWord()
		if !ok {
			t.Fatalf("word %d: GetWord returned !ok, err=%v", i, rr.Err())
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("word %d = %v, want %v", i, got, want)
		}
	}
	if _, ok := rr.GetWord(); ok {
		t.Fatalf("expected EOR after 3 words")
	}
}

func TestUnpackedBlockChars(t *testing.T) {
	block := sixbit.Pack(wordChars(5))
	chars := sixbit.Unpack(block)
	if len(chars) < wordLen {
		t.Fatalf("unpacked %d chars, want at least %d", len(chars), wordLen)
	}
}
