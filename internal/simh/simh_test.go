package simh

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.tap")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	blocks := [][]byte{
		[]byte("even"),
		[]byte("odd"),
		{},
	}
	for i, b := range blocks {
		if i == 2 {
			if err := w.WriteMark(); err != nil {
				t.Fatalf("WriteMark: %v", err)
			}
			continue
		}
		if err := w.WriteBlock(b); err != nil {
			t.Fatalf("WriteBlock(%d): %v", i, err)
		}
	}
	if w.BlockNum() != 2 {
		t.Fatalf("BlockNum = %d, want 2", w.BlockNum())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	r := NewReader(f)

	got, err := r.ReadBlock()
	if err != nil || !bytes.Equal(got, blocks[0]) {
		t.Fatalf("block 0 = %q, %v", got, err)
	}
	got, err = r.ReadBlock()
	if err != nil || !bytes.Equal(got, blocks[1]) {
		t.Fatalf("block 1 = %q, %v", got, err)
	}
	_, err = r.ReadBlock()
	if err != ErrTapeMark {
		t.Fatalf("expected ErrTapeMark, got %v", err)
	}
	_, err = r.ReadBlock()
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadBlockCorruptSuffix(t *testing.T) {
	// length prefix 4, body "abcd", mismatched suffix 5.
	data := []byte{4, 0, 0, 0, 'a', 'b', 'c', 'd', 5, 0, 0, 0}
	r := NewReader(bytes.NewReader(data))
	_, err := r.ReadBlock()
	if err != ErrCorruptBlock {
		t.Fatalf("expected ErrCorruptBlock, got %v", err)
	}
}

func TestReadBlockErrorMark(t *testing.T) {
	// length prefix with high bit set (error mark), length 2, body "hi".
	data := []byte{2, 0, 0, 0x80, 'h', 'i', 2, 0, 0, 0x80}
	r := NewReader(bytes.NewReader(data))
	got, err := r.ReadBlock()
	if err != ErrErrorMark {
		t.Fatalf("expected ErrErrorMark, got %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("data = %q, want hi", got)
	}
}
