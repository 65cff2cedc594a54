// Package simh implements the SIMH magnetic-tape container format: each
// block is framed by a 32-bit little-endian length prefix and suffix, with
// a length of zero marking a tape mark and the high bit of the length
// signalling an error mark. It is the only tape container format this tool
// supports (other simulator formats, such as the historical AWS/E11/P7B
// variants, are out of scope).
package simh

import (
	"bufio"
	"encoding/binary"
	stderrors "errors"
	"io"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrTapeMark is returned by Reader.ReadBlock when a zero-length
	// record (a tape mark) is encountered. The caller decides whether two
	// consecutive marks end the volume.
	ErrTapeMark = stderrors.New("simh: tape mark")

	// ErrErrorMark is returned alongside a block's data when the high bit
	// of its length prefix is set. The block's data is still valid and
	// usable; this only flags that the original medium reported a parity
	// or read error at this position.
	ErrErrorMark = stderrors.New("simh: error mark")

	// ErrCorruptBlock is returned when the length suffix does not match
	// the prefix. A frame truncated mid-block is reported as a wrapped
	// I/O error instead.
	ErrCorruptBlock = stderrors.New("simh: corrupt block framing")
)

const lengthMask = 0x7fffffff
const errorBit = 0x80000000

// Reader reads blocks from a SIMH tape image.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps an already-open file (or any io.Reader) as a SIMH tape.
func NewReader(f io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(f, 64*1024)}
}

// ReadBlock returns the next block's payload. On a tape mark it returns
// (nil, ErrTapeMark). On end of file it returns (nil, io.EOF). On an error
// mark it returns the block's data along with ErrErrorMark, which the
// caller may treat as non-fatal and continue. Any other error is fatal and
// should abort the current operation.
func (r *Reader) ReadBlock() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "simh: reading length prefix")
	}
	raw := binary.LittleEndian.Uint32(hdr[:])
	if raw == 0xffffffff {
		return nil, io.EOF
	}
	length := raw & lengthMask
	errMark := raw&errorBit != 0

	if length == 0 {
		return nil, ErrTapeMark
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, errors.Wrap(err, "simh: truncated block body")
	}
	if length%2 == 1 {
		if _, err := r.r.Discard(1); err != nil {
			return nil, errors.Wrap(err, "simh: reading pad byte")
		}
	}
	var tail [4]byte
	if _, err := io.ReadFull(r.r, tail[:]); err != nil {
		return nil, errors.Wrap(err, "simh: reading length suffix")
	}
	if binary.LittleEndian.Uint32(tail[:])&lengthMask != length {
		return nil, ErrCorruptBlock
	}

	if errMark {
		return data, ErrErrorMark
	}
	return data, nil
}

// Writer writes blocks to a SIMH tape image. It also counts the blocks it
// has written (BlockNum); simh itself never inspects or depends on that
// counter, and internal/cdcrecord keeps its own block number for the CDC
// trailer.
type Writer struct {
	w        *bufio.Writer
	f        *os.File
	blockNum int
}

// NewWriter creates (or truncates) path and returns a Writer over it.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "simh: creating %s", path)
	}
	return &Writer{w: bufio.NewWriterSize(f, 64*1024), f: f}, nil
}

// WriteBlock frames data as one SIMH block and advances the block number.
func (w *Writer) WriteBlock(data []byte) error {
	length := uint32(len(data))
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], length)
	if _, err := w.w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "simh: writing length prefix")
	}
	if _, err := w.w.Write(data); err != nil {
		return errors.Wrap(err, "simh: writing block body")
	}
	if length%2 == 1 {
		if err := w.w.WriteByte(0); err != nil {
			return errors.Wrap(err, "simh: writing pad byte")
		}
	}
	if _, err := w.w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "simh: writing length suffix")
	}
	w.blockNum++
	return nil
}

// WriteMark writes a tape mark (zero-length record).
func (w *Writer) WriteMark() error {
	var zero [4]byte
	if _, err := w.w.Write(zero[:]); err != nil {
		return errors.Wrap(err, "simh: writing tape mark")
	}
	return nil
}

// BlockNum returns the number of blocks written so far.
func (w *Writer) BlockNum() int {
	return w.blockNum
}

// Close flushes buffered output and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return errors.Wrap(err, "simh: flushing tape")
	}
	return w.f.Close()
}
