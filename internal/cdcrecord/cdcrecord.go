// Package cdcrecord reinterprets a stream of SIMH blocks as CDC 60-bit
// words grouped into logical records, mirroring the reference cdc_ctx_t and
// its cdc_skipwords/cdc_getword/cdc_putword/cdc_flushblock routines. A full
// tape block unpacks to exactly 5120 six-bit characters (512 sixty-bit
// words); any block that unpacks to fewer is a "short block" and marks the
// end of the current logical record.
package cdcrecord

import (
	"github.com/pkg/errors"

	"cdctape/internal/simh"
	"cdctape/internal/sixbit"
)

// fullBlockChars is the number of unpacked 6-bit characters in a full CDC
// tape block (512 words * 10 characters/word).
const fullBlockChars = 512 * 10

// wordLen is the number of 6-bit characters in one 60-bit CDC word.
const wordLen = 10

// Reader reads CDC words from one logical record spanning one or more SIMH
// blocks. It is constructed fresh per record, seeded with the record's
// first already-read block.
type Reader struct {
	tape   *simh.Reader
	cbuf   []byte // unpacked characters of the most recently read block
	nchar  int    // total characters in cbuf
	nleft  int    // characters left to consume from cbuf
	reclen int    // accumulated record size in words
	err    error  // last non-EOR error encountered while refilling
}

// NewReader starts a record context over firstBlock, the already-read first
// SIMH block of the record.
func NewReader(tape *simh.Reader, firstBlock []byte) *Reader {
	chars := sixbit.Unpack(firstBlock)
	return &Reader{
		tape:   tape,
		cbuf:   chars,
		nchar:  len(chars),
		nleft:  len(chars),
		reclen: len(chars) / wordLen,
	}
}

// InitialChars returns the decoded characters of the record's first block,
// for record-type classification against the record's leading bytes. It
// does not consume from the read cursor; callers still see every word via
// GetWord/SkipWords afterward.
func (r *Reader) InitialChars() []byte {
	return r.cbuf[:r.nchar]
}

// Err returns the error (if any) that ended the most recent refill, beyond
// plain end-of-record. It is nil after a clean short-block EOR.
func (r *Reader) Err() error {
	return r.err
}

// RecLen returns the record size accumulated so far, in words.
func (r *Reader) RecLen() int {
	return r.reclen
}

func (r *Reader) refill() bool {
	block, err := r.tape.ReadBlock()
	if err != nil {
		r.err = err
		r.nchar = 0
		return false
	}
	chars := sixbit.Unpack(block)
	r.cbuf = chars
	r.nchar = len(chars)
	r.nleft = len(chars)
	r.reclen += r.nchar / wordLen
	return true
}

// SkipWords returns the word nskip positions ahead of the current read
// position, without consuming it, refilling from the tape as needed. ok is
// false at end of record (a short block was reached) or on a read error;
// callers distinguish the two via Err.
func (r *Reader) SkipWords(nskip int) (word []byte, ok bool) {
	cskip := nskip * wordLen
	for r.nleft < cskip+wordLen {
		cskip -= (r.nleft / wordLen) * wordLen
		r.nleft = 0
		if r.nchar < fullBlockChars {
			r.nchar = 0
			return nil, false
		}
		if !r.refill() {
			return nil, false
		}
	}
	r.nleft -= cskip
	start := r.nchar - r.nleft
	return r.cbuf[start : start+wordLen], true
}

// GetWord returns the next CDC word and advances past it.
func (r *Reader) GetWord() (word []byte, ok bool) {
	word, ok = r.SkipWords(0)
	if ok {
		r.nleft -= wordLen
	}
	return word, ok
}

// SkipRecord fast-forwards to the end of the record (the next short block)
// without returning intermediate words, and returns the total record size
// in words.
func (r *Reader) SkipRecord() int {
	for r.nchar >= fullBlockChars {
		if !r.refill() {
			break
		}
	}
	r.nleft = 0
	return r.reclen
}

// Writer accumulates CDC words and flushes them as SIMH blocks trailered
// with the 48-bit CDC record trailer (half-PP-word count, block number,
// 4-bit EOR/EOF indicator).
type Writer struct {
	tape     *simh.Writer
	cbuf     []byte
	blockNum int
}

// NewWriter returns a Writer that frames output blocks onto tape.
func NewWriter(tape *simh.Writer) *Writer {
	return &Writer{tape: tape}
}

// PutWord appends a 10-character CDC word, auto-flushing a non-terminal
// block once a full block's worth of words has accumulated.
func (w *Writer) PutWord(word []byte) error {
	if len(word) != wordLen {
		return errors.Errorf("cdcrecord: word length %d, want %d", len(word), wordLen)
	}
	w.cbuf = append(w.cbuf, word...)
	if len(w.cbuf) < fullBlockChars {
		return nil
	}
	return w.flush(false)
}

// WriteEOR flushes any pending words and writes a non-final block trailer.
func (w *Writer) WriteEOR() error {
	return w.flush(false)
}

// WriteEOF flushes any pending words and writes a final (end-of-file)
// block trailer.
func (w *Writer) WriteEOF() error {
	return w.flush(true)
}

// BlockNum returns the number of blocks flushed so far.
func (w *Writer) BlockNum() int {
	return w.blockNum
}

func (w *Writer) flush(eof bool) error {
	packed := sixbit.Pack(w.cbuf)

	trailer := make([]byte, 6)
	halfWords := (len(w.cbuf) + 8) / 2
	trailer[0] = byte(halfWords >> 4)
	trailer[1] = byte((halfWords & 0xf) << 4)
	trailer[1] |= byte((w.blockNum >> 20) & 0xf)
	trailer[2] = byte((w.blockNum >> 12) & 0xff)
	trailer[3] = byte((w.blockNum >> 4) & 0xff)
	trailer[4] = byte((w.blockNum & 0xf) << 4)
	if eof {
		trailer[5] = 017
	}

	data := append(packed, trailer...)
	if err := w.tape.WriteBlock(data); err != nil {
		return errors.Wrap(err, "cdcrecord: flushing block")
	}
	w.cbuf = w.cbuf[:0]
	w.blockNum++
	return nil
}
