// Package rectype classifies a CDC logical record into one of the
// historical record kinds (PROC, 7700 tables, OPL/UPL source decks, PP/REL/
// ABS/OVL binaries, PFDUMP/DUMPPF dumps, ...), extracting whatever name,
// date, and extra text the record's header carries along the way. It is
// adapted from the reference id_record, generalized with the extra
// UPL/UPLD/UCF/LDSET/DUMPPF branches spec.md's fuller procedure calls for.
package rectype

import (
	"strings"

	"cdctape/internal/dcode"
)

// Kind is a classified record's tag.
type Kind string

const (
	Empty  Kind = "EMPTY"
	EOF    Kind = "EOF"
	Text   Kind = "TEXT"
	Proc   Kind = "PROC"
	Data   Kind = "DATA" // never produced; reserved for completeness, as in the reference enum
	Tbl7700 Kind = "7700"
	ACF    Kind = "ACF"
	OPL    Kind = "OPL"
	OPLC   Kind = "OPLC"
	OPLD   Kind = "OPLD"
	UCF    Kind = "UCF"
	UPL    Kind = "UPL"
	UPLR   Kind = "UPLR"
	UPLD   Kind = "UPLD"
	PP     Kind = "PP"
	PPU    Kind = "PPU"
	PPL    Kind = "PPL"
	ULIB   Kind = "ULIB"
	REL    Kind = "REL"
	ABS    Kind = "ABS"
	OVL    Kind = "OVL"
	SDR    Kind = "SDR"
	CAP    Kind = "CAP"
	User   Kind = "USER"
	DumpPF Kind = "DUMPPF"
	PFLbl  Kind = "PFLBL"
	PFDump Kind = "PFDUMP"
)

// kindOrder mirrors the reference rectype_t enum's declaration order, which
// id_record's callers rely on positionally (e.g. "rt > RT_EOF" to mean "a
// real record, not the EMPTY/EOF sentinels").
var kindOrder = []Kind{
	Empty, EOF, Text, Proc, Data, Tbl7700, ACF, OPL, OPLC, OPLD, UCF, UPL,
	UPLR, UPLD, PP, PPU, PPL, ULIB, REL, ABS, OVL, SDR, CAP, User, DumpPF,
	PFLbl, PFDump,
}

func (k Kind) rank() int {
	for i, kk := range kindOrder {
		if kk == k {
			return i
		}
	}
	return -1
}

// IsRecord reports whether k is a classified record carrying real tape
// content, as opposed to the EMPTY or EOF sentinel kinds.
func (k Kind) IsRecord() bool {
	return k.rank() > EOF.rank()
}

// Result is the outcome of classifying one record.
type Result struct {
	Kind  Kind
	Name  string
	Date  string
	Extra string
	UI    int // -1 if absent
}

const extraLen = 120

// word returns the i'th 10-character word of buf, zero-padded if buf is
// shorter than required — a record near end-of-record may be truncated,
// and the classifier only ever inspects a bounded header region.
func word(buf []byte, i int) []byte {
	w := make([]byte, 10)
	lo := i * 10
	if lo >= len(buf) {
		return w
	}
	hi := lo + 10
	if hi > len(buf) {
		hi = len(buf)
	}
	copy(w, buf[lo:hi])
	return w
}

func at(buf []byte, i int) byte {
	if i < 0 || i >= len(buf) {
		return 0
	}
	return buf[i]
}

// Identify classifies one record. buf holds as many decoded 6-bit
// characters of the record as are available (the classifier only looks at
// roughly its first 200); eof reports that the record context signalled a
// container end-of-file rather than data.
func Identify(m dcode.Maps, buf []byte, eof bool) Result {
	r := Result{UI: -1}

	if eof {
		r.Kind = EOF
		return r
	}
	if len(buf) == 0 {
		r.Kind = Empty
		return r
	}

	// .PROC, prefix: display-code ".PROC,"
	if len(buf) >= 6 && equalBytes(buf[:6], []byte{057, 020, 022, 017, 003, 056}) {
		r.Kind = Proc
		r.Name = m.Copy(buf[6:], min(7, len(buf)-6), dcode.Alnum)
		r.Extra = m.Copy(buf, min(extraLen, len(buf)), dcode.Text)
		return r
	}

	// Sequential UPDATE OLDPL header: display-code "CHECK", byte 5 high bits clear.
	if len(buf) >= 7 && equalBytes(buf[:5], []byte{003, 010, 005, 003, 013}) && at(buf, 5)&076 == 0 {
		r.Kind = UPL
		if at(buf, 6) == 036 {
			r.Extra = "3"
		} else {
			r.Extra = "64"
		}
		return r
	}

	// Random UPDATE directory: display-code "YANK$$$" then two nulls.
	if len(buf) >= 10 && equalBytes(buf[:7], []byte{031, 001, 016, 013, 053, 053, 053}) &&
		at(buf, 7) == 0 && at(buf, 8) == 0 {
		r.Kind = UPLD
		return r
	}

	// PFDUMP family.
	if len(buf) >= 20 {
		if res, ok := identifyPFDump(m, buf); ok {
			return res
		}
	}

	// 7700 header table.
	np := buf
	hdr := (int(at(buf, 0)) << 6) | int(at(buf, 1))
	length := (int(at(buf, 2)) << 6) | int(at(buf, 3))
	sawTable := false
	if hdr == 07700 && length*10+20 <= len(buf) {
		sawTable = true
		r.Name = m.Copy(buf[10:], min(7, len(buf)-10), dcode.NoSpc)
		r.Date = m.Copy(buf[20:], min(10, len(buf)-20), dcode.NoNul)

		if length == 0 {
			r.Kind = UCF
			return r
		}
		// ACF if any of bytes 17..19 nonzero.
		if at(buf, 17) != 0 || at(buf, 18) != 0 || at(buf, 19) != 0 {
			r.Kind = ACF
			return r
		}

		if length >= 14 {
			r.Extra = extract7700Comment(m, buf)
		}

		np = buf[min(length*10+10, len(buf)):]
		hdr = (int(at(np, 0)) << 6) | int(at(np, 1))
		length = (int(at(np, 2)) << 6) | int(at(np, 3))
	}

	// PP program structural test.
	if at(np, 0) != 0 && at(np, 1) != 0 && at(np, 2) != 0 && at(np, 3) == 0 &&
		(inRange(at(np, 0), 26, 36) || at(np, 4) != 0 || at(np, 5) != 0) &&
		at(np, 6) == 0 && at(np, 7) == 0 &&
		(at(np, 8) != 0 || at(np, 9) != 0) {
		r.Kind = PP
		r.Name = m.Copy(np, 3, dcode.NoSpc)
		return r
	}

	// Optional LDSET table.
	if hdr == 07000 && length > 0 {
		np = np[min(length*10+10, len(np)):]
		hdr = (int(at(np, 0)) << 6) | int(at(np, 1))
	}

	switch hdr {
	case 03400:
		r.Kind = REL
		return r
	case 05000:
		if sawTable {
			r.Kind = OVL
		} else {
			r.Kind = SDR
		}
		return r
	case 05100:
		r.Kind = ABS
		return r
	case 05200:
		r.Kind = PPU
		return r
	case 05300:
		if at(np, 7)&040 == 0 {
			r.Kind = OVL
		} else {
			r.Kind = ABS
		}
		return r
	case 05400:
		if at(np, 4) == 0 && at(np, 5) == 0 {
			r.Kind = ABS
		} else {
			r.Kind = OVL
		}
		return r
	case 06000:
		if len(np) >= 21 && (equalBytes(np[11:18], []byte{003, 017, 015, 004, 005, 003, 013}) ||
			equalBytes(np[11:15], []byte{004, 005, 003, 013}) ||
			equalBytes(np[11:15], []byte{031, 001, 016, 013})) {
			r.Kind = UPLR
		} else {
			r.Kind = CAP
		}
		return r
	case 06100:
		r.Kind = PPL
		return r
	case 07000:
		r.Kind = OPLD
		return r
	case 07001:
		r.Kind = OPL
		return r
	case 07002:
		r.Kind = OPLC
		return r
	case 07400:
		r.Kind = DumpPF
		if length >= 16 {
			fillDumpPFCatalog(&r, np)
		}
		return r
	case 07500:
		r.Kind = User
		return r
	case 07600:
		r.Kind = ULIB
		return r
	}

	if sawTable {
		r.Kind = Tbl7700
		return r
	}

	r.Kind = Text
	r.Name = m.Copy(buf, min(7, len(buf)), dcode.NoSpc)
	r.Extra = m.Copy(buf, min(extraLen, len(buf)), dcode.Text)
	return r
}

func identifyPFDump(m dcode.Maps, buf []byte) (Result, bool) {
	r := Result{UI: -1}

	if equalBytes(buf[:10], []byte{0, 0, 0, 0, 0, 0, 0, 007, 070, 0}) && len(buf) <= 20 {
		r.Kind = PFLbl
		return r, true
	}

	eos := false
	namesMatch := true
	for i := 0; i < 7; i++ {
		if at(buf, i) != at(buf, i+10) || at(buf, i) > 36 || (eos && at(buf, i) != 0) {
			namesMatch = false
			break
		}
		if at(buf, i) == 0 {
			eos = true
		}
	}
	cw := (int(at(buf, 7)) << 12) | (int(at(buf, 8)) << 6) | int(at(buf, 9))

	if equalBytes(buf[10:17], []byte{020, 006, 004, 025, 015, 020, 0}) &&
		len(buf) >= 80 && cw == 01100 && namesMatch {
		r.Kind = PFLbl
		r.Name = m.Copy(buf, 7, dcode.Alnum)
		r.Date = m.Copy(buf[40:], 10, dcode.NoNul)
		return r, true
	}

	if namesMatch {
		if (cw&0777000) == 011000 && (cw&0777) >= 2 {
			r.Kind = PFDump
			r.Name = m.Copy(buf, 7, dcode.Alnum)
			r.UI = (int(at(buf, 17)) << 12) | (int(at(buf, 18)) << 6) | int(at(buf, 19))

			if len(buf) >= 50 && (cw&0777) >= 4 {
				r.Date = formatMDate(at(buf, 44), at(buf, 45), at(buf, 46))
			}
			if len(buf) >= 170 && (cw&0777) >= 16 {
				r.Extra = "catalog entry"
			}
			return r, true
		}
	}

	return r, false
}

func fillDumpPFCatalog(r *Result, np []byte) {
	if len(np) < 130 {
		return
	}
	entry := np[80:]
	r.UI = (int(at(entry, 7)) << 12) | (int(at(entry, 8)) << 6) | int(at(entry, 9))
	mw := entry[30:]
	r.Date = formatMDate(at(mw, 4), at(mw, 5), at(mw, 6))
}

func formatMDate(yy, mm, dd byte) string {
	return pad2(int(yy)+70) + "/" + pad2(int(mm)-1) + "/" + pad2(int(dd)) + "."
}

func pad2(n int) string {
	s := itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// extract7700Comment locates and extracts the comment field of a 7700
// table, skipping date/time/zero/all-space words and trimming a trailing
// "COPYRIGHT..." tail.
func extract7700Comment(m dcode.Maps, buf []byte) string {
	sp := 30
	if dcode.IsTimestamp(sliceAt(buf, sp), 057) {
		sp = 80
	}
	for ; sp < 110; sp += 10 {
		w := sliceAt(buf, sp)
		if dcode.IsTimestamp(w, 050) || dcode.IsTimestamp(w, 057) {
			continue
		}
		if allZero(w) {
			continue
		}
		if !allDashes(w) {
			break
		}
	}
	for sp < 150 && at(buf, sp) == 055 {
		sp++
	}

	extra := m.Copy(sliceAt(buf, sp), min(extraLen, max(0, 150-sp)), dcode.NoNul)
	if idx := strings.Index(extra, "COPYRIGHT"); idx >= 0 {
		extra = extra[:idx]
	}
	return strings.TrimRight(extra, " ")
}

func sliceAt(buf []byte, at int) []byte {
	if at >= len(buf) {
		return nil
	}
	return buf[at:]
}

func allZero(w []byte) bool {
	for _, c := range w {
		if c != 0 {
			return false
		}
	}
	return len(w) > 0
}

func allDashes(w []byte) bool {
	for _, c := range w {
		if c != 055 {
			return false
		}
	}
	return len(w) > 0
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func inRange(c byte, lo, hi int) bool {
	return int(c) > lo && int(c) <= hi
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
